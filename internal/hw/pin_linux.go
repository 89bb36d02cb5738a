//go:build linux

package hw

import "golang.org/x/sys/unix"

// currentCPU returns the CPU the calling thread is running on, via
// sched_getcpu. The caller holds the thread lock, so the answer stays
// valid until unpin.
func currentCPU() int {
	cpu, _, err := unix.Getcpu()
	if err != nil {
		return 0
	}
	return cpu
}
