//go:build !linux

package hw

// currentCPU has no portable implementation off Linux; all pinned access
// addresses logical CPU 0.
func currentCPU() int { return 0 }
