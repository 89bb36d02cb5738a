package hw

import "runtime"

// Pin locks the calling goroutine to its OS thread and reports the logical
// CPU it is executing on. Register access between Pin and the returned
// unpin func addresses a stable CPU; call unpin on every exit path,
// normally via defer.
func Pin() (cpu int, unpin func()) {
	runtime.LockOSThread()
	return currentCPU(), runtime.UnlockOSThread
}
