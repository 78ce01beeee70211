package infra

import (
	_ "unsafe"
)

//go:linkname osYield runtime.osyield
func osYield()

// OsYield yields the calling OS thread's remaining quantum to the
// scheduler. The spin-mutex backoff does not call it; once its
// procYield stage is exhausted it calls runtime.Gosched instead.
func OsYield() {
	osYield()
}

//go:linkname procYield runtime.procyield
func procYield(cycles uint32)

// ProcYield burns the given number of CPU cycles without descheduling
// the goroutine. Cheaper than OsYield for short lock-coupling waits.
func ProcYield(cycles uint32) {
	procYield(cycles)
}
