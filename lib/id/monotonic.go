package id

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// Generator produces a monotonically increasing, never-zero sequence.
// Zero is reserved so it can double as the "unpinned" sentinel value
// stored in an epoch reader slot (lib/epoch).
type Generator interface {
	Next() uint64
}

// MonotonicNonZero is the epoch clock of lib/epoch.Manager. Only
// increases; on overflow it skips back past zero rather than landing
// on it.
//
// Padded to its own cache line (a cache line is typically 64 bytes)
// so that a hot counter shared by many goroutines doesn't false-share
// with an adjacent field.
// L1D cache: cat /sys/devices/system/cpu/cpu0/cache/index0/coherency_line_size
// MESI (Modified-Exclusive-Shared-Invalid):
// RAM data -> L3 cache -> L2 cache -> L1 cache -> CPU register.
type MonotonicNonZero struct {
	_   [cacheLinePadSize - unsafe.Sizeof(uint64(0))]byte
	val uint64
	_   [cacheLinePadSize - unsafe.Sizeof(uint64(0))]byte
}

func NewMonotonicNonZero() *MonotonicNonZero {
	return &MonotonicNonZero{}
}

func (g *MonotonicNonZero) Next() uint64 {
	v := atomic.AddUint64(&g.val, 1)
	if v == 0 {
		v = atomic.AddUint64(&g.val, 1)
	}
	return v
}

func (g *MonotonicNonZero) Current() uint64 {
	return atomic.LoadUint64(&g.val)
}
