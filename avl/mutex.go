package avl

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/benz9527/xavl/lib/infra"
)

// nodeMutex is the per-node lock every hand-over-hand operation
// couples across. Two implementations trade latency for fairness,
// mirroring the teacher's segmentedMutex/spinMutex/goSyncMutex split
// in lib/list/x_conc_skl_utils.go — simplified here because a Node's
// lock never carries the skip list's version token.
type nodeMutex interface {
	Lock()
	TryLock() bool
	Unlock()
}

// mutexStrategy selects which nodeMutex implementation new nodes use.
type mutexStrategy uint8

const (
	// spinMutexStrategy busy-waits with exponential backoff. Best for
	// short critical sections under moderate contention, which is the
	// common case for a single node's hold time during a rotation.
	spinMutexStrategy mutexStrategy = iota
	// nativeMutexStrategy defers to sync.Mutex, which parks goroutines
	// instead of spinning. Preferable when the Go scheduler has more
	// runnable goroutines than GOMAXPROCS.
	nativeMutexStrategy
)

func newNodeMutex(strategy mutexStrategy) nodeMutex {
	if strategy == nativeMutexStrategy {
		return &nativeMutex{}
	}
	return new(spinMutex)
}

type nativeMutex struct {
	mu sync.Mutex
}

func (m *nativeMutex) Lock()         { m.mu.Lock() }
func (m *nativeMutex) TryLock() bool { return m.mu.TryLock() }
func (m *nativeMutex) Unlock()       { m.mu.Unlock() }

const (
	spinUnlocked uint32 = 0
	spinLocked   uint32 = 1
)

// spinMutex is a CAS loop with escalating backoff: a short run of
// infra.ProcYield (a PAUSE instruction on amd64) followed by
// runtime.Gosched once the wait has gone on long enough that giving
// up the rest of the scheduling slice is cheaper than spinning on.
type spinMutex uint32

func (l *spinMutex) Lock() {
	backoff := uint8(1)
	for !atomic.CompareAndSwapUint32((*uint32)(l), spinUnlocked, spinLocked) {
		if backoff <= 32 {
			for i := uint8(0); i < backoff; i++ {
				infra.ProcYield(20)
			}
			backoff <<= 1
		} else {
			runtime.Gosched()
		}
	}
}

func (l *spinMutex) TryLock() bool {
	return atomic.CompareAndSwapUint32((*uint32)(l), spinUnlocked, spinLocked)
}

func (l *spinMutex) Unlock() {
	atomic.StoreUint32((*uint32)(l), spinUnlocked)
}
