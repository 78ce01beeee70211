// Package epoch implements the safe-memory-reclamation collaborator
// the AVL core depends on: lock-free readers Pin a Guard before
// dereferencing unlinked-but-not-yet-freed nodes, and a mutator that
// physically unlinks a node hands it to Retire instead of freeing it
// directly.
//
// The scheme is classic epoch-based reclamation with three garbage
// generations. A retirement lands in the bag for the current global
// epoch; the epoch only advances once every pinned reader has caught
// up to it, at which point the bag two generations behind is
// guaranteed to have no pinned reader left that could still dereference
// it, and its entries are freed.
package epoch

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sys/cpu"

	"github.com/benz9527/xavl/lib/id"
)

const generations = 3

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

type epochSlot struct {
	_     [cacheLinePadSize - unsafe.Sizeof(uint64(0))]byte
	epoch uint64 // 0 means the slot is not pinned.
	_     [cacheLinePadSize - unsafe.Sizeof(uint64(0))]byte
}

// Reclaimer is the safe memory reclamation collaborator the AVL core
// depends on (spec.md §5/§6's retire(node) interface, widened to also
// cover the Pin side lock-free readers need). *Manager satisfies it
// directly; nothing else in this package needs to.
type Reclaimer interface {
	Pin() *Guard
	Retire(free func())
	Close()
}

// Guard is a pinned reader's ticket. Hold it for the duration of a
// lock-free traversal; Unpin releases it.
type Guard struct {
	mgr  *Manager
	slot *epochSlot
	idx  int
}

// Unpin releases the guard. It is safe to call at most once; a nil
// receiver is a no-op so deferred Unpin calls on a zero Guard are safe.
func (g *Guard) Unpin() {
	if g == nil || g.mgr == nil {
		return
	}
	atomic.StoreUint64(&g.slot.epoch, 0)
	g.mgr.releaseSlot(g.idx)
}

// Manager owns the epoch clock, the reader slot table, and the three
// garbage generations. One Manager is shared by a Tree and everything
// that traverses it lock-free.
//
// slots holds *epochSlot rather than epochSlot so that a Guard's
// pointer stays valid across a concurrent append — growing the slice
// of pointers never moves the epochSlot values themselves, only their
// addresses in the (separately synchronized) index.
type Manager struct {
	clock *id.MonotonicNonZero

	mu        sync.Mutex
	slots     []*epochSlot
	freeSlots []int
	bags      [generations][]func()

	sweepPool   *ants.Pool
	sweepTicker *time.Ticker
	stopSweep   chan struct{}
	sweepDone   sync.WaitGroup
}

// Option configures a Manager.
type Option func(*managerCfg)

type managerCfg struct {
	sweepInterval  time.Duration
	sweepPoolSize  int
	startBackgroud bool
}

// WithSweepInterval overrides the default background sweep cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(cfg *managerCfg) { cfg.sweepInterval = d }
}

// WithSweepPoolSize bounds the number of goroutines the background
// sweep may use to run retired callbacks concurrently.
func WithSweepPoolSize(n int) Option {
	return func(cfg *managerCfg) { cfg.sweepPoolSize = n }
}

// WithoutBackgroundSweep disables the automatic ticker; callers must
// invoke TryAdvance themselves (useful for deterministic tests).
func WithoutBackgroundSweep() Option {
	return func(cfg *managerCfg) { cfg.startBackgroud = false }
}

// NewManager starts a reclaimer. The global epoch begins at 1 so that
// 0 can be reserved as the slots' "unpinned" sentinel.
func NewManager(opts ...Option) *Manager {
	cfg := &managerCfg{
		sweepInterval:  2 * time.Millisecond,
		sweepPoolSize:  4,
		startBackgroud: true,
	}
	for _, o := range opts {
		o(cfg)
	}

	pool, err := ants.NewPool(cfg.sweepPoolSize, ants.WithPreAlloc(true))
	if err != nil {
		panic(err)
	}

	clock := id.NewMonotonicNonZero()
	clock.Next() // bootstrap to 1; Current() would otherwise read 0, the unpinned sentinel.

	m := &Manager{
		clock:     clock,
		sweepPool: pool,
		stopSweep: make(chan struct{}),
	}

	if cfg.startBackgroud {
		m.sweepDone.Add(1)
		m.sweepTicker = time.NewTicker(cfg.sweepInterval)
		go m.sweepLoop()
	}
	return m
}

func (m *Manager) sweepLoop() {
	defer m.sweepDone.Done()
	for {
		select {
		case <-m.stopSweep:
			return
		case <-m.sweepTicker.C:
			_ = m.sweepPool.Submit(func() { m.TryAdvance() })
		}
	}
}

// Pin records the reader's entry epoch and returns a Guard the reader
// must Unpin once its lock-free traversal is done.
func (m *Manager) Pin() *Guard {
	idx, slot := m.acquireSlot()
	atomic.StoreUint64(&slot.epoch, m.clock.Current())
	return &Guard{mgr: m, slot: slot, idx: idx}
}

// Retire defers free until no Guard pinned before this retirement can
// still observe the retired object. free must not block.
func (m *Manager) Retire(free func()) {
	bag := int(m.clock.Current() % generations)
	m.mu.Lock()
	m.bags[bag] = append(m.bags[bag], free)
	m.mu.Unlock()
}

// TryAdvance attempts to move the global epoch forward by one and, if
// it succeeds, frees the generation that is now two epochs stale. It
// returns false if some pinned reader has not yet caught up to the
// current epoch — advancing would let a retirement in the current
// epoch's bag be collected while that reader might still observe it.
func (m *Manager) TryAdvance() bool {
	cur := m.clock.Current()

	m.mu.Lock()
	for i := range m.slots {
		if e := atomic.LoadUint64(&m.slots[i].epoch); e != 0 && e != cur {
			m.mu.Unlock()
			return false
		}
	}
	next := m.clock.Next()

	staleBag := int((next + 1) % generations)
	garbage := m.bags[staleBag]
	m.bags[staleBag] = nil
	m.mu.Unlock()

	for _, free := range garbage {
		free()
	}
	return true
}

// Close stops the background sweep, runs every remaining retirement
// regardless of epoch (the caller must guarantee no operation is
// still in flight, same contract as Tree.Close), and releases the
// worker pool.
func (m *Manager) Close() {
	if m.sweepTicker != nil {
		close(m.stopSweep)
		m.sweepTicker.Stop()
		m.sweepDone.Wait()
	}
	m.mu.Lock()
	var all []func()
	for _, bag := range m.bags {
		all = append(all, bag...)
	}
	m.bags = [generations][]func(){}
	m.mu.Unlock()
	for _, free := range all {
		free()
	}
	m.sweepPool.Release()
}

func (m *Manager) acquireSlot() (int, *epochSlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.freeSlots); n > 0 {
		idx := m.freeSlots[n-1]
		m.freeSlots = m.freeSlots[:n-1]
		return idx, m.slots[idx]
	}
	m.slots = append(m.slots, &epochSlot{})
	idx := len(m.slots) - 1
	return idx, m.slots[idx]
}

func (m *Manager) releaseSlot(idx int) {
	m.mu.Lock()
	m.freeSlots = append(m.freeSlots, idx)
	m.mu.Unlock()
}
