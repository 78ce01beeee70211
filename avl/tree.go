// Package avl implements a practical concurrent AVL tree: an ordered
// set of int64 keys supporting concurrent Insert, Remove, and
// Contains under fine-grained, per-node hand-over-hand locking, with
// logical deletion and a lock-coupled bottom-up rebalancer.
package avl

import (
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/benz9527/xavl/lib/epoch"
	"github.com/benz9527/xavl/lib/xlog"
)

// Tree is an ordered set of int64 keys, safe for concurrent use by
// any number of goroutines calling Insert, Remove, and Contains.
//
// Construction installs the sentinel root; Close releases the
// reclaimer the tree created for itself, if any. No
// thread may be mid-operation when Close is called — the same
// contract the underlying reclaimer's Close carries (spec.md §6).
type Tree struct {
	root *Node

	mutexStrategy mutexStrategy
	reclaimer     epoch.Reclaimer
	ownsReclaimer bool

	logger  *zap.Logger
	metrics *treeMetrics
}

// Option configures a Tree at construction time.
type Option func(*treeCfg)

type treeCfg struct {
	mutexStrategy mutexStrategy
	logger        *zap.Logger
	meterProvider metric.MeterProvider
	reclaimer     epoch.Reclaimer
}

// WithMutexStrategy selects the per-node lock implementation. Spin
// locks (the default) favor the short hold times typical of a single
// rotation; native defers to sync.Mutex and parks instead of spinning.
func WithMutexStrategy(strategy string) Option {
	return func(cfg *treeCfg) {
		if strategy == "native" {
			cfg.mutexStrategy = nativeMutexStrategy
		} else {
			cfg.mutexStrategy = spinMutexStrategy
		}
	}
}

// WithLogger attaches a *zap.Logger for the ambient logging described
// in spec.md §7: the recoverable retries and walk aborts, at debug
// level. A failed invariant assertion panics without being logged.
// The default is xlog.NewXLogger()'s output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *treeCfg) { cfg.logger = logger }
}

// WithMeterProvider wires the tree's counters (avl.core.ops,
// avl.core.retries, avl.core.rotations, avl.core.rebalance_walks,
// avl.core.nodes_reclaimed) into
// the given otel metric.MeterProvider. Omit it to use a no-op provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *treeCfg) { cfg.meterProvider = mp }
}

// WithReclaimer supplies the safe-memory-reclamation collaborator
// unlinked nodes are retired to. Omit it to have the Tree own a
// default *epoch.Manager, created and closed alongside the Tree.
func WithReclaimer(r epoch.Reclaimer) Option {
	return func(cfg *treeCfg) { cfg.reclaimer = r }
}

// New constructs an empty tree.
func New(opts ...Option) *Tree {
	cfg := &treeCfg{mutexStrategy: spinMutexStrategy}
	for _, o := range opts {
		o(cfg)
	}

	t := &Tree{
		root:          newSentinel(0, cfg.mutexStrategy),
		mutexStrategy: cfg.mutexStrategy,
		logger:        cfg.logger,
		metrics:       newTreeMetrics(cfg.meterProvider),
	}
	if t.logger == nil {
		t.logger = xlog.NewXLogger()
	}
	if cfg.reclaimer != nil {
		t.reclaimer = cfg.reclaimer
	} else {
		t.reclaimer = epoch.NewManager()
		t.ownsReclaimer = true
	}
	return t
}

// Contains reports whether key is in the set. It never blocks: the
// descent is entirely lock-free, linearizing at the load of mark on
// the candidate node (spec.md §4.6, §5).
func (t *Tree) Contains(key int64) bool {
	guard := t.reclaimer.Pin()
	defer guard.Unpin()

	_, current, _ := seek(t.root, key)
	found := current != nil && cmp(key, current.key) == 0 && !current.marked()
	t.metrics.op("contains", outcomeOf(found))
	return found
}

func outcomeOf(found bool) string {
	if found {
		return "found"
	}
	return "absent"
}

// retire hands n to the reclaimer once it has been unlinked and
// marked. Go's own garbage collector already guarantees n's memory
// outlives any pointer to it, so unlike the spec's source language
// this never risks a use-after-free; retiring it anyway keeps a
// lock-free reader from ever dereferencing a node whose links have
// been zeroed out from under it for reuse, and exercises the
// reclamation boundary the spec requires (spec.md §3 Lifecycle, §9
// Memory reclamation).
func (t *Tree) retire(n *Node) {
	t.reclaimer.Retire(func() {
		n.storeLeft(nil)
		n.storeRight(nil)
		n.storeParent(nil)
		t.metrics.reclaim()
	})
}

// Close releases the tree's reclaimer if the tree created it itself
// (i.e. no WithReclaimer was given). Callers must guarantee no
// operation is still in flight; this is a spec-gap addition, since
// the spec describes destruction only as "traverses and releases all
// nodes" without naming a method (spec.md §6).
func (t *Tree) Close() {
	if t.ownsReclaimer {
		t.reclaimer.Close()
	}
}
