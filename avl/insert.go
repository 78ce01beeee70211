package avl

import (
	"github.com/benz9527/xavl/lib/infra"
	"go.uber.org/zap"
)

// Insert adds key to the set. It is idempotent: inserting a key
// already present (and not marked) is a no-op (spec.md §4.3, §8).
func (t *Tree) Insert(key int64) {
	for {
		guard := t.reclaimer.Pin()
		_, current, _ := seek(t.root, key)
		guard.Unpin()

		found := current != nil && cmp(key, current.key) == 0
		if found && !current.marked() {
			t.metrics.op("insert", "present")
			return
		}

		var p *Node
		switch {
		case current == nil:
			p = t.root
		case found: // found but marked: climb to a live ancestor
			p = highestUnmarkedAncestor(t.root, current)
		default:
			p = current
		}

		if t.tryInsertAt(p, key) {
			return
		}
		t.metrics.retry("stale-seek")
		t.logger.Debug("insert: stale seek, retrying", zap.Int64("key", key))
	}
}

// tryInsertAt attempts to publish key as a new child of p, returning
// false if p's slot turned out to be stale by the time it was locked.
// p.lock is held through a LockManager, so a failed
// infra.AssertInvariant unwinds without leaving p locked (spec.md
// §4.2).
func (t *Tree) tryInsertAt(p *Node, key int64) bool {
	lm := NewLockManager()
	defer lm.UnlockAll()

	lm.Lock(p)
	dir, ok := t.validateInsertSlot(p, key)
	if !ok {
		return false
	}

	n := newNode(key, p, t.mutexStrategy)
	infra.AssertInvariant(p.child(dir) == nil, "insert: target slot occupied at publish time")
	p.setChild(dir, n)
	lm.UnlockAll() // release before rebalancing so the walk can re-lock p top-down

	t.metrics.op("insert", "created")
	t.metrics.walk()
	// Start the walk at p, not n: a freshly created leaf's height
	// (0, no children) trivially matches what step 4's recompute
	// would find, so a walk literally starting at n would exit on
	// its first iteration and never propagate the new child's
	// existence to p's own height. p is where the first real
	// height change can actually be observed.
	t.rebalance(p)
	return true
}

// validateInsertSlot re-checks, under p.lock, that p is still an
// acceptable parent for key: unmarked, and with a still-empty child
// slot on the side key belongs. p == t.root is the bootstrap case for
// the very first node, where the slot is always root.left — root's
// key is a dummy never compared against, so real keys may use the
// tree's full int64 range including math.MinInt64/MaxInt64.
func (t *Tree) validateInsertSlot(p *Node, key int64) (dir direction, ok bool) {
	if p.marked() {
		return 0, false
	}
	if p == t.root || cmp(key, p.key) < 0 {
		dir = dirLeft
	} else {
		dir = dirRight
	}
	if p.child(dir) != nil {
		return dir, false
	}
	return dir, true
}
