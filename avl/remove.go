package avl

import (
	"github.com/benz9527/xavl/lib/infra"
	"go.uber.org/zap"
)

// Remove deletes key from the set. It is a no-op if key is absent or
// already logically removed (spec.md §4.3, §8).
func (t *Tree) Remove(key int64) {
	for {
		guard := t.reclaimer.Pin()
		parent, target, dir := seek(t.root, key)
		guard.Unpin()
		if target == nil || cmp(key, target.key) != 0 || target.marked() {
			t.metrics.op("remove", "absent")
			return
		}

		if t.removeAt(parent, target, dir) {
			return
		}
	}
}

// removeAt attempts one locked removal at a seek result, returning
// false if the snapshot went stale by the time the locks were
// acquired (the caller retries from a fresh seek). Every lock taken
// here goes through lm, whose deferred UnlockAll guarantees
// infra.AssertInvariant can never leave parent.mu, target.mu, or a
// successor's locks stuck (spec.md §4.2).
func (t *Tree) removeAt(parent, target *Node, dir direction) bool {
	lm := NewLockManager()
	defer lm.UnlockAll()

	lm.Lock(parent)
	if parent.child(dir) != target {
		t.metrics.retry("stale-seek")
		t.logger.Debug("remove: stale seek, retrying", zap.Int64("key", target.key))
		return false
	}

	lm.Lock(target)
	if target.marked() {
		t.metrics.retry("stale-seek")
		t.logger.Debug("remove: target marked after lock, retrying", zap.Int64("key", target.key))
		return false
	}
	infra.AssertInvariant(target.loadParent() == parent, "remove: target reparented while parent held")

	left, right := target.loadLeft(), target.loadRight()
	if left == nil || right == nil {
		t.removeDegenerate(lm, parent, target, dir, left, right)
		return true
	}
	return t.removeWithSuccessor(lm, parent, target, dir)
}

// removeDegenerate handles zero- or one-child removal: target.mark is
// set, and parent's child slot is redirected straight to target's
// only child (or nil). Caller holds parent and target on lm.
func (t *Tree) removeDegenerate(lm *LockManager, parent, target *Node, dir direction, left, right *Node) {
	child := left
	if child == nil {
		child = right
	}

	target.mark()
	parent.setChild(dir, child)
	if child != nil {
		child.storeParent(parent)
	}

	lm.UnlockAll()

	t.retire(target)
	t.metrics.op("remove", "ok")
	t.metrics.walk()
	t.rebalance(parent)
}

// removeWithSuccessor handles two-child removal by promoting the
// in-order successor s (the leftmost node of target's right subtree).
// Locks are acquired top-down — s's parent before s itself — to stay
// consistent with the rebalancer's parent-then-node discipline in
// §4.4 and avoid a lock-order inversion against a concurrent
// rebalance walk that might hold s's parent and want s next.
//
// Returns false if the lock-free successor snapshot went stale by the
// time the locks were acquired; the caller retries the whole Remove
// from seek. Caller holds parent and target on lm; this locks sParent
// and s onto the same manager.
func (t *Tree) removeWithSuccessor(lm *LockManager, parent, target *Node, dir direction) bool {
	sParent := target
	s := target.loadRight()
	for s.loadLeft() != nil {
		sParent = s
		s = s.loadLeft()
	}

	if sParent != target {
		lm.Lock(sParent)
	}
	lm.Lock(s)

	var stillLinked bool
	if sParent == target {
		stillLinked = target.loadRight() == s
	} else {
		stillLinked = sParent.loadLeft() == s
	}
	if !stillLinked || s.loadLeft() != nil || s.marked() {
		t.metrics.retry("stale-successor")
		t.logger.Debug("remove: stale successor snapshot, retrying", zap.Int64("target", target.key))
		return false
	}
	infra.AssertInvariant(s.loadParent() == sParent, "remove: successor reparented while its parent held")

	target.mark()

	tLeft, tRight := target.loadLeft(), target.loadRight()
	sRight := s.loadRight()

	if sParent != target {
		sParent.storeLeft(sRight)
		if sRight != nil {
			sRight.storeParent(sParent)
		}
		s.storeRight(tRight)
		if tRight != nil {
			tRight.storeParent(s)
		}
	}
	// else: s was target's direct right child and already has no
	// left child, so s.right (== sRight) simply stays as-is.

	s.storeLeft(tLeft)
	if tLeft != nil {
		tLeft.storeParent(s)
	}
	s.storeParent(parent)
	parent.setChild(dir, s)
	s.storeHeight(target.loadHeight())

	restart1 := sParent
	if sParent == target {
		restart1 = s
	}

	lm.UnlockAll()

	t.retire(target)
	t.metrics.op("remove", "ok")
	t.metrics.walk()
	t.rebalance(restart1)
	if restart1 != s {
		t.rebalance(s)
	}
	return true
}
