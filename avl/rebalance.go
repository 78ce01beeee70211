package avl

import (
	"github.com/benz9527/xavl/lib/infra"
	"go.uber.org/zap"
)

// MINBF and MAXBF bound an acceptable balance factor. A node outside
// [MINBF, MAXBF] needs rotating: below MINBF it is right-heavy, above
// MAXBF it is left-heavy.
const (
	MINBF int32 = -1
	MAXBF int32 = 1
)

// rebalance walks upward from node, repairing heights and restoring
// |bf| <= MAXBF at every ancestor it touches. It is invoked after
// every structural change: once from Insert on the freshly published
// node's parent, and at each of Remove's one or two restart points.
//
// This is the symmetric exit condition the spec's REDESIGN note calls
// for (currHeight == prevHeight && |bf| <= MAXBF) in place of the
// original's asymmetric bf <= MAXBF, which would leave a subtree with
// bf == MINBF-1 (i.e. -2) unexamined whenever height happened not to
// change on the same iteration — see DESIGN.md.
func (t *Tree) rebalance(node *Node) {
	for node != t.root {
		next, done := t.rebalanceStep(node)
		if done {
			return
		}
		node = next
	}
}

// rebalanceStep performs one lock-parent/lock-node/check/fix iteration
// of the walk and reports the next node to examine (valid only when
// done is false). Every lock taken in this step, including the
// rotation's child/grandchild locks, goes through a single lm, whose
// deferred UnlockAll guarantees infra.AssertInvariant can never leave
// a node stuck locked (spec.md §4.2).
func (t *Tree) rebalanceStep(node *Node) (next *Node, done bool) {
	lm := NewLockManager()
	defer lm.UnlockAll()

	parent := t.lockMatchingParent(lm, node)
	if parent == nil {
		return nil, true // node was marked while we searched for its live parent
	}

	lm.Lock(node)
	if node.marked() {
		t.logger.Debug("rebalance: walk target marked, aborting", zap.Int64("key", node.key))
		return nil, true
	}
	infra.AssertInvariant(node.loadParent() == parent, "rebalance: node reparented after lock acquired")

	prevHeight := height(node)
	currHeight := 1 + max32(height(node.loadLeft()), height(node.loadRight()))
	bf := balanceFactor(node)

	if currHeight == prevHeight && bf >= MINBF && bf <= MAXBF {
		return nil, true
	}
	node.storeHeight(currHeight)

	if bf < MINBF || bf > MAXBF {
		t.rotateAt(lm, parent, node, bf)
		t.metrics.rotation()
	}

	return parent, false
}

// lockMatchingParent locks node's current parent onto lm and confirms
// it is still node's parent after the lock is held, retrying against
// a concurrently re-parented node (spec.md §4.4 steps 1-2). It returns
// nil if node turns out to be marked while hunting for a stable
// parent, signaling the caller to abort the whole walk.
func (t *Tree) lockMatchingParent(lm *LockManager, node *Node) *Node {
	parent := node.loadParent()
	for {
		lm.Lock(parent)
		if node.loadParent() == parent {
			return parent
		}
		lm.Unlock()
		t.metrics.retry("reparented")
		t.logger.Debug("rebalance: node reparented, retrying upward", zap.Int64("key", node.key))
		if node.marked() {
			return nil
		}
		parent = node.loadParent()
	}
}

// rotateAt performs the single or double rotation needed to bring
// node back within [MINBF, MAXBF]. Caller already holds parent and
// node on lm; rotateAt locks the heavier child (and, for a double
// rotation, the appropriate grandchild) onto the same lm before
// performing the pointer moves, so every lock this step takes unwinds
// through the one deferred UnlockAll in rebalanceStep (spec.md §4.4
// step 5).
func (t *Tree) rotateAt(lm *LockManager, parent, node *Node, bf int32) *Node {
	if bf > MAXBF {
		child := node.loadLeft()
		lm.Lock(child)
		infra.AssertInvariant(child.loadParent() == node, "rotateAt: left child reparented")

		if balanceFactor(child) < 0 {
			grandchild := child.loadRight()
			lm.Lock(grandchild)
			return rotateLeftRight(parent, node, child, grandchild)
		}
		return rotateRight(parent, node, child)
	}

	child := node.loadRight()
	lm.Lock(child)
	infra.AssertInvariant(child.loadParent() == node, "rotateAt: right child reparented")

	if balanceFactor(child) > 0 {
		grandchild := child.loadLeft()
		lm.Lock(grandchild)
		return rotateRightLeft(parent, node, child, grandchild)
	}
	return rotateLeft(parent, node, child)
}
