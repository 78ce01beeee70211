package avl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benz9527/xavl/lib/epoch"
)

// inOrder returns every reachable key in ascending order. It is the
// white-box equivalent of the iteration the public API deliberately
// does not expose (spec.md §6: "no iterator, no size").
func (t *Tree) inOrder() []int64 {
	var out []int64
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		walk(n.loadLeft())
		out = append(out, n.key)
		walk(n.loadRight())
	}
	walk(t.root.loadLeft())
	return out
}

// size returns the count of reachable keys. White-box only; not part
// of the public API.
func (t *Tree) size() int {
	return len(t.inOrder())
}

// checkInvariants asserts every testable invariant from spec.md §8 at
// a quiescent point: no reachable node is marked, every reachable
// node's parent back-link matches its actual parent, every height is
// exact, and every balance factor is within [MINBF, MAXBF].
func (t *Tree) checkInvariants(tb testing.TB) {
	var walk func(n, parent *Node)
	walk = func(n, parent *Node) {
		if n == nil {
			return
		}
		require.False(tb, n.marked(), "reachable node %d is marked", n.key)
		require.Same(tb, parent, n.loadParent(), "parent back-link mismatch at key %d", n.key)

		if l := n.loadLeft(); l != nil {
			require.Less(tb, l.key, n.key, "left child %d not less than %d", l.key, n.key)
		}
		if r := n.loadRight(); r != nil {
			require.Greater(tb, r.key, n.key, "right child %d not greater than %d", r.key, n.key)
		}

		lh, rh := height(n.loadLeft()), height(n.loadRight())
		require.Equal(tb, 1+max32(lh, rh), n.loadHeight(), "height mismatch at key %d", n.key)

		bf := lh - rh
		require.GreaterOrEqual(tb, bf, MINBF, "balance factor below MINBF at key %d", n.key)
		require.LessOrEqual(tb, bf, MAXBF, "balance factor above MAXBF at key %d", n.key)

		walk(n.loadLeft(), n)
		walk(n.loadRight(), n)
	}
	walk(t.root.loadLeft(), t.root)
}

// treeHeight returns the height of the topmost real node, or -1 for
// an empty tree.
func (t *Tree) treeHeight() int32 {
	return height(t.root.loadLeft())
}

// newTestTree builds a Tree with a background-sweep-free reclaimer so
// tests are deterministic: TryAdvance only runs when a test explicitly
// calls it, never off a ticker racing the assertions below.
func newTestTree(tb testing.TB) *Tree {
	reclaimer := epoch.NewManager(epoch.WithoutBackgroundSweep())
	tree := New(WithReclaimer(reclaimer))
	tb.Cleanup(reclaimer.Close)
	return tree
}
