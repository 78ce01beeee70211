package avl

import "github.com/benz9527/xavl/lib/infra"

// cmp is the one comparison path Seek, Insert, Remove, and
// validateInsertSlot share. The tree's key type is fixed to int64 by
// spec.md §1; every key comparison goes through this
// infra.OrderedKeyComparator instead of bare `<`/`==`. The comparator
// type is generic over infra.Signed, but the BST core is not: Node.key
// and every operation's key parameter are int64 (see DESIGN.md).
var cmp = infra.DefaultComparator[int64]()

// seek descends from root without acquiring any lock and returns the
// last node visited whose subtree could still contain key (current),
// that node's parent, and the direction by which current was reached
// from parent. current is nil only when the tree is empty, in which
// case parent is root and dir is dirLeft.
//
// current is either an exact match (current.key == key, marked or
// not — the caller decides what that means) or the node on whose
// empty child slot key belongs.
func seek(root *Node, key int64) (parent, current *Node, dir direction) {
	parent = root
	dir = dirLeft
	current = root.loadLeft()

	for current != nil {
		c := cmp(key, current.key)
		if c == 0 {
			return parent, current, dir
		}

		var next *Node
		var d direction
		if c < 0 {
			next, d = current.loadLeft(), dirLeft
		} else {
			next, d = current.loadRight(), dirRight
		}
		if next == nil {
			return parent, current, dir
		}
		parent, current, dir = current, next, d
	}
	return parent, current, dir
}

// highestUnmarkedAncestor climbs parent links starting at n until it
// finds a node that is not itself marked (or reaches root). It is
// used by Insert when seek's current landed on a node that has since
// been logically removed.
func highestUnmarkedAncestor(root *Node, n *Node) *Node {
	for n != root && n.marked() {
		n = n.loadParent()
	}
	return n
}
