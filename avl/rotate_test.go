package avl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fixture builds parent -(dirLeft)-> node -(dirRight)-> child, with
// node also given a left leaf, ready for a left rotation. Heights are
// set to their pre-rotation values; rotateLeft/rotateRight never read
// node's pre-rotation height, only its children's.
func leftRotationFixture() (parent, node, child *Node) {
	parent = newSentinel(0, spinMutexStrategy)
	node = newNode(10, parent, spinMutexStrategy)
	parent.storeLeft(node)

	left := newNode(5, node, spinMutexStrategy)
	node.storeLeft(left)
	left.storeHeight(0)

	child = newNode(20, node, spinMutexStrategy)
	node.storeRight(child)

	m := newNode(15, child, spinMutexStrategy)
	child.storeLeft(m)
	m.storeHeight(0)

	r := newNode(25, child, spinMutexStrategy)
	child.storeRight(r)
	r.storeHeight(0)

	node.storeHeight(2)
	child.storeHeight(1)
	return parent, node, child
}

func TestRotateLeft(t *testing.T) {
	parent, node, child := leftRotationFixture()
	m := child.loadLeft() // the 15 node, child's former left child

	newRoot := rotateLeft(parent, node, child)

	require.Same(t, child, newRoot)
	require.Same(t, child, parent.loadLeft())
	require.Same(t, parent, child.loadParent())

	require.Same(t, node, child.loadLeft())
	require.Same(t, child, node.loadParent())

	require.Same(t, m, node.loadRight())
	require.Same(t, node, m.loadParent())

	require.Equal(t, int32(1), node.loadHeight())  // max(h(5)=0, h(15)=0)+1
	require.Equal(t, int32(2), child.loadHeight()) // max(h(node)=1, h(25)=0)+1
}

func TestRotateRight(t *testing.T) {
	// Mirror image of the left-rotation fixture.
	parent := newSentinel(0, spinMutexStrategy)
	node := newNode(20, parent, spinMutexStrategy)
	parent.storeLeft(node)

	child := newNode(10, node, spinMutexStrategy)
	node.storeLeft(child)

	l := newNode(5, child, spinMutexStrategy)
	child.storeLeft(l)
	r := newNode(15, child, spinMutexStrategy)
	child.storeRight(r)

	right := newNode(25, node, spinMutexStrategy)
	node.storeRight(right)

	newRoot := rotateRight(parent, node, child)

	require.Same(t, child, newRoot)
	require.Same(t, child, parent.loadLeft())
	require.Same(t, parent, child.loadParent())

	require.Same(t, node, child.loadRight())
	require.Same(t, child, node.loadParent())

	require.Same(t, r, node.loadLeft())
	require.Same(t, node, r.loadParent())

	require.Same(t, l, child.loadLeft())
}

func TestRotateLeftRight(t *testing.T) {
	// node is left-heavy; its left child is right-heavy. Keys chosen
	// so the grandchild (20) ends up the new subtree root, same shape
	// S2 exercises end-to-end through Insert.
	parent := newSentinel(0, spinMutexStrategy)
	node := newNode(30, parent, spinMutexStrategy)
	parent.storeLeft(node)

	child := newNode(10, node, spinMutexStrategy)
	node.storeLeft(child)

	grandchild := newNode(20, child, spinMutexStrategy)
	child.storeRight(grandchild)

	newRoot := rotateLeftRight(parent, node, child, grandchild)

	require.Same(t, grandchild, newRoot)
	require.Same(t, grandchild, parent.loadLeft())
	require.Same(t, child, grandchild.loadLeft())
	require.Same(t, node, grandchild.loadRight())
	require.Same(t, grandchild, child.loadParent())
	require.Same(t, grandchild, node.loadParent())
}

func TestRotateRightLeft(t *testing.T) {
	parent := newSentinel(0, spinMutexStrategy)
	node := newNode(10, parent, spinMutexStrategy)
	parent.storeLeft(node)

	child := newNode(30, node, spinMutexStrategy)
	node.storeRight(child)

	grandchild := newNode(20, child, spinMutexStrategy)
	child.storeLeft(grandchild)

	newRoot := rotateRightLeft(parent, node, child, grandchild)

	require.Same(t, grandchild, newRoot)
	require.Same(t, grandchild, parent.loadLeft())
	require.Same(t, node, grandchild.loadLeft())
	require.Same(t, child, grandchild.loadRight())
}
