package avl

import (
	"sync/atomic"
	"unsafe"

	"github.com/benz9527/xavl/lib/bits"
)

// nodeMarked is the sole state flag a Node carries beyond its links.
// It transitions false -> true exactly once, at the instant a Remove
// logically deletes the node (Invariant 3).
const nodeMarked uint32 = 1 << 0

// direction names which child slot a node occupies relative to its
// parent, or which child slot of a node a key would descend into.
type direction int8

const (
	dirLeft direction = iota
	dirRight
)

func (d direction) other() direction {
	if d == dirLeft {
		return dirRight
	}
	return dirLeft
}

// Node is the tree's storage cell. key is immutable after creation;
// every other field is only safe to read without holding mu when
// explicitly noted. left, right, and parent are read lock-free by
// Seek, Contains, and the rebalancer's upward climb, so they are
// always accessed atomically even though most writers also hold a
// lock — the mutex buys mutual exclusion between writers, not
// visibility, and Go's race detector has no notion of "this pointer
// happens to be protected by that mutex most of the time."
type Node struct {
	key    int64
	height int32

	left   unsafe.Pointer // *Node
	right  unsafe.Pointer // *Node
	parent unsafe.Pointer // *Node

	flags bits.Flags
	mu    nodeMutex
}

func newNode(key int64, parent *Node, strategy mutexStrategy) *Node {
	n := &Node{height: 0, key: key, mu: newNodeMutex(strategy)}
	n.storeParent(parent)
	return n
}

// newSentinel builds the tree's permanent root sentinel, the one
// boundary node a Tree has. It is never marked, never rebalanced, and
// its height plays no part in any balance-factor computation.
func newSentinel(key int64, strategy mutexStrategy) *Node {
	return &Node{height: -1, key: key, mu: newNodeMutex(strategy)}
}

// Key returns the node's immutable key.
func (n *Node) Key() int64 { return n.key }

func (n *Node) loadHeight() int32    { return atomic.LoadInt32(&n.height) }
func (n *Node) storeHeight(h int32)  { atomic.StoreInt32(&n.height, h) }

func (n *Node) loadLeft() *Node  { return (*Node)(atomic.LoadPointer(&n.left)) }
func (n *Node) storeLeft(c *Node) { atomic.StorePointer(&n.left, unsafe.Pointer(c)) }

func (n *Node) loadRight() *Node  { return (*Node)(atomic.LoadPointer(&n.right)) }
func (n *Node) storeRight(c *Node) { atomic.StorePointer(&n.right, unsafe.Pointer(c)) }

func (n *Node) loadParent() *Node   { return (*Node)(atomic.LoadPointer(&n.parent)) }
func (n *Node) storeParent(p *Node) { atomic.StorePointer(&n.parent, unsafe.Pointer(p)) }

// child returns the node's child in dir.
func (n *Node) child(dir direction) *Node {
	if dir == dirLeft {
		return n.loadLeft()
	}
	return n.loadRight()
}

// setChild sets the node's child in dir.
func (n *Node) setChild(dir direction, c *Node) {
	if dir == dirLeft {
		n.storeLeft(c)
	} else {
		n.storeRight(c)
	}
}

// mark logically deletes the node. Monotone: the caller must already
// hold n.mu and must not call it twice for the same node.
func (n *Node) mark() { n.flags.Set(nodeMarked) }

// marked reports whether the node has been logically deleted. Safe to
// read with or without n.mu held — this is the property Contains
// relies on for its lock-free linearization point (spec.md §4.6/§5).
func (n *Node) marked() bool { return n.flags.IsSet(nodeMarked) }

// height treats a nil child as height -1, matching the spec's
// convention for a null subtree.
func height(n *Node) int32 {
	if n == nil {
		return -1
	}
	return n.loadHeight()
}

// balanceFactor is height(left) - height(right).
func balanceFactor(n *Node) int32 {
	return height(n.loadLeft()) - height(n.loadRight())
}
