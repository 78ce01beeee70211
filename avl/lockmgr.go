package avl

// LockManager is a per-attempt stack of currently held node locks.
// Insert, Remove, and the rebalance walk each build one at the start
// of a locked attempt, push onto it as they lock nodes top-down, and
// unwind it with a deferred UnlockAll — mirroring the stack-discipline
// of PaVT's LockManager(), whose destructor walks the same stack to
// release everything a thread is still holding on any exit path,
// including a panicking one. That last part is why it exists here:
// infra.AssertInvariant panics while locks are held, and a deferred
// UnlockAll is what keeps that panic from leaving a node stuck locked
// (spec.md §4.2).
type LockManager struct {
	held []*Node
}

// NewLockManager returns an empty lock stack.
func NewLockManager() *LockManager {
	return &LockManager{}
}

// Lock blocks until n.mu is acquired, then records it.
func (lm *LockManager) Lock(n *Node) {
	n.mu.Lock()
	lm.held = append(lm.held, n)
}

// TryLock attempts n.mu without blocking. On success n is recorded
// exactly as Lock would; on failure the stack is untouched.
func (lm *LockManager) TryLock(n *Node) bool {
	if !n.mu.TryLock() {
		return false
	}
	lm.held = append(lm.held, n)
	return true
}

// Unlock releases the most recently locked node still held.
func (lm *LockManager) Unlock() {
	i := len(lm.held) - 1
	top := lm.held[i]
	lm.held = lm.held[:i]
	top.mu.Unlock()
}

// UnlockAll releases every node still held, in reverse acquisition
// order, and is safe to call on an already-empty stack — every
// caller defers it unconditionally so a mid-function panic (notably
// infra.AssertInvariant) can never leave a node locked.
func (lm *LockManager) UnlockAll() {
	for len(lm.held) > 0 {
		lm.Unlock()
	}
}
