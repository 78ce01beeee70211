package avl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockManagerLIFO(t *testing.T) {
	a := newNode(1, nil, spinMutexStrategy)
	b := newNode(2, nil, spinMutexStrategy)

	lm := NewLockManager()
	lm.Lock(a)
	lm.Lock(b)
	require.Equal(t, []*Node{a, b}, lm.held)

	// b was locked last, so it must unlock first; a spin mutex's Unlock
	// sets its word back to unlocked, which TryLock can observe.
	lm.Unlock()
	require.True(t, b.mu.TryLock())
	b.mu.Unlock()
	require.False(t, a.mu.TryLock()) // a is still held by lm

	lm.Unlock()
	require.Empty(t, lm.held)
}

func TestLockManagerTryLockFailureLeavesStackUntouched(t *testing.T) {
	a := newNode(1, nil, spinMutexStrategy)
	a.mu.Lock() // simulate another holder

	lm := NewLockManager()
	require.False(t, lm.TryLock(a))
	require.Empty(t, lm.held)

	a.mu.Unlock()
	require.True(t, lm.TryLock(a))
	require.Equal(t, []*Node{a}, lm.held)
	lm.UnlockAll()
}

func TestLockManagerUnlockAllIsIdempotentOnEmptyStack(t *testing.T) {
	lm := NewLockManager()
	lm.UnlockAll()
	lm.UnlockAll()
}

func TestLockManagerUnlockAllReleasesEveryNode(t *testing.T) {
	nodes := []*Node{
		newNode(1, nil, nativeMutexStrategy),
		newNode(2, nil, nativeMutexStrategy),
		newNode(3, nil, nativeMutexStrategy),
	}

	lm := NewLockManager()
	for _, n := range nodes {
		lm.Lock(n)
	}
	lm.UnlockAll()

	for _, n := range nodes {
		require.True(t, n.mu.TryLock(), "node %d should have been released", n.key)
		n.mu.Unlock()
	}
}
