// Package concurrency provides named locks for serializing work keyed by an
// identifier, such as one reconciliation pass per tenant.
package concurrency

import (
	"sync"
)

// LockManager handles named locks. Locks are created on first use and never
// discarded; the key space (business ids) is small and long-lived.
type LockManager struct {
	locks sync.Map
}

// NewLockManager creates a new LockManager
func NewLockManager() *LockManager {
	return &LockManager{}
}

// GetLock returns the mutex for the given key, creating it if needed.
func (lm *LockManager) GetLock(key string) *sync.Mutex {
	lock, _ := lm.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// TryLock attempts to acquire the named lock without blocking. It returns
// true when the lock was acquired; the caller must then release it with the
// returned mutex's Unlock.
func (lm *LockManager) TryLock(key string) (*sync.Mutex, bool) {
	lock := lm.GetLock(key)
	return lock, lock.TryLock()
}
