// Package locks holds the lock abstraction used by cache clearance and persistence.
package locks

import "sync"

// Lock is a mutual exclusion lock that can be tried without blocking.
type Lock interface {
	Lock()
	Unlock()
	TryLock() bool
}

// Factory builds a new lock, one per cache and purpose.
type Factory func() Lock

// NewMutex is the default Factory.
func NewMutex() Lock {
	return &sync.Mutex{}
}

// IsHeld reports whether the lock is currently held by someone.
func IsHeld(l Lock) bool {
	if l.TryLock() {
		l.Unlock()
		return false
	}
	return true
}
