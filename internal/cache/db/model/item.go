package model

import (
	"sync/atomic"
	"time"
)

// Item is a cached value with its key and expiration state.
// A zero window means the item never expires.
type Item[V any] struct {
	key         *Key
	value       V
	window      int64 // nanoseconds
	expireAt    atomic.Int64
	refreshable bool
}

func NewItem[V any](key *Key, value V, window time.Duration, refreshable bool, now time.Time) *Item[V] {
	it := &Item[V]{
		key:         key,
		value:       value,
		window:      window.Nanoseconds(),
		refreshable: refreshable,
	}
	if it.window > 0 {
		it.expireAt.Store(now.UnixNano() + it.window)
	}
	return it
}

func (i *Item[V]) Key() *Key {
	if i == nil {
		return nil
	}
	return i.key
}

func (i *Item[V]) Value() V                { return i.value }
func (i *Item[V]) Window() time.Duration   { return time.Duration(i.window) }
func (i *Item[V]) Refreshable() bool       { return i.refreshable }
func (i *Item[V]) ExpireAt() time.Time     { return time.Unix(0, i.expireAt.Load()) }
func (i *Item[V]) setExpireAt(nanos int64) { i.expireAt.Store(nanos) }

// IsExpired - checks that now is past the deadline.
func (i *Item[V]) IsExpired(now time.Time) bool {
	if i == nil || i.window == 0 {
		return false
	}
	return now.UnixNano() > i.expireAt.Load()
}

// Refresh moves the deadline to now+window. The deadline never moves backwards.
func (i *Item[V]) Refresh(now time.Time) {
	if i == nil || !i.refreshable || i.window == 0 {
		return
	}
	next := now.UnixNano() + i.window
	for {
		cur := i.expireAt.Load()
		if next <= cur || i.expireAt.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Remaining returns the part of the window left before expiration, zero for non-expiring items.
func (i *Item[V]) Remaining(now time.Time) time.Duration {
	if i.window == 0 {
		return 0
	}
	left := i.expireAt.Load() - now.UnixNano()
	if left < 0 {
		return 0
	}
	return time.Duration(left)
}
