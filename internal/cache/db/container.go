// Package db implements the ordered container backing a local cache.
// Entries live in a map for O(1) lookups and in a list that keeps their order:
// the front holds the oldest entries, the back the most recently inserted or moved ones.
package db

import (
	"container/list"
	"sync"
	"sync/atomic"
)

type entry[T any] struct {
	key uint64
	val T
}

// Container is an ordered concurrent map.
type Container[T any] struct {
	sync.RWMutex
	items map[uint64]*list.Element
	order *list.List
	len   atomic.Int64
}

func NewContainer[T any]() *Container[T] {
	return &Container[T]{
		items: make(map[uint64]*list.Element),
		order: list.New(),
	}
}

// Get does not change the order.
func (c *Container[T]) Get(key uint64) (val T, ok bool) {
	c.RLock()
	defer c.RUnlock()

	if el, found := c.items[key]; found {
		return el.Value.(*entry[T]).val, true
	}
	return val, false
}

// Set appends a new key to the back. An existing key keeps its position.
func (c *Container[T]) Set(key uint64, val T) (inserted bool) {
	c.Lock()
	defer c.Unlock()

	if el, found := c.items[key]; found {
		el.Value.(*entry[T]).val = val
		return false
	}
	c.items[key] = c.order.PushBack(&entry[T]{key: key, val: val})
	c.len.Add(1)
	return true
}

// MoveToEnd relocates an existing key to the back (toBack) or to the front.
func (c *Container[T]) MoveToEnd(key uint64, toBack bool) bool {
	c.Lock()
	defer c.Unlock()

	el, found := c.items[key]
	if !found {
		return false
	}
	if toBack {
		c.order.MoveToBack(el)
	} else {
		c.order.MoveToFront(el)
	}
	return true
}

// Slice returns up to count keys: from the front when fromBack is false, from the back otherwise.
func (c *Container[T]) Slice(count int, fromBack bool) []uint64 {
	if count <= 0 {
		return nil
	}

	c.RLock()
	defer c.RUnlock()

	keys := make([]uint64, 0, min(count, c.order.Len()))
	if fromBack {
		for el := c.order.Back(); el != nil && len(keys) < count; el = el.Prev() {
			keys = append(keys, el.Value.(*entry[T]).key)
		}
	} else {
		for el := c.order.Front(); el != nil && len(keys) < count; el = el.Next() {
			keys = append(keys, el.Value.(*entry[T]).key)
		}
	}
	return keys
}

func (c *Container[T]) Pop(key uint64) (val T, ok bool) {
	c.Lock()
	defer c.Unlock()

	el, found := c.items[key]
	if !found {
		return val, false
	}
	c.removeUnlocked(key, el)
	return el.Value.(*entry[T]).val, true
}

// Remove is a no-op for a missing key.
func (c *Container[T]) Remove(key uint64) bool {
	c.Lock()
	defer c.Unlock()

	el, found := c.items[key]
	if !found {
		return false
	}
	c.removeUnlocked(key, el)
	return true
}

// RemoveIf removes the key only when its current value matches pred.
func (c *Container[T]) RemoveIf(key uint64, pred func(T) bool) bool {
	c.Lock()
	defer c.Unlock()

	el, found := c.items[key]
	if !found || !pred(el.Value.(*entry[T]).val) {
		return false
	}
	c.removeUnlocked(key, el)
	return true
}

func (c *Container[T]) Clear() {
	c.Lock()
	c.items = make(map[uint64]*list.Element)
	c.order.Init()
	c.len.Store(0)
	c.Unlock()
}

func (c *Container[T]) Contains(key uint64) bool {
	c.RLock()
	_, found := c.items[key]
	c.RUnlock()
	return found
}

func (c *Container[T]) Len() int64 {
	return c.len.Load()
}

// Keys returns keys in order, front first.
func (c *Container[T]) Keys() []uint64 {
	c.RLock()
	defer c.RUnlock()

	keys := make([]uint64, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[T]).key)
	}
	return keys
}

// Values returns values in order, front first.
func (c *Container[T]) Values() []T {
	c.RLock()
	defer c.RUnlock()

	vals := make([]T, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		vals = append(vals, el.Value.(*entry[T]).val)
	}
	return vals
}

// Walk visits entries in order under the read lock until fn returns false.
func (c *Container[T]) Walk(fn func(key uint64, val T) bool) {
	c.RLock()
	defer c.RUnlock()

	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[T])
		if !fn(e.key, e.val) {
			return
		}
	}
}

// removeUnlocked - is unsafe without Lock due to it mutates the list.
func (c *Container[T]) removeUnlocked(key uint64, el *list.Element) {
	c.order.Remove(el)
	delete(c.items, key)
	c.len.Add(-1)
}
