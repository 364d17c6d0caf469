// Package memory is an in-process Store.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/Borislavv/go-localcache/store"
)

type Store struct {
	mu     sync.RWMutex
	rows   map[store.Scope][]store.Row
	chunks int
}

func New() *Store {
	return &Store{rows: make(map[store.Scope][]store.Row)}
}

func (s *Store) Insert(ctx context.Context, rows []store.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	scope, err := store.ScopeOf(rows)
	if err != nil || len(rows) == 0 {
		return err
	}

	s.mu.Lock()
	s.rows[scope] = append(s.rows[scope], cloneRows(rows)...)
	s.chunks++
	s.mu.Unlock()
	return nil
}

func (s *Store) Query(ctx context.Context, scope store.Scope, limit int) ([]store.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	rows := cloneRows(s.rows[scope])
	s.mu.RUnlock()

	return store.NewestFirst(rows, limit), nil
}

func (s *Store) Delete(ctx context.Context, scope store.Scope, keys []uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if kept := store.Without(s.rows[scope], keys); len(kept) > 0 {
		s.rows[scope] = kept
	} else {
		delete(s.rows, scope)
	}
	return nil
}

// Chunks returns how many inserts the store received.
func (s *Store) Chunks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunks
}

// Len returns the number of rows of a scope.
func (s *Store) Len(scope store.Scope) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows[scope])
}

func cloneRows(rows []store.Row) []store.Row {
	out := slices.Clone(rows)
	for i := range out {
		out[i].Item = slices.Clone(out[i].Item)
	}
	return out
}
