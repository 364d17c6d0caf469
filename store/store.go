// Package store defines the durable key/value store persistent caches write their items to.
package store

import (
	"context"
	"errors"
	"slices"
	"time"
)

var (
	ErrCorrupted  = errors.New("corrupted rows")
	ErrEmptyScope = errors.New("scope cache name is required")
)

// Scope addresses the rows of one cache of one shard at one version.
type Scope struct {
	CacheName string
	ShardName string
	Version   string
}

func (s Scope) Validate() error {
	if s.CacheName == "" {
		return ErrEmptyScope
	}
	return nil
}

// Row is one persisted cache item.
type Row struct {
	CacheName string
	ShardName string
	Version   string
	Key       uint64
	Item      []byte
	CreatedOn time.Time
}

func (r Row) Scope() Scope {
	return Scope{CacheName: r.CacheName, ShardName: r.ShardName, Version: r.Version}
}

// Store is a durable row store.
//   - Insert writes one chunk and returns once it is durable. All rows must share a scope.
//   - Query returns rows of a scope newest first, at most limit rows when limit > 0.
//   - Delete removes the given keys of a scope, every row of the scope when keys is nil.
type Store interface {
	Insert(ctx context.Context, rows []Row) error
	Query(ctx context.Context, scope Scope, limit int) ([]Row, error)
	Delete(ctx context.Context, scope Scope, keys []uint64) error
}

// ScopeOf validates that rows share one scope and returns it.
func ScopeOf(rows []Row) (Scope, error) {
	if len(rows) == 0 {
		return Scope{}, nil
	}
	scope := rows[0].Scope()
	if err := scope.Validate(); err != nil {
		return Scope{}, err
	}
	for _, r := range rows[1:] {
		if r.Scope() != scope {
			return Scope{}, errors.New("rows of one insert must share a scope")
		}
	}
	return scope, nil
}

// NewestFirst sorts rows by creation time descending and caps them at limit when limit > 0.
func NewestFirst(rows []Row, limit int) []Row {
	slices.SortStableFunc(rows, func(a, b Row) int {
		return b.CreatedOn.Compare(a.CreatedOn)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// Without drops rows whose key is in keys, nil keys drops everything.
func Without(rows []Row, keys []uint64) []Row {
	if keys == nil {
		return rows[:0]
	}
	drop := make(map[uint64]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	return slices.DeleteFunc(rows, func(r Row) bool {
		_, found := drop[r.Key]
		return found
	})
}
