// Package localcache provides in-process caches of three tiers: permanent caches that
// never expire, extended caches keyed by call inputs and bounded, expiring complex caches
// with background eviction and chunked persistence to a durable store.
package localcache

import (
	"context"

	"github.com/Borislavv/go-localcache/config"
	"github.com/Borislavv/go-localcache/internal/cache"
	"github.com/Borislavv/go-localcache/internal/shared/locks"
	"github.com/rs/zerolog"
)

// NoLimit marks a complex cache as unbounded.
const NoLimit = config.NoLimit

type (
	Cache[V any] = cache.Cache[V]
	Entry[V any] = cache.Entry[V]
	Stats        = cache.Stats
	Call         = cache.Call
	KeyGenerator = cache.KeyGenerator
	Option       = cache.Option
	SetOption    = cache.SetOption
	Lock         = locks.Lock
	LockFactory  = locks.Factory
)

// Key strategies.
type (
	SimpleKeys   = cache.SimpleKeys
	ExtendedKeys = cache.ExtendedKeys
	TypedKeys    = cache.TypedKeys
)

// NewPermanent creates an unbounded, non-expiring cache keyed by what is computed.
func NewPermanent[V any](ctx context.Context, name string, logger zerolog.Logger, opts ...Option) (*Cache[V], error) {
	return cache.New[V](ctx, name, config.TierPermanent, logger, opts...)
}

// NewExtended creates an unbounded, non-expiring cache keyed by call inputs and the current component.
func NewExtended[V any](ctx context.Context, name string, logger zerolog.Logger, opts ...Option) (*Cache[V], error) {
	return cache.New[V](ctx, name, config.TierExtended, logger, opts...)
}

// NewComplex creates a bounded, expiring cache with statistics and optional persistence.
func NewComplex[V any](ctx context.Context, name string, logger zerolog.Logger, opts ...Option) (*Cache[V], error) {
	return cache.New[V](ctx, name, config.TierComplex, logger, opts...)
}

var (
	WithConfig          = cache.WithConfig
	WithClock           = cache.WithClock
	WithKeyGenerator    = cache.WithKeyGenerator
	WithClearanceLock   = cache.WithClearanceLock
	WithPersistenceLock = cache.WithPersistenceLock
	WithStore           = cache.WithStore
	WithSerializer      = cache.WithSerializer
	WithConsiderUser    = cache.WithConsiderUser
	WithLimit           = cache.WithLimit
	WithExpire          = cache.WithExpire
	WithRefreshable     = cache.WithRefreshable
	WithLIFO            = cache.WithLIFO
	WithClearCount      = cache.WithClearCount
	WithPersistence     = cache.WithPersistence
)

// Per-write options.
var (
	Expire      = cache.Expire
	Refreshable = cache.Refreshable
)

var (
	WithUser      = cache.WithUser
	WithComponent = cache.WithComponent
	NewMutex      = locks.NewMutex
	FuncName      = cache.FuncName
)
