package cache

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-localcache/config"
	"github.com/Borislavv/go-localcache/internal/cache/db"
	"github.com/Borislavv/go-localcache/internal/cache/db/dump"
	"github.com/Borislavv/go-localcache/internal/cache/db/model"
	"github.com/Borislavv/go-localcache/internal/evictor"
	"github.com/Borislavv/go-localcache/internal/lifetimer"
	"github.com/Borislavv/go-localcache/internal/shared/locks"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

const selfCheckKey = "localcache:self-check"

// Entry is a live key/value pair of a cache.
type Entry[V any] struct {
	Key   uint64
	Value V
}

// Cache is a local cache of one tier. The tier decides which capabilities are wired:
// permanent caches only store, extended caches fold call inputs into keys and
// complex caches add bounds, expiration, statistics and persistence.
type Cache[V any] struct {
	name        string
	tier        config.Tier
	shardName   string
	opts        config.Options
	keys        KeyGenerator
	db          *db.Container[*model.Item[V]]
	clock       clock.Clock
	logger      zerolog.Logger
	counters    *counters
	evictor     evictor.Evictor
	lifetimer   lifetimer.Lifetimer
	persistLock locks.Lock
	dump        *dump.Dump[V]
	lastCleared atomic.Int64
	closed      atomic.Bool
}

// New builds a cache of the given tier. Options are resolved from explicit options first,
// then from the cache section of the config, then from the tier section and the built-in defaults.
func New[V any](ctx context.Context, name string, tier config.Tier, logger zerolog.Logger, opts ...Option) (*Cache[V], error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}

	s := newSettings(opts)
	resolved := s.cfg.Resolve(name, tier)
	s.overrides.ApplyTo(&resolved)
	if tier != config.TierComplex {
		resolved.Persistent = false
	}

	c := &Cache[V]{
		name:      name,
		tier:      tier,
		shardName: s.cfg.ShardName(),
		opts:      resolved,
		db:        db.NewContainer[*model.Item[V]](),
		clock:     s.clock,
		logger:    logger.With().Str("cache", name).Str("tier", string(tier)).Logger(),
		counters:  newCounters(),
		evictor:   evictor.NoOpEvictor{},
		lifetimer: lifetimer.NoOpLifetimer{},
	}
	c.lastCleared.Store(c.clock.Now().UnixNano())

	if err := c.validate(s); err != nil {
		return nil, fmt.Errorf("cache %q: %w", name, err)
	}

	c.keys = s.keys
	if c.keys == nil {
		switch tier {
		case config.TierPermanent:
			c.keys = SimpleKeys{}
		default:
			c.keys = ExtendedKeys{ConsiderUser: resolved.ConsiderUser}
		}
	}

	if resolved.Persistent {
		serializer, err := serializerOf[V](s)
		if err != nil {
			return nil, fmt.Errorf("cache %q: %w", name, err)
		}
		c.persistLock = s.persistenceLock()
		c.dump = dump.New[V](s.store, serializer, c.clock, c.logger)
	}

	if tier == config.TierComplex {
		if resolved.Limit != config.NoLimit {
			c.evictor = evictor.New(ctx, c.logger, s.clearanceLock(), c.sweep)
		}
		if s.cfg != nil {
			c.lifetimer = lifetimer.New(ctx, s.cfg.Lifetime, c.logger, c)
		}
	}

	return c, nil
}

func (c *Cache[V]) validate(s *settings) error {
	if c.tier != config.TierComplex {
		return nil
	}
	if c.opts.Limit != config.NoLimit && c.opts.Limit <= 0 {
		return ErrInvalidLimit
	}
	if c.opts.Expire <= 0 {
		return ErrInvalidExpire
	}
	if c.opts.ClearCount <= 0 {
		return ErrInvalidClearCount
	}
	if s.clearanceLock == nil {
		return ErrClearanceLockRequired
	}
	if c.opts.Persistent {
		if c.opts.ChunkSize <= 0 {
			return ErrInvalidChunkSize
		}
		if s.persistenceLock == nil {
			return ErrPersistenceLockRequired
		}
		if s.store == nil {
			return ErrStoreRequired
		}
	}
	return nil
}

func serializerOf[V any](s *settings) (model.Serializer[V], error) {
	if s.serializer != nil {
		serializer, ok := s.serializer.(model.Serializer[V])
		if !ok {
			return nil, ErrSerializerMismatch
		}
		return serializer, nil
	}
	if s.cfg != nil && s.cfg.Compression.Enabled() {
		return model.NewCompressedGobSerializer[V](s.cfg.Compression.Level), nil
	}
	return model.NewGobSerializer[V](), nil
}

func (c *Cache[V]) Name() string            { return c.name }
func (c *Cache[V]) Tier() config.Tier       { return c.tier }
func (c *Cache[V]) Options() config.Options { return c.opts }
func (c *Cache[V]) Count() int64            { return c.db.Len() }
func (c *Cache[V]) IsPersistent() bool      { return c.opts.Persistent }

// Set stores value under key. Per-call options only apply to complex caches.
// When the write overflows the limit a background sweep is requested, Set never waits for it.
func (c *Cache[V]) Set(key any, value V, opts ...SetOption) error {
	k, err := model.NewKey(key)
	if err != nil {
		return err
	}
	return c.set(k, value, opts...)
}

// Get returns the value of key or def when it is absent or expired.
func (c *Cache[V]) Get(key any, def V) (V, error) {
	v, ok, err := c.Lookup(key)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// Lookup reports whether key holds a live value.
func (c *Cache[V]) Lookup(key any) (value V, found bool, err error) {
	k, err := model.NewKey(key)
	if err != nil {
		return value, false, err
	}
	value, found = c.lookup(k)
	return value, found, nil
}

// Contains reports whether key holds a live value without touching statistics or order.
func (c *Cache[V]) Contains(key any) (bool, error) {
	k, err := model.NewKey(key)
	if err != nil {
		return false, err
	}
	item, ok := c.db.Get(k.Value())
	return ok && item.Key().IsTheSame(k) && !item.IsExpired(c.clock.Now()), nil
}

// Pop removes key and returns its value, or def when it is absent or expired.
func (c *Cache[V]) Pop(key any, def V) (V, error) {
	k, err := model.NewKey(key)
	if err != nil {
		return def, err
	}
	item, ok := c.db.Get(k.Value())
	if !ok || !item.Key().IsTheSame(k) {
		return def, nil
	}
	if !c.db.RemoveIf(k.Value(), func(it *model.Item[V]) bool { return it == item }) {
		return def, nil
	}
	if item.IsExpired(c.clock.Now()) {
		return def, nil
	}
	return item.Value(), nil
}

// Remove deletes key, absent keys are ignored.
func (c *Cache[V]) Remove(key any) error {
	k, err := model.NewKey(key)
	if err != nil {
		return err
	}
	c.db.RemoveIf(k.Value(), func(it *model.Item[V]) bool { return it.Key().IsTheSame(k) })
	return nil
}

// Clear drops every entry. Hit and miss counters survive.
func (c *Cache[V]) Clear() {
	c.db.Clear()
	c.lastCleared.Store(c.clock.Now().UnixNano())
}

func (c *Cache[V]) LastCleared() time.Time {
	return time.Unix(0, c.lastCleared.Load())
}

// Items returns live entries in container order.
func (c *Cache[V]) Items() []Entry[V] {
	now := c.clock.Now()
	entries := make([]Entry[V], 0, c.db.Len())
	c.db.Walk(func(key uint64, item *model.Item[V]) bool {
		if !item.IsExpired(now) {
			entries = append(entries, Entry[V]{Key: key, Value: item.Value()})
		}
		return true
	})
	return entries
}

func (c *Cache[V]) Keys() []uint64 {
	entries := c.Items()
	keys := make([]uint64, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys
}

func (c *Cache[V]) Values() []V {
	entries := c.Items()
	values := make([]V, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Value)
	}
	return values
}

// TrySet caches value under the key derived from call. Failures are logged, not returned.
func (c *Cache[V]) TrySet(ctx context.Context, call Call, value V, opts ...SetOption) {
	k, err := hashCall(ctx, c.keys, call)
	if err != nil {
		c.logger.Error().Err(err).Str("func", FuncName(call.Func)).Msg("cache key derivation failed")
		return
	}
	if err = c.set(k, value, opts...); err != nil {
		c.logger.Error().Err(err).Str("func", FuncName(call.Func)).Msg("cache write failed")
	}
}

// TryGet returns the value cached for call or def. Failures are logged, not returned.
func (c *Cache[V]) TryGet(ctx context.Context, call Call, def V) V {
	k, err := hashCall(ctx, c.keys, call)
	if err != nil {
		c.logger.Error().Err(err).Str("func", FuncName(call.Func)).Msg("cache key derivation failed")
		return def
	}
	if v, ok := c.lookup(k); ok {
		return v
	}
	return def
}

// IsFull reports whether the cache is over its limit and how many entries a sweep removes.
// It is evaluated after the write, so one overflowing write asks for exactly clear_count removals.
func (c *Cache[V]) IsFull() (full bool, excess int) {
	if c.tier != config.TierComplex || c.opts.Limit == config.NoLimit {
		return false, 0
	}
	count := int(c.db.Len())
	if count <= c.opts.Limit {
		return false, 0
	}
	return true, count - c.opts.Limit + c.opts.ClearCount - 1
}

// ForceEviction runs a sweep and waits for it.
func (c *Cache[V]) ForceEviction(timeout time.Duration) error {
	return c.evictor.ForceCall(timeout)
}

func (c *Cache[V]) IsCleaning() bool {
	return c.evictor.IsCleaning()
}

// PurgeExpired removes expired entries among the first sample entries.
func (c *Cache[V]) PurgeExpired(sample int) (scanned, removed int64) {
	now := c.clock.Now()
	var expired []uint64
	c.db.Walk(func(key uint64, item *model.Item[V]) bool {
		scanned++
		if item.IsExpired(now) {
			expired = append(expired, key)
		}
		return scanned < int64(sample)
	})
	for _, key := range expired {
		if c.db.RemoveIf(key, func(it *model.Item[V]) bool { return it.IsExpired(now) }) {
			removed++
		}
	}
	return scanned, removed
}

// SelfCheck writes, reads and removes a marker entry without touching statistics or triggering eviction.
func (c *Cache[V]) SelfCheck() error {
	k := model.NewStringKey(selfCheckKey)
	var zero V
	marker := model.NewItem(k, zero, 0, false, c.clock.Now())

	c.db.Set(k.Value(), marker)
	got, ok := c.db.Get(k.Value())
	removed := c.db.RemoveIf(k.Value(), func(it *model.Item[V]) bool { return it == marker })
	if !ok || got != marker || !removed {
		return fmt.Errorf("cache %q: %w", c.name, ErrSelfCheckFailed)
	}
	return nil
}

// Close stops background workers. Stored entries stay readable.
func (c *Cache[V]) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return multierr.Combine(c.lifetimer.Close(), c.evictor.Close())
}

func (c *Cache[V]) set(k *model.Key, value V, opts ...SetOption) error {
	var window time.Duration
	var refreshable bool
	if c.tier == config.TierComplex {
		window, refreshable = c.opts.Expire, c.opts.Refreshable

		s := &setSettings{}
		for _, opt := range opts {
			opt(s)
		}
		if s.expire != nil {
			if *s.expire <= 0 {
				return ErrInvalidExpire
			}
			window = *s.expire
		}
		if s.refreshable != nil {
			refreshable = *s.refreshable
		}
	}

	c.insert(model.NewItem(k, value, window, refreshable, c.clock.Now()))
	return nil
}

func (c *Cache[V]) insert(item *model.Item[V]) {
	c.db.Set(item.Key().Value(), item)
	if full, _ := c.IsFull(); full {
		c.evictor.Trigger()
	}
}

func (c *Cache[V]) lookup(k *model.Key) (value V, found bool) {
	item, ok := c.db.Get(k.Value())
	if !ok || !item.Key().IsTheSame(k) {
		c.miss()
		return value, false
	}

	now := c.clock.Now()
	if item.IsExpired(now) {
		c.miss()
		c.db.RemoveIf(k.Value(), func(it *model.Item[V]) bool { return it == item })
		return value, false
	}

	c.hit()
	if c.tier == config.TierComplex {
		if item.Refreshable() {
			item.Refresh(now)
		}
		if !c.opts.UseLIFO {
			c.db.MoveToEnd(k.Value(), true)
		}
	}
	return item.Value(), true
}

func (c *Cache[V]) hit() {
	if c.tier == config.TierComplex {
		c.counters.hits.Add(1)
	}
}

func (c *Cache[V]) miss() {
	if c.tier == config.TierComplex {
		c.counters.misses.Add(1)
	}
}

// sweep runs under the clearance lock on the evictor goroutine.
func (c *Cache[V]) sweep() (evicted int64) {
	for {
		full, excess := c.IsFull()
		if !full {
			return evicted
		}
		victims := c.db.Slice(excess, c.opts.UseLIFO)
		if len(victims) == 0 {
			return evicted
		}
		for _, key := range victims {
			if c.db.Remove(key) {
				evicted++
			}
		}
	}
}
