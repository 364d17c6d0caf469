package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Borislavv/go-localcache/config"
	"github.com/Borislavv/go-localcache/internal/cache/db/model"
	"github.com/Borislavv/go-localcache/internal/shared/locks"
	"github.com/Borislavv/go-localcache/store"
	"github.com/Borislavv/go-localcache/store/memory"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newCache[V any](t *testing.T, tier config.Tier, clk clock.Clock, opts ...Option) *Cache[V] {
	t.Helper()
	c, err := New[V](context.Background(), "test", tier, zerolog.Nop(), append([]Option{WithClock(clk)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// TestCache_EvictsLeastRecentlyUsed keeps recently read entries when the limit overflows.
func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newCache[int](t, config.TierComplex, clock.New(), WithLimit(3), WithClearCount(1))

	require.NoError(t, c.Set("a", 1))
	require.NoError(t, c.Set("b", 2))
	require.NoError(t, c.Set("c", 3))

	v, err := c.Get("a", 0)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	require.NoError(t, c.Set("d", 4))
	require.Eventually(t, func() bool { return c.Count() == 3 }, time.Second, time.Millisecond)

	for key, want := range map[string]bool{"a": true, "b": false, "c": true, "d": true} {
		ok, err := c.Contains(key)
		require.NoError(t, err)
		require.Equal(t, want, ok, key)
	}
}

// TestCache_IsFullAfterWrite asks for clear_count removals once the write that crossed the limit landed.
func TestCache_IsFullAfterWrite(t *testing.T) {
	held := locks.NewMutex()
	held.Lock()
	c := newCache[int](t, config.TierComplex, clock.New(), WithLimit(3), WithClearCount(2),
		WithClearanceLock(func() locks.Lock { return held }))
	t.Cleanup(held.Unlock)

	for i, key := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(key, i))
	}
	full, excess := c.IsFull()
	require.False(t, full)
	require.Zero(t, excess)

	require.NoError(t, c.Set("d", 4))
	full, excess = c.IsFull()
	require.True(t, full)
	require.Equal(t, 2, excess)

	require.NoError(t, c.Set("e", 5))
	_, excess = c.IsFull()
	require.Equal(t, 3, excess)
}

// TestCache_EvictsLastInserted drops the newest entries and ignores reads under LIFO.
func TestCache_EvictsLastInserted(t *testing.T) {
	c := newCache[int](t, config.TierComplex, clock.New(), WithLimit(3), WithClearCount(1), WithLIFO(true))

	require.NoError(t, c.Set("a", 1))
	require.NoError(t, c.Set("b", 2))
	require.NoError(t, c.Set("c", 3))
	_, err := c.Get("a", 0)
	require.NoError(t, err)

	require.NoError(t, c.Set("d", 4))
	require.NoError(t, c.ForceEviction(time.Second))

	require.Equal(t, int64(3), c.Count())
	ok, err := c.Contains("d")
	require.NoError(t, err)
	require.False(t, ok)
}

// TestCache_ClearCount removes clear_count entries per overflowing write.
func TestCache_ClearCount(t *testing.T) {
	c := newCache[int](t, config.TierComplex, clock.New(), WithLimit(10), WithClearCount(5))

	for i := 0; i < 11; i++ {
		require.NoError(t, c.Set(i, i))
	}
	require.NoError(t, c.ForceEviction(time.Second))

	require.Equal(t, int64(6), c.Count())
	st := c.Stats()
	require.Equal(t, int64(5), st.Evicted)
	require.Positive(t, st.Sweeps)
}

// TestCache_ConcurrentWritesConverge ends within the limit once a sweep ran.
func TestCache_ConcurrentWritesConverge(t *testing.T) {
	c := newCache[int](t, config.TierComplex, clock.New(), WithLimit(100), WithClearCount(10))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Go(func() {
			for i := 0; i < 500; i++ {
				_ = c.Set(g*1000+i, i)
			}
		})
	}
	wg.Wait()

	require.NoError(t, c.ForceEviction(time.Second))
	require.LessOrEqual(t, c.Count(), int64(100))
}

// TestCache_Expire returns the default once the window passed and drops the entry.
func TestCache_Expire(t *testing.T) {
	clk := clock.NewMock()
	c := newCache[string](t, config.TierComplex, clk, WithExpire(time.Millisecond))

	require.NoError(t, c.Set("a", "value"))
	v, err := c.Get("a", "default")
	require.NoError(t, err)
	require.Equal(t, "value", v)

	clk.Add(2 * time.Millisecond)
	v, err = c.Get("a", "default")
	require.NoError(t, err)
	require.Equal(t, "default", v)
	require.Zero(t, c.Count())
}

// TestCache_Refreshable extends the deadline on every hit.
func TestCache_Refreshable(t *testing.T) {
	clk := clock.NewMock()
	c := newCache[string](t, config.TierComplex, clk, WithExpire(10*time.Millisecond), WithRefreshable(true))

	require.NoError(t, c.Set("a", "value"))
	require.NoError(t, c.Set("b", "value", Refreshable(false)))

	for i := 0; i < 2; i++ {
		clk.Add(8 * time.Millisecond)
		_, ok, err := c.Lookup("a")
		require.NoError(t, err)
		require.True(t, ok)
	}

	_, ok, err := c.Lookup("b")
	require.NoError(t, err)
	require.False(t, ok)
}

// TestCache_PerCallExpire overrides the default window of one write.
func TestCache_PerCallExpire(t *testing.T) {
	clk := clock.NewMock()
	c := newCache[string](t, config.TierComplex, clk, WithExpire(time.Millisecond))

	require.NoError(t, c.Set("a", "value", Expire(time.Hour)))
	require.ErrorIs(t, c.Set("b", "value", Expire(0)), ErrInvalidExpire)

	clk.Add(time.Minute)
	ok, err := c.Contains("a")
	require.NoError(t, err)
	require.True(t, ok)
}

// TestCache_HitMiss counts lookups of a complex cache.
func TestCache_HitMiss(t *testing.T) {
	c := newCache[int](t, config.TierComplex, clock.NewMock())

	_, err := c.Get("a", 0)
	require.NoError(t, err)
	require.NoError(t, c.Set("a", 1))
	_, err = c.Get("a", 0)
	require.NoError(t, err)
	_, err = c.Get("a", 0)
	require.NoError(t, err)
	_, err = c.Get("b", 0)
	require.NoError(t, err)

	st := c.Stats()
	require.Equal(t, int64(2), st.Hit)
	require.Equal(t, int64(2), st.Miss)
	require.Equal(t, "50.0%", st.Map()["hit_ratio"])

	c.Clear()
	st = c.Stats()
	require.Equal(t, int64(2), st.Hit)
	require.Zero(t, st.Count)
}

// TestCache_Lookup tells a stored zero value from an absent key.
func TestCache_Lookup(t *testing.T) {
	c := newCache[int](t, config.TierPermanent, clock.NewMock())

	require.NoError(t, c.Set("zero", 0))

	v, ok, err := c.Lookup("zero")
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, v)

	_, ok, err = c.Lookup("absent")
	require.NoError(t, err)
	require.False(t, ok)
}

// TestCache_PopRemove deletes entries and ignores absent keys.
func TestCache_PopRemove(t *testing.T) {
	c := newCache[string](t, config.TierPermanent, clock.NewMock())

	require.NoError(t, c.Set("a", "1"))
	require.NoError(t, c.Set("b", "2"))

	v, err := c.Pop("a", "none")
	require.NoError(t, err)
	require.Equal(t, "1", v)

	v, err = c.Pop("a", "none")
	require.NoError(t, err)
	require.Equal(t, "none", v)

	require.NoError(t, c.Remove("b"))
	require.NoError(t, c.Remove("b"))
	require.Zero(t, c.Count())
}

// TestCache_UnhashableKey reports func keys on the strict API and swallows them on the try API.
func TestCache_UnhashableKey(t *testing.T) {
	c := newCache[int](t, config.TierExtended, clock.NewMock())

	require.ErrorIs(t, c.Set(func() {}, 1), ErrUnhashableKey)
	_, err := c.Get(make(chan int), 0)
	require.ErrorIs(t, err, ErrUnhashableKey)

	call := Call{Func: "load", Inputs: []any{func() {}}}
	c.TrySet(context.Background(), call, 1)
	require.Equal(t, 7, c.TryGet(context.Background(), call, 7))
	require.Zero(t, c.Count())
}

// TestCache_ConsiderUser separates entries of different users.
func TestCache_ConsiderUser(t *testing.T) {
	ctx := WithComponent(context.Background(), "orders")
	call := Call{Func: "load", Inputs: []any{42}}

	shared := newCache[int](t, config.TierExtended, clock.NewMock())
	shared.TrySet(WithUser(ctx, "alice"), call, 1)
	require.Equal(t, 1, shared.TryGet(WithUser(ctx, "bob"), call, 0))

	private := newCache[int](t, config.TierExtended, clock.NewMock(), WithConsiderUser(true))
	private.TrySet(WithUser(ctx, "alice"), call, 1)
	require.Equal(t, 0, private.TryGet(WithUser(ctx, "bob"), call, 0))
	require.Equal(t, 1, private.TryGet(WithUser(ctx, "alice"), call, 0))

	require.Equal(t, 0, private.TryGet(WithUser(WithComponent(context.Background(), "users"), "alice"), call, 0))
}

// TestCache_PermanentKeys share entries between calls with different inputs.
func TestCache_PermanentKeys(t *testing.T) {
	c := newCache[string](t, config.TierPermanent, clock.NewMock())

	c.TrySet(context.Background(), Call{Func: "settings", Inputs: []any{1}}, "loaded")
	require.Equal(t, "loaded", c.TryGet(context.Background(), Call{Func: "settings", Inputs: []any{2}}, ""))
}

// TestCache_Validation rejects each invalid configuration with its own error.
func TestCache_Validation(t *testing.T) {
	st := memory.New()
	cases := []struct {
		name string
		opts []Option
		err  error
	}{
		{"limit", []Option{WithLimit(0)}, ErrInvalidLimit},
		{"expire", []Option{WithExpire(0)}, ErrInvalidExpire},
		{"clear count", []Option{WithClearCount(0)}, ErrInvalidClearCount},
		{"chunk size", []Option{WithPersistence(0), WithStore(st)}, ErrInvalidChunkSize},
		{"store", []Option{WithPersistence(10)}, ErrStoreRequired},
		{"persistence lock", []Option{WithPersistence(10), WithStore(st), WithPersistenceLock(nil)}, ErrPersistenceLockRequired},
		{"clearance lock", []Option{WithClearanceLock(nil)}, ErrClearanceLockRequired},
		{"serializer", []Option{WithPersistence(10), WithStore(st), WithSerializer(model.NewGobSerializer[int]())}, ErrSerializerMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New[string](context.Background(), "test", config.TierComplex, zerolog.Nop(), tc.opts...)
			require.ErrorIs(t, err, tc.err)
		})
	}

	_, err := New[string](context.Background(), " ", config.TierComplex, zerolog.Nop())
	require.ErrorIs(t, err, ErrNameRequired)

	c, err := New[string](context.Background(), "unbounded", config.TierComplex, zerolog.Nop(), WithLimit(config.NoLimit))
	require.NoError(t, err)
	full, excess := c.IsFull()
	require.False(t, full)
	require.Zero(t, excess)
	require.NoError(t, c.Close())
}

// TestCache_ResolvesConfig prefers explicit options over the cache section over the tier section.
func TestCache_ResolvesConfig(t *testing.T) {
	limit, tierLimit, expire := 5, 50, time.Minute
	cfg := &config.Caching{
		General: config.GeneralCfg{ShardName: "eu"},
		Complex: &config.CacheCfg{Limit: &tierLimit, Expire: &expire},
		Caches:  map[string]*config.CacheCfg{"test": {Limit: &limit}},
	}

	c := newCache[int](t, config.TierComplex, clock.NewMock(), WithConfig(cfg))
	require.Equal(t, 5, c.Options().Limit)
	require.Equal(t, time.Minute, c.Options().Expire)
	require.Equal(t, config.DefaultClearCount, c.Options().ClearCount)
	require.Equal(t, "eu", c.shardName)

	c = newCache[int](t, config.TierComplex, clock.NewMock(), WithConfig(cfg), WithLimit(7))
	require.Equal(t, 7, c.Options().Limit)
}

// TestCache_Stats exposes the keys tracked by each tier.
func TestCache_Stats(t *testing.T) {
	clk := clock.NewMock()
	clk.Add(time.Hour)

	permanent := newCache[int](t, config.TierPermanent, clk).Stats().Map()
	require.Len(t, permanent, 3)
	require.Equal(t, false, permanent["persistent"])

	extended := newCache[int](t, config.TierExtended, clk).Stats().Map()
	require.Len(t, extended, 4)
	require.Contains(t, extended, "consider_user")

	c := newCache[int](t, config.TierComplex, clk, WithExpire(2*time.Second))
	complexStats := c.Stats().Map()
	require.Equal(t, int64(2000), complexStats["expire"])
	require.Equal(t, "0.0%", complexStats["hit_ratio"])
	require.Equal(t, config.DefaultLimit, complexStats["limit"])

	clk.Add(time.Minute)
	c.Clear()
	require.True(t, clk.Now().Equal(c.Stats().LastClearedTime))
}

// TestCache_PurgeExpired removes expired entries among the sampled ones.
func TestCache_PurgeExpired(t *testing.T) {
	clk := clock.NewMock()
	c := newCache[int](t, config.TierComplex, clk, WithExpire(time.Millisecond))

	require.NoError(t, c.Set("a", 1))
	require.NoError(t, c.Set("b", 2))
	require.NoError(t, c.Set("c", 3))
	clk.Add(2 * time.Millisecond)

	scanned, removed := c.PurgeExpired(2)
	require.Equal(t, int64(2), scanned)
	require.Equal(t, int64(2), removed)
	require.Equal(t, int64(1), c.Count())
}

// TestCache_LifetimeJanitor purges expired entries in background when configured.
func TestCache_LifetimeJanitor(t *testing.T) {
	clk := clock.NewMock()
	cfg := &config.Caching{Lifetime: &config.LifetimeCfg{Rate: 100, Sample: 16}}
	c := newCache[int](t, config.TierComplex, clk, WithConfig(cfg), WithExpire(time.Millisecond))

	for i := 0; i < 40; i++ {
		require.NoError(t, c.Set(i, i))
	}
	clk.Add(2 * time.Millisecond)

	require.Eventually(t, func() bool { return c.Count() == 0 }, 2*time.Second, 5*time.Millisecond)
}

// TestCache_PersistLoad restores entries with their remaining window and consumes the rows.
func TestCache_PersistLoad(t *testing.T) {
	clk := clock.NewMock()
	st := memory.New()
	c := newCache[string](t, config.TierComplex, clk, WithExpire(time.Minute), WithPersistence(2), WithStore(st))

	require.NoError(t, c.Set("a", "1"))
	require.NoError(t, c.Set("b", "2"))
	require.NoError(t, c.Set("c", "3"))
	require.NoError(t, c.Set("short", "4", Expire(time.Second)))
	clk.Add(2 * time.Second)

	written, err := c.Persist(context.Background(), "v1", true)
	require.NoError(t, err)
	require.Equal(t, 3, written)
	require.Zero(t, c.Count())
	require.Equal(t, 2, st.Chunks())

	restored, err := c.Load(context.Background(), "v1")
	require.NoError(t, err)
	require.Equal(t, 3, restored)
	require.Equal(t, []string{"1", "2", "3"}, c.Values())
	require.Zero(t, st.Len(store.Scope{CacheName: "test", ShardName: config.DefaultShardName, Version: "v1"}))

	clk.Add(57 * time.Second)
	ok, err := c.Contains("a")
	require.NoError(t, err)
	require.True(t, ok)
	clk.Add(2 * time.Second)
	ok, err = c.Contains("a")
	require.NoError(t, err)
	require.False(t, ok)
}

// TestCache_LoadRespectsLimit reads the newest rows of a bounded cache only and drops the rest.
func TestCache_LoadRespectsLimit(t *testing.T) {
	st := memory.New()
	big := newCache[int](t, config.TierComplex, clock.NewMock(), WithPersistence(10), WithStore(st))
	for i := 0; i < 5; i++ {
		require.NoError(t, big.Set(i, i))
	}
	_, err := big.Persist(context.Background(), "v1", false)
	require.NoError(t, err)

	small := newCache[int](t, config.TierComplex, clock.NewMock(), WithPersistence(10), WithStore(st), WithLimit(2))
	restored, err := small.Load(context.Background(), "v1")
	require.NoError(t, err)
	require.Equal(t, 2, restored)
	require.Equal(t, []int{3, 4}, small.Values())
	require.Zero(t, st.Len(store.Scope{CacheName: "test", ShardName: config.DefaultShardName, Version: "v1"}))

	small.Clear()
	restored, err = small.Load(context.Background(), "v1")
	require.NoError(t, err)
	require.Zero(t, restored)
	require.Empty(t, small.Values())
}

// TestCache_PersistenceGuards fails fast before touching the store.
func TestCache_PersistenceGuards(t *testing.T) {
	c := newCache[int](t, config.TierExtended, clock.NewMock(), WithPersistence(10), WithStore(memory.New()))
	_, err := c.Persist(context.Background(), "v1", false)
	require.ErrorIs(t, err, ErrNotPersistent)
	require.False(t, c.Stats().Persistent)

	p := newCache[int](t, config.TierComplex, clock.NewMock(), WithPersistence(10), WithStore(memory.New()))
	_, err = p.Load(context.Background(), "")
	require.ErrorIs(t, err, ErrVersionRequired)

	require.NoError(t, p.Set("a", 1))
	written, err := p.Persist(context.Background(), "   ", false)
	require.ErrorIs(t, err, ErrVersionRequired)
	require.Zero(t, written)

	require.NoError(t, p.Close())
	_, err = p.Persist(context.Background(), "v1", false)
	require.ErrorIs(t, err, ErrClosed)
}

// TestCache_PersistenceLock serializes persist with the lock given by the factory.
func TestCache_PersistenceLock(t *testing.T) {
	lock := locks.NewMutex()
	c := newCache[int](t, config.TierComplex, clock.NewMock(),
		WithPersistence(10), WithStore(memory.New()), WithPersistenceLock(func() locks.Lock { return lock }))

	lock.Lock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Persist(context.Background(), "v1", false)
	}()

	select {
	case <-done:
		t.Fatal("persist ran while the lock was held")
	case <-time.After(20 * time.Millisecond):
	}
	lock.Unlock()
	<-done
}

// TestCache_SelfCheck leaves no trace in entries or statistics.
func TestCache_SelfCheck(t *testing.T) {
	c := newCache[int](t, config.TierComplex, clock.NewMock())
	require.NoError(t, c.Set("a", 1))

	require.NoError(t, c.SelfCheck())

	st := c.Stats()
	require.Equal(t, int64(1), st.Count)
	require.Zero(t, st.Hit+st.Miss)
}
