package cache

import (
	"time"

	"github.com/Borislavv/go-localcache/config"
	"github.com/Borislavv/go-localcache/internal/shared/locks"
	"github.com/Borislavv/go-localcache/store"
	"github.com/benbjohnson/clock"
)

// Option customizes a cache at construction. Explicit options win over configuration sections.
type Option func(*settings)

type settings struct {
	cfg             *config.Caching
	overrides       config.CacheCfg
	clock           clock.Clock
	keys            KeyGenerator
	clearanceLock   locks.Factory
	persistenceLock locks.Factory
	store           store.Store
	serializer      any
}

func newSettings(opts []Option) *settings {
	s := &settings{
		clock:           clock.New(),
		clearanceLock:   locks.NewMutex,
		persistenceLock: locks.NewMutex,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithConfig(cfg *config.Caching) Option {
	return func(s *settings) { s.cfg = cfg }
}

func WithClock(clk clock.Clock) Option {
	return func(s *settings) { s.clock = clk }
}

func WithKeyGenerator(keys KeyGenerator) Option {
	return func(s *settings) { s.keys = keys }
}

func WithClearanceLock(factory locks.Factory) Option {
	return func(s *settings) { s.clearanceLock = factory }
}

func WithPersistenceLock(factory locks.Factory) Option {
	return func(s *settings) { s.persistenceLock = factory }
}

func WithStore(st store.Store) Option {
	return func(s *settings) { s.store = st }
}

// WithSerializer sets the item codec, it must be a model.Serializer of the cache value type.
func WithSerializer(serializer any) Option {
	return func(s *settings) { s.serializer = serializer }
}

func WithConsiderUser(v bool) Option {
	return func(s *settings) { s.overrides.ConsiderUser = &v }
}

func WithLimit(limit int) Option {
	return func(s *settings) { s.overrides.Limit = &limit }
}

func WithExpire(expire time.Duration) Option {
	return func(s *settings) { s.overrides.Expire = &expire }
}

func WithRefreshable(v bool) Option {
	return func(s *settings) { s.overrides.Refreshable = &v }
}

func WithLIFO(v bool) Option {
	return func(s *settings) { s.overrides.UseLIFO = &v }
}

func WithClearCount(n int) Option {
	return func(s *settings) { s.overrides.ClearCount = &n }
}

func WithPersistence(chunkSize int) Option {
	return func(s *settings) {
		persistent := true
		s.overrides.Persistent = &persistent
		s.overrides.ChunkSize = &chunkSize
	}
}

// SetOption overrides cache defaults for one write.
type SetOption func(*setSettings)

type setSettings struct {
	expire      *time.Duration
	refreshable *bool
}

func Expire(expire time.Duration) SetOption {
	return func(s *setSettings) { s.expire = &expire }
}

func Refreshable(v bool) SetOption {
	return func(s *setSettings) { s.refreshable = &v }
}
