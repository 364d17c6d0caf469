package localcache

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Borislavv/go-localcache/config"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"
)

// Handler is what the registry needs from a cache, *Cache[V] implements it for any V.
type Handler interface {
	Name() string
	Tier() config.Tier
	Stats() Stats
	Clear()
	IsPersistent() bool
	Persist(ctx context.Context, version string, clear bool) (int, error)
	Load(ctx context.Context, version string) (int, error)
	SelfCheck() error
	Close() error
}

// Report is the outcome of inspecting one cache.
type Report struct {
	Name  string
	Stats map[string]any
	Err   error
}

// Registry tracks the caches of a process by name.
type Registry struct {
	mu          sync.RWMutex
	caches      map[string]Handler
	base        zerolog.Logger
	logger      zerolog.Logger
	concurrency int
}

func NewRegistry(cfg *config.Caching, logger zerolog.Logger) *Registry {
	concurrency := config.DefaultStoreConcurrency
	if cfg != nil && cfg.Store.Enabled() && cfg.Store.Concurrency > 0 {
		concurrency = cfg.Store.Concurrency
	}
	return &Registry{
		caches:      make(map[string]Handler),
		base:        logger,
		logger:      logger.With().Str("component", "registry").Logger(),
		concurrency: concurrency,
	}
}

// Register adds h. A cache with the same name is replaced only when replace is set,
// the replaced cache is not closed.
func (r *Registry) Register(h Handler, replace bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.caches[h.Name()]; ok && !replace {
		return fmt.Errorf("%q: %w", h.Name(), ErrDuplicateCache)
	}
	r.caches[h.Name()] = h
	r.logger.Debug().Str("cache", h.Name()).Str("tier", string(h.Tier())).Msg("cache registered")
	return nil
}

// Unregister removes a cache without closing it.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.caches[name]
	delete(r.caches, name)
	return ok
}

func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.caches[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrCacheNotFound)
	}
	return h, nil
}

// Names returns registered names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) Stats(name string) (Stats, error) {
	h, err := r.Get(name)
	if err != nil {
		return Stats{}, err
	}
	return h.Stats(), nil
}

// AllStats returns stats of every cache ordered by name.
func (r *Registry) AllStats() []Stats {
	handlers := r.handlers()
	stats := make([]Stats, 0, len(handlers))
	for _, h := range handlers {
		stats = append(stats, h.Stats())
	}
	return stats
}

func (r *Registry) Clear(name string) error {
	h, err := r.Get(name)
	if err != nil {
		return err
	}
	h.Clear()
	return nil
}

func (r *Registry) ClearAll() {
	for _, h := range r.handlers() {
		h.Clear()
	}
}

// PersistAll persists every persistent cache under version, a bounded number at once.
// It returns written rows per cache and every failure joined.
func (r *Registry) PersistAll(ctx context.Context, version string, clear bool) (map[string]int, error) {
	return r.forPersistent(ctx, func(ctx context.Context, h Handler) (int, error) {
		return h.Persist(ctx, version, clear)
	})
}

// LoadAll restores every persistent cache from version. It returns restored entries per cache.
func (r *Registry) LoadAll(ctx context.Context, version string) (map[string]int, error) {
	return r.forPersistent(ctx, func(ctx context.Context, h Handler) (int, error) {
		return h.Load(ctx, version)
	})
}

type persistResult struct {
	name string
	n    int
}

func (r *Registry) forPersistent(ctx context.Context, fn func(ctx context.Context, h Handler) (int, error)) (map[string]int, error) {
	p := pool.NewWithResults[persistResult]().WithErrors().WithContext(ctx).WithMaxGoroutines(r.concurrency)
	for _, h := range r.handlers() {
		if !h.IsPersistent() {
			continue
		}
		p.Go(func(ctx context.Context) (persistResult, error) {
			n, err := fn(ctx, h)
			if err != nil {
				r.logger.Error().Err(err).Str("cache", h.Name()).Msg("persistence failed")
				return persistResult{}, err
			}
			return persistResult{name: h.Name(), n: n}, nil
		})
	}

	results, err := p.Wait()
	counts := make(map[string]int, len(results))
	for _, res := range results {
		counts[res.name] = res.n
	}
	return counts, err
}

// Inspect reports stats of every cache and runs its self check. ok is false when any check failed.
func (r *Registry) Inspect(ctx context.Context) (reports []Report, ok bool) {
	ok = true
	for _, h := range r.handlers() {
		if err := ctx.Err(); err != nil {
			return reports, false
		}
		rep := Report{Name: h.Name(), Err: h.SelfCheck()}
		rep.Stats = h.Stats().Map()
		if rep.Err != nil {
			ok = false
			r.logger.Warn().Err(rep.Err).Str("cache", h.Name()).Msg("inspection failed")
		}
		reports = append(reports, rep)
	}
	return reports, ok
}

// Close closes every cache and empties the registry.
func (r *Registry) Close() error {
	handlers := r.handlers()

	r.mu.Lock()
	r.caches = make(map[string]Handler)
	r.mu.Unlock()

	var err error
	for _, h := range handlers {
		err = multierr.Append(err, h.Close())
	}
	return err
}

func (r *Registry) handlers() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlers := make([]Handler, 0, len(r.caches))
	for _, h := range r.caches {
		handlers = append(handlers, h)
	}
	slices.SortFunc(handlers, func(a, b Handler) int {
		switch {
		case a.Name() < b.Name():
			return -1
		case a.Name() > b.Name():
			return 1
		}
		return 0
	})
	return handlers
}
