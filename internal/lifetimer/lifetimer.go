package lifetimer

import (
	"context"

	"github.com/Borislavv/go-localcache/config"
	"github.com/Borislavv/go-localcache/internal/shared/rate"
	"github.com/rs/zerolog"
)

// Purger removes expired entries among the oldest sample entries of a cache.
type Purger interface {
	PurgeExpired(sample int) (scanned, removed int64)
	Count() int64
}

type Lifetimer interface {
	Metrics() (scans, hits, misses, removed int64)
	Close() error
}

// LifetimeWorker purges expired entries in background at the configured rate.
// Lazy expiration on read stays in place, the worker only bounds how long dead entries linger.
type LifetimeWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.LifetimeCfg
	target   Purger
	logger   zerolog.Logger
	jitter   *rate.Jitter
	counters *lifetimerCounters
	doneCh   chan struct{}
}

func New(ctx context.Context, cfg *config.LifetimeCfg, logger zerolog.Logger, target Purger) Lifetimer {
	if !cfg.Enabled() {
		return NoOpLifetimer{}
	}

	ctx, cancel := context.WithCancel(ctx)
	return (&LifetimeWorker{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		target:   target,
		logger:   logger,
		jitter:   rate.NewJitter(ctx, cfg.Rate),
		counters: newLifetimerCounters(),
		doneCh:   make(chan struct{}),
	}).run()
}

func (w *LifetimeWorker) Metrics() (scans, hits, misses, removed int64) {
	return w.counters.snapshot()
}

func (w *LifetimeWorker) Close() error {
	w.cancel()
	<-w.doneCh
	return nil
}

func (w *LifetimeWorker) run() *LifetimeWorker {
	w.logger.Debug().Int("rate", w.cfg.Rate).Int("sample", w.cfg.Sample).Msg("lifetimer is running")

	go func() {
		defer close(w.doneCh)
		defer w.logger.Debug().Msg("lifetimer is stopped")
		w.provider()
	}()

	return w
}

func (w *LifetimeWorker) provider() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case _, ok := <-w.jitter.Chan():
			if !ok {
				return
			}
			if w.target.Count() == 0 {
				continue
			}
			w.counters.scans.Add(1)
			if _, removed := w.target.PurgeExpired(w.cfg.Sample); removed > 0 {
				w.counters.scanHits.Add(1)
				w.counters.removed.Add(removed)
			} else {
				w.counters.scanMisses.Add(1)
			}
		}
	}
}
