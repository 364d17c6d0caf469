package telemetry

import (
	"context"
	"time"

	"github.com/Borislavv/go-localcache/config"
	"github.com/Borislavv/go-localcache/internal/cache"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Source lists stats of every cache in a stable order.
type Source interface {
	AllStats() []cache.Stats
}

type Logger interface {
	Interval() time.Duration
	Close() error
}

// Logs writes one stats line per cache every interval.
type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.TelemetryCfg
	logger   zerolog.Logger
	clock    clock.Clock
	source   Source
	sampler  *sampler
	interval time.Duration
	doneCh   chan struct{}
}

func New(ctx context.Context, cfg *config.TelemetryCfg, logger zerolog.Logger, clk clock.Clock, source Source) *Logs {
	ctx, cancel := context.WithCancel(ctx)
	l := &Logs{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     cfg,
		logger:  logger.With().Str("component", "telemetry").Logger(),
		clock:   clk,
		source:  source,
		sampler: newSampler(),
		doneCh:  make(chan struct{}),
	}
	if cfg.Enabled() {
		l.interval = cfg.Interval
		if l.interval <= 0 {
			l.interval = config.DefaultTelemetryInterval
		}
	}
	return l.run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

func (l *Logs) Close() error {
	l.cancel()
	<-l.doneCh
	return nil
}

func (l *Logs) run() *Logs {
	if !l.cfg.Enabled() {
		close(l.doneCh)
		return l
	}

	// first tick reports deltas since start
	l.sampler.next(l.source.AllStats())
	ticker := l.clock.Ticker(l.interval)

	go func() {
		defer close(l.doneCh)
		defer ticker.Stop()
		l.loop(ticker)
	}()
	return l
}

func (l *Logs) loop(ticker *clock.Ticker) {
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.report()
		}
	}
}

func (l *Logs) report() {
	stats := l.source.AllStats()
	deltas := l.sampler.next(stats)

	for _, st := range stats {
		ev := l.logger.Info().
			Str("interval", l.interval.String()).
			Str("cache", st.Name).
			Str("tier", string(st.Tier)).
			Int64("entries", st.Count)

		if st.Tier == config.TierComplex {
			d := deltas[st.Name]
			ev = ev.
				Uint64("hits", d.hits).
				Uint64("misses", d.misses).
				Uint64("sweeps", d.sweeps).
				Uint64("evicted", d.evicted).
				Int("limit", st.Limit)
		}
		ev.Msg("storage")
	}
}
