package evictor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-localcache/internal/shared/locks"
	"github.com/rs/zerolog"
)

var ErrEvictorNotResponded = errors.New("evictor not responded")

// Sweeper removes entries until the cache is within its limit and returns how many it removed.
type Sweeper func() (evicted int64)

type Evictor interface {
	// Trigger requests a sweep without blocking. It reports whether a new sweep was queued.
	Trigger() bool
	// ForceCall runs a sweep and waits for it to finish.
	ForceCall(timeout time.Duration) error
	IsCleaning() bool
	Metrics() (triggers, dropped, sweeps, evicted int64)
	Close() error
}

// EvictionWorker runs sweeps on a single background goroutine under the clearance lock.
// At most one sweep is queued and at most one is running.
type EvictionWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   zerolog.Logger
	lock     locks.Lock
	sweep    Sweeper
	counters *evictorCounters
	cleaning atomic.Bool
	recheck  atomic.Bool
	invokeCh chan chan struct{}
	doneCh   chan struct{}
}

func New(ctx context.Context, logger zerolog.Logger, lock locks.Lock, sweep Sweeper) *EvictionWorker {
	ctx, cancel := context.WithCancel(ctx)
	return (&EvictionWorker{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		lock:     lock,
		sweep:    sweep,
		counters: newEvictorCounters(),
		invokeCh: make(chan chan struct{}, 1),
		doneCh:   make(chan struct{}),
	}).run()
}

// Trigger is dropped while a sweep holds the clearance lock. The running sweep
// is then followed by one more pass, so writes landing during it are not missed.
func (w *EvictionWorker) Trigger() bool {
	w.counters.triggers.Add(1)

	if w.cleaning.Load() {
		w.recheck.Store(true)
		w.counters.dropped.Add(1)
		return false
	}

	select {
	case w.invokeCh <- nil:
		return true
	default:
		// already queued
		w.counters.dropped.Add(1)
		return false
	}
}

func (w *EvictionWorker) ForceCall(timeout time.Duration) error {
	after := time.NewTimer(timeout)
	defer after.Stop()

	done := make(chan struct{})
	select {
	case <-w.ctx.Done():
		return nil
	case w.invokeCh <- done:
	case <-after.C:
		return ErrEvictorNotResponded
	}

	select {
	case <-w.ctx.Done():
	case <-done:
	case <-after.C:
		return ErrEvictorNotResponded
	}
	return nil
}

// IsCleaning also reports a clearance lock held outside the worker.
func (w *EvictionWorker) IsCleaning() bool {
	return w.cleaning.Load() || locks.IsHeld(w.lock)
}

func (w *EvictionWorker) Metrics() (triggers, dropped, sweeps, evicted int64) {
	return w.counters.snapshot()
}

// Close stops the worker and waits for a running sweep to finish.
func (w *EvictionWorker) Close() error {
	w.cancel()
	<-w.doneCh
	return nil
}

func (w *EvictionWorker) run() *EvictionWorker {
	w.logger.Debug().Msg("evictor is running")

	go func() {
		defer close(w.doneCh)
		defer w.logger.Debug().Msg("evictor is stopped")
		w.consumer()
	}()

	return w
}

// consumer - runs one sweep per invocation and one more when a trigger arrived meanwhile.
func (w *EvictionWorker) consumer() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case done := <-w.invokeCh:
			w.runLocked()
			for w.recheck.Swap(false) && w.ctx.Err() == nil {
				w.runLocked()
			}
			if done != nil {
				close(done)
			}
		}
	}
}

func (w *EvictionWorker) runLocked() {
	w.lock.Lock()
	w.cleaning.Store(true)
	defer func() {
		w.cleaning.Store(false)
		w.lock.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Interface("panic", r).Msg("eviction sweep panicked")
		}
	}()

	evicted := w.sweep()
	w.counters.sweeps.Add(1)
	if evicted > 0 {
		w.counters.evicted.Add(evicted)
	}
}
