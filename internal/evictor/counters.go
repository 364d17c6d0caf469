package evictor

import "sync/atomic"

type evictorCounters struct {
	triggers atomic.Int64 // sweep requests
	dropped  atomic.Int64 // requests coalesced into a queued or running sweep
	sweeps   atomic.Int64 // finished sweeps
	evicted  atomic.Int64 // removed entries
}

func newEvictorCounters() *evictorCounters {
	return &evictorCounters{}
}

func (c *evictorCounters) snapshot() (triggers, dropped, sweeps, evicted int64) {
	return c.triggers.Load(), c.dropped.Load(), c.sweeps.Load(), c.evicted.Load()
}
