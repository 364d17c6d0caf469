package cache

import "sync/atomic"

// counters live as long as the cache, Clear does not reset them.
type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func newCounters() *counters {
	return &counters{}
}

func (c *counters) snapshot() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// ratio is the hit percentage, zero before the first lookup.
func (c *counters) ratio() float64 {
	hits, misses := c.snapshot()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses) * 100
}
