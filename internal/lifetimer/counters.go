package lifetimer

import "sync/atomic"

type lifetimerCounters struct {
	scans      atomic.Int64 // total scans number
	scanHits   atomic.Int64 // scans which removed something
	scanMisses atomic.Int64 // scans which found nothing expired
	removed    atomic.Int64 // removed entries
}

func newLifetimerCounters() *lifetimerCounters {
	return &lifetimerCounters{}
}

func (c *lifetimerCounters) snapshot() (scans, hits, misses, removed int64) {
	return c.scans.Load(), c.scanHits.Load(), c.scanMisses.Load(), c.removed.Load()
}
