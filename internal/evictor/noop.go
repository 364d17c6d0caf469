package evictor

import "time"

// NoOpEvictor is used by unbounded caches. It never sweeps and reports zero metrics.
type NoOpEvictor struct{}

func (NoOpEvictor) Trigger() bool                         { return false }
func (NoOpEvictor) ForceCall(time.Duration) error         { return nil }
func (NoOpEvictor) IsCleaning() bool                      { return false }
func (NoOpEvictor) Metrics() (int64, int64, int64, int64) { return 0, 0, 0, 0 }
func (NoOpEvictor) Close() error                          { return nil }
