package telemetry

import "github.com/Borislavv/go-localcache/internal/cache"

// snapshot holds cumulative counters (monotonic) of one cache.
type snapshot struct {
	hits    uint64
	misses  uint64
	sweeps  uint64
	evicted uint64
}

func snapshotOf(st cache.Stats) snapshot {
	return snapshot{
		hits:    uint64(max(st.Hit, 0)),
		misses:  uint64(max(st.Miss, 0)),
		sweeps:  uint64(max(st.Sweeps, 0)),
		evicted: uint64(max(st.Evicted, 0)),
	}
}

// sampler remembers the previous snapshot of every cache by name.
type sampler struct {
	prev map[string]snapshot
}

func newSampler() *sampler {
	return &sampler{prev: make(map[string]snapshot)}
}

// next returns the per-interval delta of st and forgets caches that are gone.
func (s *sampler) next(stats []cache.Stats) map[string]snapshot {
	deltas := make(map[string]snapshot, len(stats))
	seen := make(map[string]snapshot, len(stats))
	for _, st := range stats {
		cur := snapshotOf(st)
		deltas[st.Name] = deltaSnapshot(s.prev[st.Name], cur)
		seen[st.Name] = cur
	}
	s.prev = seen
	return deltas
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// If counters reset (cur < prev), it treats cur as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	return snapshot{
		hits:    delta(prev.hits, cur.hits),
		misses:  delta(prev.misses, cur.misses),
		sweeps:  delta(prev.sweeps, cur.sweeps),
		evicted: delta(prev.evicted, cur.evicted),
	}
}

func delta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
