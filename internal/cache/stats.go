package cache

import (
	"fmt"
	"time"

	"github.com/Borislavv/go-localcache/config"
)

// Stats is a point-in-time view of a cache. Fields a tier does not track stay zero.
type Stats struct {
	Name            string
	Tier            config.Tier
	Count           int64
	LastClearedTime time.Time
	Persistent      bool
	ConsiderUser    bool
	Hit             int64
	Miss            int64
	HitRatio        float64
	Limit           int
	Expire          time.Duration
	Refreshable     bool
	UseLIFO         bool
	ClearCount      int
	ChunkSize       int
	Sweeps          int64
	Evicted         int64
}

func (c *Cache[V]) Stats() Stats {
	st := Stats{
		Name:            c.name,
		Tier:            c.tier,
		Count:           c.db.Len(),
		LastClearedTime: c.LastCleared(),
		Persistent:      c.opts.Persistent,
	}
	if c.tier == config.TierPermanent {
		return st
	}

	st.ConsiderUser = c.opts.ConsiderUser
	if c.tier == config.TierExtended {
		return st
	}

	st.Hit, st.Miss = c.counters.snapshot()
	st.HitRatio = c.counters.ratio()
	st.Limit = c.opts.Limit
	st.Expire = c.opts.Expire
	st.Refreshable = c.opts.Refreshable
	st.UseLIFO = c.opts.UseLIFO
	st.ClearCount = c.opts.ClearCount
	st.ChunkSize = c.opts.ChunkSize
	_, _, st.Sweeps, st.Evicted = c.evictor.Metrics()
	return st
}

// Map renders stats with the keys tracked by the tier. Expire is in milliseconds.
func (s Stats) Map() map[string]any {
	m := map[string]any{
		"count":             s.Count,
		"last_cleared_time": s.LastClearedTime.Format(time.RFC3339Nano),
		"persistent":        s.Persistent,
	}
	if s.Tier == config.TierPermanent {
		return m
	}

	m["consider_user"] = s.ConsiderUser
	if s.Tier == config.TierExtended {
		return m
	}

	m["hit"] = s.Hit
	m["miss"] = s.Miss
	m["hit_ratio"] = fmt.Sprintf("%0.1f%%", s.HitRatio)
	m["limit"] = s.Limit
	m["expire"] = s.Expire.Milliseconds()
	m["refreshable"] = s.Refreshable
	m["use_lifo"] = s.UseLIFO
	m["clear_count"] = s.ClearCount
	m["chunk_size"] = s.ChunkSize
	m["sweeps"] = s.Sweeps
	m["evicted"] = s.Evicted
	return m
}
