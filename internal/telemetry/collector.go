package telemetry

import (
	"net/http"

	"github.com/Borislavv/go-localcache/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exports cache stats to prometheus on every scrape.
type Collector struct {
	source  Source
	hits    *prometheus.Desc
	misses  *prometheus.Desc
	entries *prometheus.Desc
	limit   *prometheus.Desc
	sweeps  *prometheus.Desc
	evicted *prometheus.Desc
}

func NewCollector(namespace string, source Source) *Collector {
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}
	labels := []string{"cache", "tier"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, labels, nil)
	}
	return &Collector{
		source:  source,
		hits:    desc("hits_total", "Lookups that found a live entry."),
		misses:  desc("misses_total", "Lookups that found no live entry."),
		entries: desc("entries", "Entries currently stored."),
		limit:   desc("limit", "Maximum number of entries, -1 when unbounded."),
		sweeps:  desc("sweeps_total", "Eviction sweeps run."),
		evicted: desc("evicted_total", "Entries removed by eviction sweeps."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.entries
	ch <- c.limit
	ch <- c.sweeps
	ch <- c.evicted
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.source.AllStats() {
		name, tier := st.Name, string(st.Tier)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Count), name, tier)
		if st.Tier != config.TierComplex {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hit), name, tier)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Miss), name, tier)
		ch <- prometheus.MustNewConstMetric(c.limit, prometheus.GaugeValue, float64(st.Limit), name, tier)
		ch <- prometheus.MustNewConstMetric(c.sweeps, prometheus.CounterValue, float64(st.Sweeps), name, tier)
		ch <- prometheus.MustNewConstMetric(c.evicted, prometheus.CounterValue, float64(st.Evicted), name, tier)
	}
}

// Handler serves the collector from a dedicated registry.
func Handler(c *Collector) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(c); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true}), nil
}
