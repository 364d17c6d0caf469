package localcache

import (
	"context"
	"net/http"

	"github.com/Borislavv/go-localcache/config"
	"github.com/Borislavv/go-localcache/internal/telemetry"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// RunTelemetry logs stats of every registered cache at the configured interval.
// It does nothing when the telemetry block of cfg is absent.
func (r *Registry) RunTelemetry(ctx context.Context, cfg *config.Caching) telemetry.Logger {
	var tcfg *config.TelemetryCfg
	if cfg != nil {
		tcfg = cfg.Telemetry
	}
	return telemetry.New(ctx, tcfg, r.base, clock.New(), r)
}

// Collector exports stats of every registered cache to prometheus.
func (r *Registry) Collector(namespace string) prometheus.Collector {
	return telemetry.NewCollector(namespace, r)
}

// MetricsHandler serves the registry metrics in the prometheus exposition format.
func (r *Registry) MetricsHandler(namespace string) (http.Handler, error) {
	return telemetry.Handler(telemetry.NewCollector(namespace, r))
}
