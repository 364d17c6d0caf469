package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultShardName         = "default"
	DefaultLimit             = 1000
	DefaultExpire            = 10 * time.Minute
	DefaultClearCount        = 100
	DefaultChunkSize         = 1000
	DefaultLifetimeRate      = 10
	DefaultLifetimeSample    = 64
	DefaultTelemetryInterval = 5 * time.Second
	DefaultStoreConcurrency  = 4
	DefaultMetricsNamespace  = "localcache"
)

// Options is a fully resolved set of cache options.
type Options struct {
	ConsiderUser bool
	Limit        int
	Expire       time.Duration
	Refreshable  bool
	UseLIFO      bool
	ClearCount   int
	Persistent   bool
	ChunkSize    int
}

// Defaults returns the built-in options of the given tier.
func Defaults(tier Tier) Options {
	switch tier {
	case TierComplex:
		return Options{
			Limit:      DefaultLimit,
			Expire:     DefaultExpire,
			ClearCount: DefaultClearCount,
			ChunkSize:  DefaultChunkSize,
		}
	default:
		return Options{Limit: NoLimit}
	}
}

// Resolve merges the per-cache section of name over the section of tier over the tier defaults.
// A nil receiver resolves to the tier defaults.
func (cfg *Caching) Resolve(name string, tier Tier) Options {
	opts := Defaults(tier)
	if cfg == nil {
		return opts
	}
	cfg.section(tier).ApplyTo(&opts)
	if byName, ok := cfg.Caches[name]; ok {
		byName.ApplyTo(&opts)
	}
	return opts
}

func (cfg *Caching) ShardName() string {
	if cfg == nil || cfg.General.ShardName == "" {
		return DefaultShardName
	}
	return cfg.General.ShardName
}

func (cfg *Caching) section(tier Tier) *CacheCfg {
	switch tier {
	case TierPermanent:
		return cfg.Permanent
	case TierExtended:
		return cfg.Extended
	case TierComplex:
		return cfg.Complex
	}
	return nil
}

// ApplyTo overwrites the fields of opts that are set in c.
func (c *CacheCfg) ApplyTo(opts *Options) {
	if c == nil {
		return
	}
	if c.ConsiderUser != nil {
		opts.ConsiderUser = *c.ConsiderUser
	}
	if c.Limit != nil {
		opts.Limit = *c.Limit
	}
	if c.Expire != nil {
		opts.Expire = *c.Expire
	}
	if c.Refreshable != nil {
		opts.Refreshable = *c.Refreshable
	}
	if c.UseLIFO != nil {
		opts.UseLIFO = *c.UseLIFO
	}
	if c.ClearCount != nil {
		opts.ClearCount = *c.ClearCount
	}
	if c.Persistent != nil {
		opts.Persistent = *c.Persistent
	}
	if c.ChunkSize != nil {
		opts.ChunkSize = *c.ChunkSize
	}
}

func (cfg *Caching) AdjustConfig() {
	if cfg.General.ShardName == "" {
		cfg.General.ShardName = DefaultShardName
	}

	if cfg.Lifetime.Enabled() {
		if cfg.Lifetime.Rate <= 0 {
			cfg.Lifetime.Rate = DefaultLifetimeRate
		}
		if cfg.Lifetime.Sample <= 0 {
			cfg.Lifetime.Sample = DefaultLifetimeSample
		}
	}

	if cfg.Store.Enabled() {
		if cfg.Store.Kind == "" {
			cfg.Store.Kind = StoreMemory
		}
		if cfg.Store.Concurrency <= 0 {
			cfg.Store.Concurrency = DefaultStoreConcurrency
		}
	}

	if cfg.Telemetry.Enabled() {
		if cfg.Telemetry.Interval <= 0 {
			cfg.Telemetry.Interval = DefaultTelemetryInterval
		}
		if cfg.Telemetry.Namespace == "" {
			cfg.Telemetry.Namespace = DefaultMetricsNamespace
		}
	}
}

func LoadConfig(path string) (*Caching, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Caching, error) {
	var cfg *Caching
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal caching yaml: %w", err)
	}
	if cfg == nil {
		cfg = &Caching{}
	}
	cfg.AdjustConfig()

	return cfg, nil
}
