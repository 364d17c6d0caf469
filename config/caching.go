package config

import "time"

// NoLimit marks a cache as unbounded.
const NoLimit = -1

// Tier selects which section of the configuration provides defaults for a cache.
type Tier string

const (
	// TierPermanent caches use simple keys and never expire or evict.
	TierPermanent Tier = "permanent"

	// TierExtended caches fold call inputs (and optionally the current user) into their keys.
	TierExtended Tier = "extended"

	// TierComplex caches are bounded, expiring, tracked and optionally persisted.
	TierComplex Tier = "complex"
)

// Caching groups configuration of every local cache of the process.
// Optional blocks are disabled by leaving them nil.
type Caching struct {
	General GeneralCfg `yaml:"general"`

	// Permanent, Extended and Complex hold per-tier defaults.
	// A nil section falls back to the built-in defaults of the tier.
	Permanent *CacheCfg `yaml:"permanent"`
	Extended  *CacheCfg `yaml:"extended"`
	Complex   *CacheCfg `yaml:"complex"`

	// Caches holds per-cache overrides keyed by cache name.
	// Every unset field falls back to the section of the cache tier.
	Caches map[string]*CacheCfg `yaml:"caches"`

	// Lifetime configures the background janitor that purges expired entries.
	// If nil, expired entries are removed lazily on access only.
	Lifetime *LifetimeCfg `yaml:"lifetime"`

	// Compression configures gzip compression of persisted items.
	// If nil, items are persisted uncompressed.
	Compression *CompressionCfg `yaml:"compression"`

	// Store selects the durable backing store used by persistent caches.
	// If nil, an in-process store is used.
	Store *StoreCfg `yaml:"store"`

	// Telemetry configures periodic stats logs and metrics.
	// If nil, no stats are logged.
	Telemetry *TelemetryCfg `yaml:"telemetry"`
}

type GeneralCfg struct {
	// ShardName tags persisted rows so several processes can share one store.
	ShardName string `yaml:"shard_name"`
}

// CacheCfg is a sparse set of cache options, every field is optional.
type CacheCfg struct {
	// ConsiderUser makes the current user part of every generated key.
	ConsiderUser *bool `yaml:"consider_user"`

	// Limit is the max number of entries, NoLimit (-1) disables eviction.
	Limit *int `yaml:"limit"`

	// Expire is the default lifetime of an entry. Example: "5m".
	Expire *time.Duration `yaml:"expire"`

	// Refreshable extends the deadline of an entry on every hit.
	Refreshable *bool `yaml:"refreshable"`

	// UseLIFO evicts the most recently inserted entries first instead of the least recently used ones.
	UseLIFO *bool `yaml:"use_lifo"`

	// ClearCount is how many entries a sweep removes on top of the overflow.
	ClearCount *int `yaml:"clear_count"`

	// Persistent enables persist/load of the cache contents.
	Persistent *bool `yaml:"persistent"`

	// ChunkSize is the number of rows written per store insert.
	ChunkSize *int `yaml:"chunk_size"`
}

type LifetimeCfg struct {
	// Rate is the number of janitor passes per second.
	Rate int `yaml:"rate"`

	// Sample is the number of entries checked per pass.
	Sample int `yaml:"sample"`
}

func (cfg *LifetimeCfg) Enabled() bool {
	return cfg != nil
}

// CompressionCfg
//   - Supported levels:
//     BestSpeed          = 1
//     BestCompression    = 9
//     DefaultCompression = -1
//     HuffmanOnly        = -2
type CompressionCfg struct {
	Level int `yaml:"level"`
}

func (cfg *CompressionCfg) Enabled() bool {
	return cfg != nil
}

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreFile   StoreKind = "file"
	StoreS3     StoreKind = "s3"
)

type StoreCfg struct {
	Kind StoreKind `yaml:"kind"`

	// Dir is the root directory of the file store.
	Dir string `yaml:"dir"`

	// Gzip compresses chunk files of the file store.
	Gzip bool `yaml:"gzip"`

	// Bucket, Prefix and Region configure the s3 store.
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`

	// Endpoint points the s3 store at an S3 compatible service, usually with PathStyle on.
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`

	// Concurrency bounds the number of caches persisted or loaded at once.
	Concurrency int `yaml:"concurrency"`
}

func (cfg *StoreCfg) Enabled() bool {
	return cfg != nil
}

type TelemetryCfg struct {
	// Interval between two stats log lines. Example: "5s".
	Interval time.Duration `yaml:"interval"`

	// Namespace prefixes exported metric names.
	Namespace string `yaml:"namespace"`
}

func (cfg *TelemetryCfg) Enabled() bool {
	return cfg != nil
}
