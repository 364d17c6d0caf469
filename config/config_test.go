package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
general:
  shard_name: node-1
complex:
  limit: 500
  expire: 2m
  clear_count: 10
caches:
  users:
    limit: -1
    refreshable: true
    persistent: true
lifetime: {}
store:
  kind: file
  dir: /tmp/cache
telemetry:
  interval: 1s
`

// TestParseConfig_ResolvesSections verifies field-wise fallback from the per-cache section to the tier section.
func TestParseConfig_ResolvesSections(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "node-1", cfg.ShardName())

	users := cfg.Resolve("users", TierComplex)
	require.Equal(t, NoLimit, users.Limit)
	require.Equal(t, 2*time.Minute, users.Expire)
	require.Equal(t, 10, users.ClearCount)
	require.Equal(t, DefaultChunkSize, users.ChunkSize)
	require.True(t, users.Refreshable)
	require.True(t, users.Persistent)

	other := cfg.Resolve("other", TierComplex)
	require.Equal(t, 500, other.Limit)
	require.False(t, other.Persistent)
}

// TestParseConfig_AdjustsOptionalBlocks verifies defaults are filled for enabled optional blocks only.
func TestParseConfig_AdjustsOptionalBlocks(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleYAML))
	require.NoError(t, err)

	require.True(t, cfg.Lifetime.Enabled())
	require.Equal(t, DefaultLifetimeRate, cfg.Lifetime.Rate)
	require.Equal(t, DefaultLifetimeSample, cfg.Lifetime.Sample)

	require.Equal(t, StoreFile, cfg.Store.Kind)
	require.Equal(t, DefaultStoreConcurrency, cfg.Store.Concurrency)

	require.Equal(t, time.Second, cfg.Telemetry.Interval)
	require.Equal(t, DefaultMetricsNamespace, cfg.Telemetry.Namespace)

	require.False(t, cfg.Compression.Enabled())
}

// TestResolve_NilConfig returns the tier defaults.
func TestResolve_NilConfig(t *testing.T) {
	var cfg *Caching

	require.Equal(t, Defaults(TierComplex), cfg.Resolve("x", TierComplex))
	require.Equal(t, NoLimit, cfg.Resolve("x", TierExtended).Limit)
	require.Equal(t, DefaultShardName, cfg.ShardName())
}

// TestLoadConfig reads a yaml file from disk and reports a missing path.
func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caching.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "node-1", cfg.General.ShardName)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestParseConfig_Empty yields a usable config.
func TestParseConfig_Empty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultShardName, cfg.ShardName())
	require.Equal(t, DefaultLimit, cfg.Resolve("x", TierComplex).Limit)
}
