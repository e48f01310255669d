package config

import (
	"path/filepath"
	"time"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/utils"
)

type Config struct {
	// General holds general configuration.
	General GeneralConfig `toml:"general" json:"general"`
	// Resolver configures DNS resolution of domain and URL feeds.
	Resolver ResolverConfig `toml:"resolver" json:"resolver"`
	// API configures the serve mode.
	API APIConfig `toml:"api" json:"api"`
	// Sources selects the feeds to load.
	Sources SourcesConfig `toml:"sources" json:"sources"`
	// Overrides replace the origin URL of registry feeds, e.g. with a local mirror.
	Overrides []*SourceOverride `toml:"source_override,omitempty" json:"source_override,omitempty"`

	_absConfigFilePath string
	// baseRegistry is the feed set ids are checked against. Nil means the
	// built-in registry.
	baseRegistry *feeds.Registry
}

type GeneralConfig struct {
	// SnapshotDir is where the last good copy of every feed is kept (relative to the config file).
	SnapshotDir string `toml:"snapshot_dir" json:"snapshot_dir" validate:"required"`
	// SnapshotName is the snapshot file name template. Available variables: {{source_id}}, {{source_name}}.
	SnapshotName string `toml:"snapshot_name" json:"snapshot_name" validate:"required,snapshot_name"`
	// FetchTimeoutSeconds bounds a single feed download (default: 30).
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds" json:"fetch_timeout_seconds" validate:"min=1"`
	// MaxParallelLoads is the number of feeds loaded at the same time (default: 4).
	MaxParallelLoads int `toml:"max_parallel_loads" json:"max_parallel_loads" validate:"min=1,max=64"`
	// UserAgent is sent with every feed request.
	UserAgent string `toml:"user_agent" json:"user_agent" validate:"required"`
	// FailOnError aborts the run when any feed fails.
	FailOnError bool `toml:"fail_on_error" json:"fail_on_error"`
	// UseSnapshotsOnFailure replaces a failed feed with its last snapshot.
	UseSnapshotsOnFailure bool `toml:"use_snapshots_on_failure" json:"use_snapshots_on_failure"`
}

type ResolverConfig struct {
	// Upstreams lists DNS servers. Supported: system://, udp://ip:port, tcp://ip:port, doh://host/path, https://host/path (default: ["system://"]).
	Upstreams []string `toml:"upstreams" json:"upstreams" validate:"required,min=1,dive,upstream_url"`
	// TimeoutMs bounds one resolution attempt. A timed out name counts as not found (default: 3000).
	TimeoutMs int `toml:"timeout_ms" json:"timeout_ms" validate:"min=1"`
	// QueryAAAA also resolves IPv6 addresses (default: true).
	QueryAAAA bool `toml:"query_aaaa" json:"query_aaaa"`
}

type APIConfig struct {
	// ListenAddr is the address of the read-only API (default: 127.0.0.1:8089).
	ListenAddr string `toml:"listen_addr" json:"listen_addr" validate:"required,hostname_port"`
	// RefreshIntervalMinutes is the aggregation period in serve mode, 0 disables refresh (default: 60).
	RefreshIntervalMinutes int `toml:"refresh_interval_minutes" json:"refresh_interval_minutes" validate:"min=0"`
}

type SourcesConfig struct {
	// Enabled lists the feeds to load. Empty means the registry defaults.
	Enabled []string `toml:"enabled" json:"enabled"`
	// Disabled feeds are removed from the selection.
	Disabled []string `toml:"disabled" json:"disabled"`
}

type SourceOverride struct {
	// ID is the registry id of the overridden feed.
	ID string `toml:"id" json:"id" validate:"required"`
	// URL is the replacement origin.
	URL string `toml:"url" json:"url" validate:"required,url"`
}

func (c *Config) GetConfigDir() string {
	return filepath.Dir(c._absConfigFilePath)
}

func (c *Config) GetAbsSnapshotDir() string {
	return utils.ResolvePath(c.General.SnapshotDir, c.GetConfigDir())
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.General.FetchTimeoutSeconds) * time.Second
}

func (c *Config) ResolverTimeout() time.Duration {
	return time.Duration(c.Resolver.TimeoutMs) * time.Millisecond
}

// RefreshInterval is zero when periodic refresh is disabled.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.API.RefreshIntervalMinutes) * time.Minute
}
