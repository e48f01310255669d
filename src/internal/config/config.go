package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	bferrors "github.com/maksimkurb/blocklists-aggregator/src/internal/errors"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
)

const (
	DefaultSnapshotName     = "{{source_id}}.lst"
	DefaultUserAgent        = "blocklists-aggregator"
	DefaultListenAddr       = "127.0.0.1:8089"
	DefaultSystemUpstream   = "system://"
	TemplateVarSourceID     = "source_id"
	TemplateVarSourceName   = "source_name"
	defaultSnapshotDir      = "snapshots"
	defaultFetchTimeoutSecs = 30
	defaultParallelLoads    = 4
	defaultResolverTimeout  = 3000
	defaultRefreshMinutes   = 60
)

// DefaultConfig returns the configuration used for every field the file
// does not set.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			SnapshotDir:         defaultSnapshotDir,
			SnapshotName:        DefaultSnapshotName,
			FetchTimeoutSeconds: defaultFetchTimeoutSecs,
			MaxParallelLoads:    defaultParallelLoads,
			UserAgent:           DefaultUserAgent,
		},
		Resolver: ResolverConfig{
			Upstreams: []string{DefaultSystemUpstream},
			TimeoutMs: defaultResolverTimeout,
			QueryAAAA: true,
		},
		API: APIConfig{
			ListenAddr:             DefaultListenAddr,
			RefreshIntervalMinutes: defaultRefreshMinutes,
		},
	}
}

// LoadConfig reads configPath on top of DefaultConfig. A missing file yields
// the defaults, relative paths resolve against the file's directory.
func LoadConfig(configPath string) (*Config, error) {
	configFile := filepath.Clean(configPath)

	if !filepath.IsAbs(configFile) {
		if path, err := filepath.Abs(configFile); err != nil {
			return nil, bferrors.NewConfigError("failed to get absolute path", err)
		} else {
			configFile = path
		}
	}

	config := DefaultConfig()
	config._absConfigFilePath = configFile

	content, err := os.ReadFile(configFile)
	if errors.Is(err, os.ErrNotExist) {
		log.Warnf("Configuration file not found: %s, using defaults", configFile)
		return config, nil
	}
	if err != nil {
		return nil, bferrors.NewConfigError("failed to read config file", err)
	}

	if err := toml.Unmarshal(content, config); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			log.Errorf("%s", derr.String())
			row, col := derr.Position()
			return nil, bferrors.NewConfigError(fmt.Sprintf("failed to parse config file at line %d, column %d", row, col), err)
		}
		return nil, bferrors.NewConfigError("failed to parse config file", err)
	}

	log.Debugf("Configuration file path: %s", configFile)
	log.Debugf("Snapshot directory: %s", config.GetAbsSnapshotDir())

	return config, nil
}

// SerializeConfig encodes the effective configuration as TOML.
func (c *Config) SerializeConfig() (*bytes.Buffer, error) {
	buf := bytes.Buffer{}
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return &buf, nil
}

// BaseRegistry returns the feed set the config selects from, before
// overrides: the built-in registry unless SetBaseRegistry replaced it.
func (c *Config) BaseRegistry() *feeds.Registry {
	if c.baseRegistry != nil {
		return c.baseRegistry
	}
	return feeds.NewRegistry()
}

// SetBaseRegistry replaces the feed set ids are checked and selected against.
func (c *Config) SetBaseRegistry(reg *feeds.Registry) {
	c.baseRegistry = reg
}

// Registry returns the base registry with the configured overrides applied.
func (c *Config) Registry() (*feeds.Registry, error) {
	overrides := make(map[string]string, len(c.Overrides))
	for _, o := range c.Overrides {
		overrides[o.ID] = o.URL
	}

	reg, err := c.BaseRegistry().WithOverrides(overrides)
	if err != nil {
		return nil, bferrors.NewConfigError("invalid source override", err)
	}
	return reg, nil
}

// SelectedSources returns the feeds enabled by [sources], in registry order.
func (c *Config) SelectedSources() ([]feeds.Source, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}

	sources, err := reg.Select(c.Sources.Enabled, c.Sources.Disabled)
	if err != nil {
		return nil, bferrors.NewConfigError("invalid source selection", err)
	}
	if len(sources) == 0 {
		return nil, bferrors.NewConfigError("no sources selected", nil)
	}
	return sources, nil
}
