// Package config handles configuration file parsing and validation for
// blocklists-aggregator.
//
// The configuration is a TOML file with the following sections:
//   - [general]: snapshot location, fetch timeout, load parallelism, failure policy
//   - [resolver]: DNS upstreams used by the domain and URL feeds
//   - [api]: listen address and refresh period of the serve mode
//   - [sources]: which registry feeds are enabled
//   - [[source_override]]: mirrors for individual feeds
//
// A missing file is not an error: every field has a default.
//
//	cfg, err := config.LoadConfig("/etc/blocklists-aggregator.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.ValidateConfig(); err != nil {
//	    log.Fatal(err)
//	}
//	sources, err := cfg.SelectedSources()
package config
