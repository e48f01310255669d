// Package commands implements the CLI subcommands of blocklists-aggregator.
//
// Every command implements the Runner interface:
//   - Init(): parse arguments and load the configuration
//   - Run(): execute the command
//   - Name(): return the command name used for dispatch
//
// # Available Commands
//
//   - sources: print the feed registry and the configured selection
//   - aggregate: load every selected feed once and print a summary,
//     optionally writing the aggregated list to a file
//   - lookup: load the feeds and print which of them list an address or network
//   - serve: aggregate periodically and serve the dataset over the HTTP API
//   - config: print the effective configuration
//
// Commands are thin wrappers around the loader, aggregator and api packages.
package commands
