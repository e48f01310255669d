// Package utils provides small helpers shared across blocklists-aggregator:
// path resolution relative to the config file, atomic file writes for
// snapshots and exports, and comma-separated flag parsing.
//
//	absPath := utils.ResolvePath("snapshots", "/etc/blocklists-aggregator")
//	// Returns: /etc/blocklists-aggregator/snapshots
package utils
