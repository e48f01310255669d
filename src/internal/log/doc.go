// Package log provides simple leveled logging for blocklists-aggregator.
//
// Log levels are DEBUG (verbose mode only), INFO, WARN and ERROR. Errors go
// to stderr, everything else to stdout unless an explicit output is set.
//
// Feed loads run in parallel, so per-feed code logs through a scoped logger
// that prefixes every line with the feed id:
//
//	l := log.Scoped("drop")
//	l.Infof("Fetched %d bytes", n) // [INF] [drop] Fetched 1234 bytes
//
// Enabling verbose mode for debug output:
//
//	log.SetVerbose(true)
//	log.Debugf("Resolved %s: %v", domain, addrs)
package log
