// Package metrics holds the Prometheus collectors of the aggregation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	ResultOK       = "ok"
	ResultSnapshot = "snapshot"
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"

	SnapshotWritten   = "written"
	SnapshotUnchanged = "unchanged"
)

var (
	FeedLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bla_feed_loads_total",
			Help: "Feed loads by source and outcome (ok, snapshot, or the failed stage)",
		},
		[]string{"source", "result"},
	)

	FeedLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bla_feed_load_duration_seconds",
			Help:    "Duration of fetch, parse and verify of one feed",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"source"},
	)

	FeedEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bla_feed_entries",
			Help: "Entries produced by the last successful load of a feed",
		},
		[]string{"source"},
	)

	ResolverLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bla_resolver_lookups_total",
			Help: "Domain resolutions by outcome",
		},
		[]string{"result"},
	)

	DatasetEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bla_dataset_entries",
			Help: "Unique entries in the last aggregated dataset",
		},
		[]string{"version"},
	)

	SnapshotWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bla_snapshot_writes_total",
			Help: "Snapshot saves by outcome (written, unchanged)",
		},
		[]string{"source", "result"},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bla_last_run_timestamp_seconds",
			Help: "Unix time the last aggregation run finished",
		},
	)
)
