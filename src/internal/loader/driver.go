package loader

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/aggregator"
	bferrors "github.com/maksimkurb/blocklists-aggregator/src/internal/errors"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/metrics"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/snapshot"
)

const DefaultMaxParallel = 4

// Options control a Driver run.
type Options struct {
	// MaxParallel bounds the number of concurrent loads.
	MaxParallel int
	// FailOnError makes Run fail when a feed produced no result.
	FailOnError bool
	// UseSnapshotsOnFailure substitutes the last snapshot of a failed feed.
	UseSnapshotsOnFailure bool
	// Snapshots receives every fresh result. Nil disables snapshots.
	Snapshots *snapshot.Store
}

// Outcome is what happened to one source during a run.
type Outcome struct {
	Source feeds.Source
	// Result is nil when the feed failed and no snapshot replaced it.
	Result *feeds.Result
	// Err is the load failure, kept even when a snapshot was used instead.
	Err      error
	Duration time.Duration
}

// Report summarises a run. Outcomes follow the order of the sources passed
// to Run.
type Report struct {
	Outcomes []Outcome
	Results  []*feeds.Result
	// Failures lists the feeds that contributed nothing to Dataset.
	Failures  bferrors.FeedErrors
	Dataset   *aggregator.Dataset
	StartedAt time.Time
	Duration  time.Duration
}

// Driver loads a selection of sources in parallel and aggregates them.
type Driver struct {
	loader *Loader
	opts   Options
}

func NewDriver(l *Loader, opts Options) *Driver {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	return &Driver{loader: l, opts: opts}
}

// Run loads every source and aggregates the successful results in the order
// of sources. A failed feed is excluded from the dataset unless FailOnError
// is set, in which case Run returns the partial report and the failures.
func (d *Driver) Run(ctx context.Context, sources []feeds.Source) (*Report, error) {
	report := &Report{
		Outcomes:  make([]Outcome, len(sources)),
		StartedAt: time.Now(),
	}

	g := new(errgroup.Group)
	g.SetLimit(d.opts.MaxParallel)
	for i, src := range sources {
		i, src := i, src // per-iteration copies (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			start := time.Now()
			result, err := d.loader.Load(ctx, src)
			report.Outcomes[i] = Outcome{Source: src, Result: result, Err: err, Duration: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range report.Outcomes {
		out := &report.Outcomes[i]
		if out.Err == nil {
			d.saveSnapshot(out.Source, out.Result)
		} else if result := d.fromSnapshot(out.Source); result != nil {
			out.Result = result
		} else {
			report.Failures = append(report.Failures, asFeedError(out.Source, out.Err))
		}

		if out.Result != nil {
			report.Results = append(report.Results, out.Result)
		}
	}

	defer func() {
		report.Duration = time.Since(report.StartedAt)
		metrics.LastRunTimestamp.SetToCurrentTime()
	}()

	if d.opts.FailOnError && len(report.Failures) > 0 {
		return report, report.Failures
	}

	ds, err := aggregator.Aggregate(report.Results)
	if err != nil {
		return report, err
	}
	report.Dataset = ds

	if len(report.Failures) > 0 {
		log.Warnf("%d of %d feed(s) failed and were skipped: %v", len(report.Failures), len(sources), report.Failures.SourceIDs())
	}
	return report, nil
}

func (d *Driver) saveSnapshot(src feeds.Source, result *feeds.Result) {
	if d.opts.Snapshots == nil {
		return
	}
	if _, err := d.opts.Snapshots.Save(src, result.Entries); err != nil {
		log.Warnf("Failed to save snapshot of %s: %v", src.ID, err)
	}
}

func (d *Driver) fromSnapshot(src feeds.Source) *feeds.Result {
	if !d.opts.UseSnapshotsOnFailure || d.opts.Snapshots == nil {
		return nil
	}

	result, err := d.opts.Snapshots.Load(src)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			log.Warnf("No snapshot of %s to fall back to", src.ID)
		} else {
			log.Errorf("Failed to load snapshot of %s: %v", src.ID, err)
		}
		return nil
	}

	metrics.FeedLoads.WithLabelValues(src.ID, metrics.ResultSnapshot).Inc()
	log.Warnf("Using snapshot of %s from %s (%d entries)", src.ID, result.FetchedAt.Format(time.RFC3339), len(result.Entries))
	return result
}

func asFeedError(src feeds.Source, err error) *bferrors.FeedError {
	var fe *bferrors.FeedError
	if errors.As(err, &fe) {
		return fe
	}
	return bferrors.NewFeedError(bferrors.StageFetch, src.ID, err)
}
