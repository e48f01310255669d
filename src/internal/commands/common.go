package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/aggregator"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/config"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/loader"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/resolver"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/snapshot"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/utils"
)

type Runner interface {
	Init(args []string, globalArgs *AppContext) error
	Run() error
	Name() string
}

type AppContext struct {
	ConfigPath string
	Verbose    bool
	// Stdout receives command output. Nil means os.Stdout.
	Stdout io.Writer
}

func (ctx *AppContext) stdout() io.Writer {
	if ctx.Stdout == nil {
		return os.Stdout
	}
	return ctx.Stdout
}

// loadAndValidateConfigOrFail loads configuration from file and validates it.
func loadAndValidateConfigOrFail(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// newDriver wires the loading pipeline for the given sources. The DNS
// resolver is only built when one of them lists domains or URLs.
func newDriver(cfg *config.Config, sources []feeds.Source) (*loader.Driver, error) {
	var res resolver.Resolver
	for _, src := range sources {
		if src.Parser.NeedsResolver() {
			upstreams, err := resolver.ParseUpstreams(cfg.Resolver.Upstreams)
			if err != nil {
				return nil, err
			}
			dnsResolver, err := resolver.NewDNSResolver(upstreams, cfg.ResolverTimeout(), cfg.Resolver.QueryAAAA)
			if err != nil {
				return nil, err
			}
			res = dnsResolver
			break
		}
	}

	store, err := snapshot.NewStore(cfg.GetAbsSnapshotDir(), cfg.General.SnapshotName)
	if err != nil {
		return nil, err
	}

	fetcher := loader.NewHTTPFetcher(cfg.FetchTimeout(), cfg.General.UserAgent)
	return loader.NewDriver(loader.NewLoader(fetcher, res), loader.Options{
		MaxParallel:           cfg.General.MaxParallelLoads,
		FailOnError:           cfg.General.FailOnError,
		UseSnapshotsOnFailure: cfg.General.UseSnapshotsOnFailure,
		Snapshots:             store,
	}), nil
}

// runOnce loads and aggregates the sources once.
func runOnce(ctx context.Context, cfg *config.Config, sources []feeds.Source) (*loader.Report, error) {
	driver, err := newDriver(cfg, sources)
	if err != nil {
		return nil, err
	}
	return driver.Run(ctx, sources)
}

// printReport writes one line per feed followed by the dataset totals.
func printReport(w io.Writer, report *loader.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, out := range report.Outcomes {
		switch {
		case out.Result != nil && out.Result.FromSnapshot:
			fmt.Fprintf(tw, "%s\tsnapshot\t%d entries\t%v\n", out.Source.ID, len(out.Result.Entries), out.Err)
		case out.Result != nil:
			fmt.Fprintf(tw, "%s\tok\t%d entries\t%s\n", out.Source.ID, len(out.Result.Entries), out.Duration.Round(time.Millisecond))
		default:
			fmt.Fprintf(tw, "%s\tfailed\t\t%v\n", out.Source.ID, out.Err)
		}
	}
	tw.Flush()

	if ds := report.Dataset; ds != nil {
		fmt.Fprintf(w, "\n%d IPv4 and %d IPv6 entries from %d feed(s)\n", len(ds.V4()), len(ds.V6()), len(ds.Sources()))
	}
}

// formatDataset renders the canonical entries, IPv4 first, one per line.
func formatDataset(ds *aggregator.Dataset) []byte {
	var buf bytes.Buffer
	for _, p := range ds.Entries() {
		buf.WriteString(feeds.Canonical(p))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func writeDataset(ds *aggregator.Dataset, path string) error {
	if err := utils.WriteFileAtomic(path, formatDataset(ds), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Infof("Wrote %d entries to %s", ds.Len(), path)
	return nil
}
