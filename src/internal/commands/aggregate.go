package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/config"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/utils"
)

// AggregateCommand runs the pipeline once and optionally writes the
// aggregated list to a file.
type AggregateCommand struct {
	fs      *flag.FlagSet
	ctx     *AppContext
	cfg     *config.Config
	sources []feeds.Source

	SourceIDs  string
	OutputPath string
}

func CreateAggregateCommand() Runner {
	gc := &AggregateCommand{
		fs: flag.NewFlagSet("aggregate", flag.ExitOnError),
	}

	gc.fs.StringVar(&gc.SourceIDs, "sources", "", "Comma-separated feed ids to load instead of the configured selection")
	gc.fs.StringVar(&gc.OutputPath, "out", "", "Write the aggregated entries (IPv4 then IPv6) to this file")

	return gc
}

func (g *AggregateCommand) Name() string {
	return g.fs.Name()
}

func (g *AggregateCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

	if err := g.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	g.cfg = cfg

	g.sources, err = selectSources(cfg, g.SourceIDs)
	return err
}

func (g *AggregateCommand) Run() error {
	report, err := runOnce(context.Background(), g.cfg, g.sources)
	if report != nil {
		printReport(g.ctx.stdout(), report)
	}
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	if g.OutputPath != "" {
		return writeDataset(report.Dataset, g.OutputPath)
	}
	return nil
}

// selectSources returns the feeds named in ids, or the configured selection
// when ids is empty.
func selectSources(cfg *config.Config, ids string) ([]feeds.Source, error) {
	if ids == "" {
		return cfg.SelectedSources()
	}

	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	list := utils.SplitList(ids)
	if len(list) == 0 {
		return nil, fmt.Errorf("-sources: no feed ids given")
	}
	sources, err := reg.Select(list, nil)
	if err != nil {
		return nil, fmt.Errorf("-sources: %w", err)
	}
	return sources, nil
}
