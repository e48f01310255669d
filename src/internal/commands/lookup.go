package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/aggregator"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/config"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
)

// ErrNotListed is returned by lookup when no feed lists the query.
var ErrNotListed = errors.New("not listed by any feed")

// LookupCommand runs the pipeline and prints which feeds list an address
// or network.
type LookupCommand struct {
	fs      *flag.FlagSet
	ctx     *AppContext
	cfg     *config.Config
	sources []feeds.Source
	query   string

	SourceIDs string
}

func CreateLookupCommand() Runner {
	gc := &LookupCommand{
		fs: flag.NewFlagSet("lookup", flag.ExitOnError),
	}

	gc.fs.StringVar(&gc.SourceIDs, "sources", "", "Comma-separated feed ids to load instead of the configured selection")

	return gc
}

func (g *LookupCommand) Name() string {
	return g.fs.Name()
}

func (g *LookupCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

	if err := g.fs.Parse(args); err != nil {
		return err
	}
	if g.fs.NArg() != 1 {
		return fmt.Errorf("usage: lookup [-sources a,b] <ip-or-prefix>")
	}
	g.query = strings.TrimSpace(g.fs.Arg(0))

	cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	g.cfg = cfg

	g.sources, err = selectSources(cfg, g.SourceIDs)
	return err
}

func (g *LookupCommand) Run() error {
	q, err := aggregator.ParseQuery(g.query)
	if err != nil {
		return err
	}

	report, err := runOnce(context.Background(), g.cfg, g.sources)
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	return printMatches(g.ctx.stdout(), g.query, report.Dataset.Match(q), report.Dataset)
}

func printMatches(w io.Writer, query string, matches []netip.Prefix, ds *aggregator.Dataset) error {
	if len(matches) == 0 {
		return fmt.Errorf("%s: %w", query, ErrNotListed)
	}
	for _, p := range matches {
		fmt.Fprintf(w, "%s\t%s\n", feeds.Canonical(p), strings.Join(ds.Provenance(p), ","))
	}
	return nil
}
