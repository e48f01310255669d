package commands

import (
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/config"
)

// SourcesCommand prints the feed registry.
type SourcesCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	cfg *config.Config
}

func CreateSourcesCommand() Runner {
	gc := &SourcesCommand{
		fs: flag.NewFlagSet("sources", flag.ExitOnError),
	}
	return gc
}

func (g *SourcesCommand) Name() string {
	return g.fs.Name()
}

func (g *SourcesCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

	if err := g.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	g.cfg = cfg
	return nil
}

func (g *SourcesCommand) Run() error {
	reg, err := g.cfg.Registry()
	if err != nil {
		return err
	}
	selected, err := g.cfg.SelectedSources()
	if err != nil {
		return err
	}
	isSelected := make(map[string]bool, len(selected))
	for _, src := range selected {
		isSelected[src.ID] = true
	}

	tw := tabwriter.NewWriter(g.ctx.stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEFAULT\tSELECTED\tNAME\tURL")
	for _, src := range reg.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", src.ID, yesNo(src.EnabledByDefault), yesNo(isSelected[src.ID]), src.Name, src.URL)
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
