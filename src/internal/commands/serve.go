package commands

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/api"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/config"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/feeds"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/loader"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
)

// ServeCommand aggregates on start and every refresh interval, and serves
// the latest dataset over the read-only API until interrupted.
type ServeCommand struct {
	fs      *flag.FlagSet
	ctx     *AppContext
	cfg     *config.Config
	sources []feeds.Source
	driver  *loader.Driver

	ListenAddr string
}

func CreateServeCommand() Runner {
	gc := &ServeCommand{
		fs: flag.NewFlagSet("serve", flag.ExitOnError),
	}

	gc.fs.StringVar(&gc.ListenAddr, "listen", "", "API listen address (overrides [api] listen_addr)")

	return gc
}

func (g *ServeCommand) Name() string {
	return g.fs.Name()
}

func (g *ServeCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

	if err := g.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	g.cfg = cfg
	if g.ListenAddr == "" {
		g.ListenAddr = cfg.API.ListenAddr
	}

	if g.sources, err = cfg.SelectedSources(); err != nil {
		return err
	}
	g.driver, err = newDriver(cfg, g.sources)
	return err
}

func (g *ServeCommand) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", g.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", g.ListenAddr, err)
	}
	return g.serve(ctx, ln)
}

// serve runs until ctx is cancelled or the API server fails.
func (g *ServeCommand) serve(ctx context.Context, ln net.Listener) error {
	reg, err := g.cfg.Registry()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(g.sources))
	for _, src := range g.sources {
		ids = append(ids, src.ID)
	}

	state := api.NewState()
	server := api.NewServer(ln.Addr().String(), api.NewRouter(api.NewHandler(state, reg, ids)))

	refresher := NewPeriodicRunner(RunnerConfig{
		Name:     "aggregation",
		Interval: g.cfg.RefreshInterval(),
	}, func(ctx context.Context) error {
		report, err := g.driver.Run(ctx, g.sources)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		state.Update(report, err)
		if report != nil && report.Dataset != nil {
			log.Infof("Serving %d entries from %s", report.Dataset.Len(), strings.Join(reg.Names(report.Dataset.Sources()), ", "))
		}
		return err
	})
	if err := refresher.Start(ctx); err != nil {
		return err
	}
	defer refresher.Stop()

	log.Infof("Access restricted to private subnets only")
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		log.Infof("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return <-serverErrors
}
