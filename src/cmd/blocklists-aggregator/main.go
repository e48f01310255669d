package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/commands"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
)

var (
	version = "dev"
	commit  = "n/a"
	date    = "n/a"
)

func main() {
	ctx := &commands.AppContext{}

	flag.StringVar(&ctx.ConfigPath, "config", "blocklists-aggregator.toml", "Path to configuration file")
	flag.BoolVar(&ctx.Verbose, "verbose", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Threat-intelligence blocklists aggregator\n")
		fmt.Fprintf(os.Stderr, "Version: %s (Commit: %s, Date: %s)\n\n", version, commit, date)
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  sources                         List available feeds and the configured selection\n")
		fmt.Fprintf(os.Stderr, "  aggregate [-sources a,b] [-out file]\n")
		fmt.Fprintf(os.Stderr, "                                  Load feeds once and write the aggregated list\n")
		fmt.Fprintf(os.Stderr, "  lookup [-sources a,b] <ip-or-prefix>\n")
		fmt.Fprintf(os.Stderr, "                                  Show which feeds list an address or network\n")
		fmt.Fprintf(os.Stderr, "  serve [-listen addr]            Aggregate periodically and serve the HTTP API\n")
		fmt.Fprintf(os.Stderr, "  config                          Print the effective configuration\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if ctx.Verbose {
		log.SetVerbose(true)
	}

	cmds := []commands.Runner{
		commands.CreateSourcesCommand(),
		commands.CreateAggregateCommand(),
		commands.CreateLookupCommand(),
		commands.CreateServeCommand(),
		commands.CreateConfigCommand(),
	}

	args := flag.Args()

	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	subcommand := args[0]
	for _, cmd := range cmds {
		if cmd.Name() == subcommand {
			if err := cmd.Init(args[1:], ctx); err != nil {
				log.Fatalf("Failed to initialize command: %v", err)
			}

			if err := cmd.Run(); err != nil {
				if errors.Is(err, commands.ErrNotListed) {
					log.Infof("%v", err)
					os.Exit(2)
				}
				log.Fatalf("Failed to run command: %v", err)
			}

			os.Exit(0)
		}
	}

	log.Fatalf("Unknown subcommand: %s", subcommand)
}
