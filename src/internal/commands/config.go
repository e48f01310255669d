package commands

import (
	"flag"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/config"
)

// ConfigCommand prints the effective configuration, defaults included.
type ConfigCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	cfg *config.Config
}

func CreateConfigCommand() Runner {
	return &ConfigCommand{
		fs: flag.NewFlagSet("config", flag.ExitOnError),
	}
}

func (c *ConfigCommand) Name() string {
	return c.fs.Name()
}

func (c *ConfigCommand) Init(args []string, ctx *AppContext) error {
	c.ctx = ctx

	if err := c.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *ConfigCommand) Run() error {
	buf, err := c.cfg.SerializeConfig()
	if err != nil {
		return err
	}
	_, err = buf.WriteTo(c.ctx.stdout())
	return err
}
