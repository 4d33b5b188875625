package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// Global carries state shared by all subcommands.
type Global struct {
	Logger *slog.Logger
	// Out receives user-facing command output; Err receives logs.
	Out io.Writer
	Err io.Writer

	cfg     *config.Config
	loadErr error
}

// Config returns the configuration loaded in AfterApply.
func (g *Global) Config() (*config.Config, error) {
	return g.cfg, g.loadErr
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitebuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Copy passthrough directories and plan page output paths"`
	Watch     WatchCmd     `cmd:"" help:"Build, then rebuild when a watch target changes"`
	Settings  SettingsCmd  `cmd:"" help:"Print the site settings and registrations"`
	Permalink PermalinkCmd `cmd:"" help:"Evaluate the computed permalink for one page"`
	Relink    RelinkCmd    `cmd:"" help:"Rewrite root-absolute local links to relative ones"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; load config and set up logging once.
// A config error is kept and reported by the commands that need the config.
func (c *CLI) AfterApply(g *Global) error {
	errOut := g.Err
	if errOut == nil {
		errOut = os.Stderr
	}
	cfg, err := config.Load(c.Config)
	g.cfg, g.loadErr = cfg, err

	lc := config.LoggingConfig{}
	if cfg != nil {
		lc = cfg.Logging
	} else if v := os.Getenv(config.EnvLogLevel); v != "" {
		lc.Level = config.LogLevel(v)
	}
	g.Logger = config.NewLogger(errOut, lc, c.Verbose)
	slog.SetDefault(g.Logger)
	return nil
}

// resolveRoot prefers the --root flag over the configured root.
func resolveRoot(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.Root
}
