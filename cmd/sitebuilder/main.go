package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitebuilder/cmd/sitebuilder/commands"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cli := &commands.CLI{}
	global := &commands.Global{Out: os.Stdout, Err: os.Stderr}
	parser := kong.Parse(cli,
		kong.Name("sitebuilder"),
		kong.Description("Build host for a static site: passthrough copies, page output paths and watch-mode rebuilds."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := parser.Run(cli)
	stop()
	if err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
	}
}
