package commands

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Root    string `help:"Project root (overrides the configured root)" type:"path"`
	NoClean bool   `name:"no-clean" help:"Keep the existing output directory"`
}

func (b *BuildCmd) Run(ctx context.Context, g *Global) error {
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	root := resolveRoot(b.Root, cfg)

	builder := build.New(build.Options{
		Root:         root,
		Clean:        cfg.ShouldClean() && !b.NoClean,
		ManifestPath: cfg.ManifestPath(root),
		Logger:       g.Logger,
	})
	res, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Build %s: %d files copied, %d pages planned in %s\n",
		res.Status, res.Passthrough.Files(), len(res.Pages), res.Duration.Round(time.Millisecond))
	return nil
}
