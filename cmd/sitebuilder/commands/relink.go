package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/sitebuilder/internal/relink"
)

// RelinkCmd implements the 'relink' command.
type RelinkCmd struct {
	Root    string   `help:"Directory to rewrite (overrides the configured root)" type:"path"`
	DryRun  bool     `name:"dry-run" help:"Report files that would change without writing them"`
	Exclude []string `help:"Directories, relative to the root, to leave untouched"`
}

func (r *RelinkCmd) Run(ctx context.Context, g *Global) error {
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	rw := &relink.Rewriter{
		Root:    resolveRoot(r.Root, cfg),
		Linker:  relink.NewLinker(cfg.Relink.ExtraRoots...),
		Exclude: r.Exclude,
		DryRun:  r.DryRun,
		Logger:  g.Logger,
	}
	rep, err := rw.Run(ctx)
	if err != nil {
		return err
	}
	if r.DryRun {
		for _, p := range rep.Updated {
			_, _ = fmt.Fprintf(g.out(), "would update %s\n", p)
		}
		_, _ = fmt.Fprintf(g.out(), "Files to update: %d\n", len(rep.Updated))
		return nil
	}
	_, _ = fmt.Fprintf(g.out(), "Files updated: %d\n", len(rep.Updated))
	return nil
}
