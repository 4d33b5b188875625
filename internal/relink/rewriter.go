package relink

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Report summarizes a rewrite run.
type Report struct {
	Scanned int
	// Updated lists changed files, slash-separated and relative to the root.
	Updated []string
}

// Rewriter walks a site tree and rewrites HTML and CSS files in place.
type Rewriter struct {
	Root   string
	Linker *Linker
	// Exclude lists directories relative to Root that are not visited.
	Exclude []string
	DryRun  bool
	Logger  *slog.Logger
}

// Run rewrites every .html, .htm and .css file under Root. Hidden directories
// and node_modules are skipped.
func (r *Rewriter) Run(ctx context.Context) (Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	linker := r.Linker
	if linker == nil {
		linker = NewLinker()
	}
	skip := make(map[string]struct{}, len(r.Exclude))
	for _, e := range r.Exclude {
		skip[path.Clean(filepath.ToSlash(e))] = struct{}{}
	}

	var rep Report
	err := filepath.WalkDir(r.Root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(r.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if _, ok := skip[rel]; ok || strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		var rewrite func(string, []byte) []byte
		switch strings.ToLower(path.Ext(rel)) {
		case ".html", ".htm":
			rewrite = linker.RewriteHTML
		case ".css":
			rewrite = linker.RewriteCSS
		default:
			return nil
		}
		rep.Scanned++

		original, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		updated := rewrite(rel, original)
		if bytes.Equal(updated, original) {
			return nil
		}
		rep.Updated = append(rep.Updated, rel)
		if r.DryRun {
			logger.Info("Would rewrite links", logfields.Path(rel))
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := renameio.WriteFile(p, updated, info.Mode().Perm()); err != nil {
			return err
		}
		logger.Debug("Rewrote links", logfields.Path(rel))
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		return rep, errors.WrapError(err, errors.CategoryFileSystem, "relink failed").
			WithContext("root", r.Root).
			Build()
	}
	return rep, nil
}
