// Package pages discovers template pages and plans their output paths.
//
// Rendering is not done here. The planner answers one question per page: where
// does the host write it, given its front matter and the computed permalink.
package pages

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

// Stem returns inputPath without its extension.
func Stem(inputPath string) string {
	return strings.TrimSuffix(inputPath, path.Ext(inputPath))
}

// Discover walks inputRoot and returns the slash-separated relative paths of
// files whose extension is an accepted template format. Directories named in
// exclude (relative to inputRoot), hidden directories and node_modules are skipped.
func Discover(ctx context.Context, inputRoot string, settings siteconfig.Settings, exclude []string) ([]string, error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		clean := path.Clean(filepath.ToSlash(e))
		if clean == "." || clean == "" {
			continue
		}
		skip[clean] = struct{}{}
	}

	var found []string
	err := filepath.WalkDir(inputRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(inputRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") || name == "node_modules" {
				return filepath.SkipDir
			}
			if _, ok := skip[rel]; ok {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := skip[rel]; ok {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if settings.HasTemplateFormat(path.Ext(rel)) {
			found = append(found, rel)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "page discovery failed").
			WithContext("input", inputRoot).
			Build()
	}
	sort.Strings(found)
	return found, nil
}
