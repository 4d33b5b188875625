package pages

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

// PermalinkSource records where a page's output path came from.
type PermalinkSource string

const (
	SourceComputed    PermalinkSource = "computed"
	SourceFrontMatter PermalinkSource = "frontmatter"
	SourceDefault     PermalinkSource = "default"
)

// Page is a planned page.
type Page struct {
	InputPath   string          `yaml:"input" json:"input"`
	Stem        string          `yaml:"stem" json:"stem"`
	Permalink   string          `yaml:"permalink,omitempty" json:"permalink,omitempty"`
	Source      PermalinkSource `yaml:"source" json:"source"`
	OutputPath  string          `yaml:"output" json:"output"`
	Fingerprint string          `yaml:"fingerprint" json:"fingerprint"`
}

// Planner resolves output paths for every page under the input root.
type Planner struct {
	InputRoot string
	Settings  siteconfig.Settings
	// Exclude lists directories (relative to InputRoot) that hold no pages.
	Exclude []string
	// Computed is the registered computed permalink; nil means front matter only.
	Computed siteconfig.ComputedFunc
	Logger   *slog.Logger
}

// Plan discovers and plans all pages. Pages with `permalink: false` are not written
// and are left out. Two pages resolving to the same output path fail the plan.
func (p *Planner) Plan(ctx context.Context) ([]Page, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	inputs, err := Discover(ctx, p.InputRoot, p.Settings, p.Exclude)
	if err != nil {
		return nil, err
	}

	planned := make([]Page, 0, len(inputs))
	owners := make(map[string]string, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, write, err := p.PlanPage(in)
		if err != nil {
			return nil, err
		}
		if !write {
			logger.Debug("Page not written (permalink: false)", logfields.Page(in))
			continue
		}
		if prev, dup := owners[page.OutputPath]; dup {
			return nil, errors.BuildError("duplicate output path").
				WithContext("output", page.OutputPath).
				WithContext("pages", []string{prev, in}).
				Build()
		}
		owners[page.OutputPath] = in
		planned = append(planned, page)
	}
	return planned, nil
}

// PlanPage loads a single page and resolves its output path. The boolean is
// false when the page opts out of being written.
func (p *Planner) PlanPage(inputPath string) (Page, bool, error) {
	content, err := os.ReadFile(filepath.Join(p.InputRoot, filepath.FromSlash(inputPath)))
	if err != nil {
		return Page{}, false, errors.WrapError(err, errors.CategoryFileSystem, "read page failed").
			WithContext("page", inputPath).
			Build()
	}
	doc, err := frontmatter.Split(content)
	if err != nil {
		return Page{}, false, contentErr(err, inputPath)
	}
	fields, err := frontmatter.ParseYAML(doc.FrontMatter)
	if err != nil {
		return Page{}, false, contentErr(err, inputPath)
	}

	stem := Stem(inputPath)
	data := &siteconfig.PageData{Page: &siteconfig.PageInfo{InputPath: inputPath, FilePathStem: stem}}
	switch v := fields[siteconfig.PermalinkKey].(type) {
	case nil:
	case string:
		data.Permalink = &v
	case bool:
		if !v {
			return Page{}, false, nil
		}
		return Page{}, false, contentErr(fmt.Errorf("permalink: true is not a path"), inputPath)
	default:
		return Page{}, false, contentErr(fmt.Errorf("permalink must be a string, got %T", v), inputPath)
	}

	page := Page{
		InputPath:   inputPath,
		Stem:        stem,
		Fingerprint: mdfp.CalculateFingerprintFromParts(string(bytes.TrimRight(doc.FrontMatter, "\r\n")), string(doc.Body)),
	}

	value, ok := "", false
	if p.Computed != nil {
		value, ok = p.Computed(data)
	} else if data.Permalink != nil {
		value, ok = *data.Permalink, true
	}
	switch {
	case !ok:
		page.Source = SourceDefault
		page.OutputPath = DefaultOutputPath(stem)
	case data.Permalink != nil && *data.Permalink == value:
		page.Source = SourceFrontMatter
	default:
		page.Source = SourceComputed
	}
	if ok {
		page.Permalink = value
		out, err := OutputPath(value)
		if err != nil {
			return Page{}, false, contentErr(err, inputPath)
		}
		page.OutputPath = out
	}
	return page, true, nil
}

// DefaultOutputPath is the directory-index layout used when no permalink is set:
// "a/b" becomes "a/b/index.html" and "a/index" becomes "a/index.html".
func DefaultOutputPath(stem string) string {
	if path.Base(stem) == "index" {
		return stem + ".html"
	}
	return stem + "/index.html"
}

// OutputPath converts a permalink into a path relative to the output root.
// A trailing slash maps to index.html. Paths escaping the output root are rejected.
func OutputPath(permalink string) (string, error) {
	trimmed := strings.TrimLeft(permalink, "/")
	if trimmed == "" || strings.HasSuffix(trimmed, "/") {
		trimmed += "index.html"
	}
	clean := path.Clean(trimmed)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("permalink %q escapes the output directory", permalink)
	}
	return clean, nil
}

func contentErr(err error, page string) error {
	return errors.WrapError(err, errors.CategoryContent, "invalid page").
		WithContext("page", page).
		Build()
}
