package commands

import (
	"fmt"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/pages"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

// PermalinkCmd implements the 'permalink' command.
type PermalinkCmd struct {
	Input     string `arg:"" help:"Page input path, relative to the input directory"`
	Stem      string `help:"File path stem (defaults to the input path without extension)"`
	Permalink string `help:"Existing permalink from front matter (empty means none)"`
}

func (p *PermalinkCmd) Run(g *Global) error {
	stem := p.Stem
	if stem == "" {
		stem = pages.Stem(p.Input)
	}
	data := &siteconfig.PageData{Page: &siteconfig.PageInfo{InputPath: p.Input, FilePathStem: stem}}
	if p.Permalink != "" {
		data.Permalink = &p.Permalink
	}

	value, ok := siteconfig.Permalink(data)
	if !ok {
		_, _ = fmt.Fprintln(g.out(), "permalink: (none)")
		_, _ = fmt.Fprintf(g.out(), "output: %s (default)\n", pages.DefaultOutputPath(stem))
		return nil
	}
	out, err := pages.OutputPath(value)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "invalid permalink").
			WithContext("permalink", value).
			Build()
	}
	_, _ = fmt.Fprintf(g.out(), "permalink: %s\n", value)
	_, _ = fmt.Fprintf(g.out(), "output: %s\n", out)
	return nil
}
