// Package relink rewrites root-absolute links to local site files into
// relative ones, so pages keep working when the site is served from a
// sub-path or opened from disk.
package relink

import (
	"bytes"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// DefaultAllowedRoots are the prefixes of root-absolute URLs that point into the site.
var DefaultAllowedRoots = []string{
	"content/", "modules/", "misc/", "sites/", "files/",
	"index.html", "home.html", "calendars.html",
}

var (
	attrRe   = regexp.MustCompile(`(?i)\b((?:href|src|data|background)\s*=\s*)(?:"(/[^"']*)"|'(/[^"']*)')`)
	cssURLRe = regexp.MustCompile(`(?i)url\(\s*(?:"(/[^)'"]+)"|'(/[^)'"]+)'|(/[^)'"]+))\s*\)`)
)

// Linker decides which URLs are local and rewrites them.
type Linker struct {
	roots []string
}

// NewLinker returns a Linker for DefaultAllowedRoots plus extra.
func NewLinker(extra ...string) *Linker {
	roots := make([]string, 0, len(DefaultAllowedRoots)+len(extra))
	roots = append(roots, DefaultAllowedRoots...)
	roots = append(roots, extra...)
	return &Linker{roots: roots}
}

// IsLocalAbs reports whether u is root-absolute and points under an allowed root.
func (l *Linker) IsLocalAbs(u string) bool {
	if !strings.HasPrefix(u, "/") {
		return false
	}
	p := strings.TrimLeft(u, "/")
	for _, r := range l.roots {
		if strings.HasPrefix(p, r) {
			return true
		}
	}
	return false
}

// ToRelative converts the root-absolute absURL into a path relative to the
// directory of fromRel (a slash-separated path from the site root). Query and
// fragment are kept.
func ToRelative(fromRel, absURL string) string {
	rest, fragment, _ := strings.Cut(absURL, "#")
	p, query, _ := strings.Cut(rest, "?")

	absPath := strings.TrimLeft(p, "/")
	baseDir := path.Dir(path.Clean("/" + fromRel))
	target := path.Clean("/" + absPath)

	rel, err := filepath.Rel(filepath.FromSlash(baseDir), filepath.FromSlash(target))
	if err != nil {
		return absURL
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		rel = absPath[strings.LastIndex(absPath, "/")+1:]
		if rel == "" {
			rel = "."
		}
	}
	if query != "" {
		rel += "?" + query
	}
	if fragment != "" {
		rel += "#" + fragment
	}
	return rel
}

// RewriteCSS rewrites url(...) references in CSS text.
func (l *Linker) RewriteCSS(fromRel string, content []byte) []byte {
	return cssURLRe.ReplaceAllFunc(content, func(m []byte) []byte {
		sub := cssURLRe.FindSubmatch(m)
		quote, value := "", ""
		switch {
		case sub[1] != nil:
			quote, value = `"`, string(sub[1])
		case sub[2] != nil:
			quote, value = `'`, string(sub[2])
		default:
			value = string(sub[3])
		}
		if !l.IsLocalAbs(value) {
			return m
		}
		return []byte("url(" + quote + ToRelative(fromRel, value) + quote + ")")
	})
}

func (l *Linker) rewriteAttrs(fromRel string, tag []byte) []byte {
	return attrRe.ReplaceAllFunc(tag, func(m []byte) []byte {
		sub := attrRe.FindSubmatch(m)
		quote, value := `"`, sub[2]
		if value == nil {
			quote, value = `'`, sub[3]
		}
		if !l.IsLocalAbs(string(value)) {
			return m
		}
		out := make([]byte, 0, len(m))
		out = append(out, sub[1]...)
		out = append(out, quote...)
		out = append(out, ToRelative(fromRel, string(value))...)
		return append(out, quote...)
	})
}

// RewriteHTML rewrites href, src, data and background attributes of tags and
// url(...) references in tags and text. Comments and doctypes are kept as is;
// every other byte is preserved. Script and style bodies are raw text, so markup
// inside them is not treated as tags and only their url(...) references change.
func (l *Linker) RewriteHTML(fromRel string, content []byte) []byte {
	z := html.NewTokenizer(bytes.NewReader(content))
	var out bytes.Buffer
	out.Grow(len(content))
	for {
		tt := z.Next()
		raw := z.Raw()
		switch tt {
		case html.ErrorToken:
			out.Write(raw)
			if z.Err() == io.EOF {
				return out.Bytes()
			}
			// The tokenizer reads from memory; any other error means we keep the input.
			return content
		case html.StartTagToken, html.SelfClosingTagToken:
			out.Write(l.RewriteCSS(fromRel, l.rewriteAttrs(fromRel, raw)))
		case html.TextToken:
			out.Write(l.RewriteCSS(fromRel, raw))
		default:
			out.Write(raw)
		}
	}
}
