// Package frontmatter splits YAML front matter from page bodies.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// front matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Document is a page split into raw front matter and body.
type Document struct {
	// FrontMatter is the YAML between the delimiters, without them.
	FrontMatter []byte
	Body        []byte
	// Had reports whether the document opened with a front matter delimiter.
	Had bool
}

// Split separates `---` delimited YAML front matter from the body.
//
// A document that does not start with the delimiter is returned whole as Body.
func Split(content []byte) (Document, error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return Document{Body: content}, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return Document{FrontMatter: []byte{}, Body: content[start+len(open):], Had: true}, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// A closing delimiter at EOF without a trailing newline is still valid.
		tail := []byte(nl + "---")
		if bytes.HasSuffix(content, tail) {
			end := len(content) - len(tail)
			return Document{FrontMatter: content[start : end+len(nl)], Body: []byte{}, Had: true}, nil
		}
		return Document{}, ErrMissingClosingDelimiter
	}
	end := start + idx + len(nl)
	return Document{
		FrontMatter: content[start:end],
		Body:        content[start+idx+len(closeSeq):],
		Had:         true,
	}, nil
}

// ParseYAML parses raw YAML front matter (without --- delimiters) into a map.
func ParseYAML(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var fields map[string]any
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
