package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Site provides a fluent interface for laying out a project tree in a temp dir.
type Site struct {
	t    *testing.T
	root string
}

// NewSite creates an empty project root.
func NewSite(t *testing.T) *Site {
	t.Helper()
	return &Site{t: t, root: t.TempDir()}
}

// Root returns the project root.
func (s *Site) Root() string { return s.root }

// Path joins slash-separated rel onto the root.
func (s *Site) Path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// File writes content to rel, creating parent directories.
func (s *Site) File(rel, content string) *Site {
	s.t.Helper()
	p := s.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		s.t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		s.t.Fatalf("write %s: %v", rel, err)
	}
	return s
}

// Dir creates an empty directory.
func (s *Site) Dir(rel string) *Site {
	s.t.Helper()
	if err := os.MkdirAll(s.Path(rel), 0o755); err != nil {
		s.t.Fatalf("mkdir %s: %v", rel, err)
	}
	return s
}

// Remove deletes rel and everything below it.
func (s *Site) Remove(rel string) *Site {
	s.t.Helper()
	if err := os.RemoveAll(s.Path(rel)); err != nil {
		s.t.Fatalf("remove %s: %v", rel, err)
	}
	return s
}

// Standard lays out the three passthrough directories, a content page with a
// front matter permalink and a root HTML page.
func (s *Site) Standard() *Site {
	return s.
		File("modules/nav.js", "nav()").
		File("misc/m.txt", "misc").
		File("sites/about.html", `<a href="/index.html">home</a>`).
		File("content/post.md", "---\npermalink: /post/\n---\n# Post\n").
		File("index.html", "<p>home</p>")
}
