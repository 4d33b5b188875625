package passthrough

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
)

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
}

func TestCopier_CopiesTreesVerbatim(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_site")
	writeFile(t, filepath.Join(root, "modules", "nav.js"), "console.log('nav')", 0o644)
	writeFile(t, filepath.Join(root, "modules", "deep", "x.css"), "a{}", 0o600)
	writeFile(t, filepath.Join(root, "sites", "about.html"), "<h1>{{ not rendered }}</h1>", 0o644)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "misc", "empty"), 0o755))

	entries := []registry.Entry{
		{Source: "misc", Dest: "misc"},
		{Source: "modules", Dest: "modules"},
		{Source: "sites", Dest: "sites"},
	}
	res, err := NewCopier(nil).Copy(context.Background(), root, out, entries)
	require.NoError(t, err)
	require.Equal(t, 3, res.Files())

	got, err := os.ReadFile(filepath.Join(out, "sites", "about.html"))
	require.NoError(t, err)
	require.Equal(t, "<h1>{{ not rendered }}</h1>", string(got))

	fi, err := os.Stat(filepath.Join(out, "modules", "deep", "x.css"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	require.DirExists(t, filepath.Join(out, "misc", "empty"))

	require.Equal(t, EntryResult{Source: "modules", Dest: "modules", Files: 2, Bytes: int64(len("console.log('nav')") + len("a{}"))}, res.Entries[1])
}

func TestCopier_SkipsUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_site")
	writeFile(t, filepath.Join(root, "misc", "a.txt"), "one", 0o644)
	entry := registry.Entry{Source: "misc", Dest: "misc"}

	c := NewCopier(nil)
	first, err := c.CopyEntry(context.Background(), root, out, entry)
	require.NoError(t, err)
	require.Equal(t, 1, first.Files)

	second, err := c.CopyEntry(context.Background(), root, out, entry)
	require.NoError(t, err)
	require.Equal(t, 0, second.Files)
	require.Equal(t, 1, second.Skipped)

	c.Force = true
	forced, err := c.CopyEntry(context.Background(), root, out, entry)
	require.NoError(t, err)
	require.Equal(t, 1, forced.Files)
}

func TestCopier_RenamedDestination(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_site")
	writeFile(t, filepath.Join(root, "files", "doc.pdf"), "%PDF", 0o644)

	_, err := NewCopier(nil).CopyEntry(context.Background(), root, out, registry.Entry{Source: "files", Dest: "assets/files"})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(out, "assets", "files", "doc.pdf"))
}

func TestCopier_SingleFileSource(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_site")
	writeFile(t, filepath.Join(root, "robots.txt"), "User-agent: *", 0o644)

	res, err := NewCopier(nil).CopyEntry(context.Background(), root, out, registry.Entry{Source: "robots.txt", Dest: "robots.txt"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Files)
	require.FileExists(t, filepath.Join(out, "robots.txt"))
}

func TestCopier_MissingSource(t *testing.T) {
	root := t.TempDir()
	_, err := NewCopier(nil).Copy(context.Background(), root, filepath.Join(root, "_site"), []registry.Entry{{Source: "modules", Dest: "modules"}})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryFileSystem))

	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	source, _ := classified.Context().GetString("source")
	require.Equal(t, "modules", source)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCopier_SkipsOutputInsideSource(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_site")
	writeFile(t, filepath.Join(root, "index.html"), "<p>home</p>", 0o644)
	writeFile(t, filepath.Join(out, "stale.html"), "old", 0o644)

	_, err := NewCopier(nil).CopyEntry(context.Background(), root, out, registry.Entry{Source: ".", Dest: "mirror"})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(out, "mirror", "index.html"))
	require.NoDirExists(t, filepath.Join(out, "mirror", "_site"))
}

func TestCopier_Canceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "misc", "a.txt"), "a", 0o644)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCopier(nil).CopyEntry(ctx, root, filepath.Join(root, "_site"), registry.Entry{Source: "misc", Dest: "misc"})
	require.ErrorIs(t, err, context.Canceled)
}
