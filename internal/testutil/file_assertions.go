package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FileAssertions provides utilities for asserting file system state in tests.
type FileAssertions struct {
	t       *testing.T
	baseDir string
}

// NewFileAssertions creates a new file assertions helper.
func NewFileAssertions(t *testing.T, baseDir string) *FileAssertions {
	return &FileAssertions{t: t, baseDir: baseDir}
}

func (fa *FileAssertions) path(rel string) string {
	return filepath.Join(fa.baseDir, filepath.FromSlash(rel))
}

// AssertFileExists validates that a file exists.
func (fa *FileAssertions) AssertFileExists(rel string) *FileAssertions {
	fa.t.Helper()
	if _, err := os.Stat(fa.path(rel)); err != nil {
		fa.t.Errorf("Expected file to exist: %s", rel)
	}
	return fa
}

// AssertFileNotExists validates that a file does not exist.
func (fa *FileAssertions) AssertFileNotExists(rel string) *FileAssertions {
	fa.t.Helper()
	if _, err := os.Stat(fa.path(rel)); err == nil {
		fa.t.Errorf("Expected file to not exist: %s", rel)
	}
	return fa
}

// AssertFileContains validates that a file contains expected content.
func (fa *FileAssertions) AssertFileContains(rel, expected string) *FileAssertions {
	fa.t.Helper()
	content := fa.GetFileContent(rel)
	if !strings.Contains(content, expected) {
		fa.t.Errorf("Expected file %s to contain %q\nActual content:\n%s", rel, expected, content)
	}
	return fa
}

// AssertFileEquals validates a file's exact content.
func (fa *FileAssertions) AssertFileEquals(rel, expected string) *FileAssertions {
	fa.t.Helper()
	if content := fa.GetFileContent(rel); content != expected {
		fa.t.Errorf("File %s:\nwant %q\ngot  %q", rel, expected, content)
	}
	return fa
}

// CountFiles counts regular files below rel.
func (fa *FileAssertions) CountFiles(rel string) int {
	fa.t.Helper()
	count := 0
	_ = filepath.WalkDir(fa.path(rel), func(_ string, d fs.DirEntry, err error) error {
		if err == nil && d.Type().IsRegular() {
			count++
		}
		return nil
	})
	return count
}

// GetFileContent returns a file's content, failing the test if it cannot be read.
func (fa *FileAssertions) GetFileContent(rel string) string {
	fa.t.Helper()
	content, err := os.ReadFile(fa.path(rel))
	if err != nil {
		fa.t.Fatalf("Failed to read file %s: %v", rel, err)
	}
	return string(content)
}
