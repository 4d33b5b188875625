// Package passthrough copies registered directories verbatim into the output root.
package passthrough

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
)

// EntryResult summarizes the copy of one passthrough entry.
type EntryResult struct {
	Source  string `yaml:"source"`
	Dest    string `yaml:"dest"`
	Files   int    `yaml:"files"`
	Skipped int    `yaml:"skipped"`
	Bytes   int64  `yaml:"bytes"`
}

// Result summarizes a copy run.
type Result struct {
	Entries []EntryResult `yaml:"entries"`
}

// Files returns the number of files written across all entries.
func (r Result) Files() int {
	n := 0
	for _, e := range r.Entries {
		n += e.Files
	}
	return n
}

// Copier copies files byte-for-byte. Files whose size and modification time
// already match the destination are skipped.
type Copier struct {
	logger *slog.Logger
	// Force disables the unchanged-file check.
	Force bool
}

// NewCopier returns a Copier logging to logger (slog.Default when nil).
func NewCopier(logger *slog.Logger) *Copier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Copier{logger: logger}
}

// Copy copies every entry from root into outputDir.
func (c *Copier) Copy(ctx context.Context, root, outputDir string, entries []registry.Entry) (Result, error) {
	var res Result
	for _, e := range entries {
		er, err := c.CopyEntry(ctx, root, outputDir, e)
		if err != nil {
			return res, err
		}
		res.Entries = append(res.Entries, er)
	}
	return res, nil
}

// CopyEntry copies a single passthrough entry.
func (c *Copier) CopyEntry(ctx context.Context, root, outputDir string, e registry.Entry) (EntryResult, error) {
	res := EntryResult{Source: e.Source, Dest: e.Dest}
	src := filepath.Join(root, filepath.FromSlash(e.Source))
	dst := filepath.Join(outputDir, filepath.FromSlash(e.Dest))

	info, err := os.Stat(src)
	if err != nil {
		return res, errors.WrapError(err, errors.CategoryFileSystem, "passthrough source missing").
			UserAction().
			WithContext("source", e.Source).
			Build()
	}

	absOut, _ := filepath.Abs(outputDir)
	start := time.Now()

	if !info.IsDir() {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return res, copyErr(err, e.Source, dst)
		}
		n, copied, err := c.copyFile(src, dst, info)
		if err != nil {
			return res, copyErr(err, e.Source, dst)
		}
		res.tally(n, copied)
		return res, nil
	}

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(path); abs == absOut {
				return filepath.SkipDir
			}
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		switch {
		case fi.IsDir() && d.Type()&fs.ModeSymlink != 0:
			c.logger.Warn("Skipping symlinked directory in passthrough copy", logfields.Path(path))
			return nil
		case fi.IsDir():
			return os.MkdirAll(target, fi.Mode().Perm()|0o700)
		case !fi.Mode().IsRegular():
			return nil
		}
		n, copied, err := c.copyFile(path, target, fi)
		if err != nil {
			return err
		}
		res.tally(n, copied)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, copyErr(err, e.Source, dst)
	}

	c.logger.Debug("Passthrough entry copied",
		logfields.Source(e.Source),
		logfields.Dest(e.Dest),
		logfields.Count(res.Files),
		slog.Int("skipped", res.Skipped),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return res, nil
}

func (r *EntryResult) tally(n int64, copied bool) {
	if !copied {
		r.Skipped++
		return
	}
	r.Files++
	r.Bytes += n
}

// copyFile writes src to dst atomically, preserving the mode and modification time.
func (c *Copier) copyFile(src, dst string, info fs.FileInfo) (int64, bool, error) {
	if !c.Force && unchanged(dst, info) {
		return 0, false, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, false, err
	}
	defer func() {
		_ = in.Close()
	}()

	pending, err := renameio.NewPendingFile(dst, renameio.WithStaticPermissions(info.Mode().Perm()))
	if err != nil {
		return 0, false, err
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	n, err := io.Copy(pending, in)
	if err != nil {
		return 0, false, err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return 0, false, err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func unchanged(dst string, src fs.FileInfo) bool {
	di, err := os.Stat(dst)
	if err != nil || !di.Mode().IsRegular() {
		return false
	}
	return di.Size() == src.Size() && di.ModTime().Equal(src.ModTime())
}

func copyErr(err error, source, dst string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, "passthrough copy failed").
		Retryable().
		WithContext("source", source).
		WithContext("dest", dst).
		Build()
}
