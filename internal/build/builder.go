package build

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/pages"
	"git.home.luguber.info/inful/sitebuilder/internal/passthrough"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
)

// Options configures a Builder.
type Options struct {
	// Root is the project root; settings directories are resolved against it.
	Root string
	// Clean removes the output directory before a full build.
	Clean bool
	// ManifestPath is where the build manifest is written. Empty disables it.
	ManifestPath string
	// Configure produces the site configuration. Defaults to siteconfig.Configure.
	Configure func() siteconfig.Configuration

	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Builder runs builds for one project root.
type Builder struct {
	opts   Options
	copier *passthrough.Copier

	mu       sync.Mutex
	cfg      siteconfig.Configuration
	reg      *registry.Registry
	last     *manifest.BuildManifest
	loadedFS bool
	// lastOK is false until a build succeeds and after any build fails.
	lastOK bool
}

// New returns a Builder. Nothing touches the filesystem until Build.
func New(opts Options) *Builder {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Configure == nil {
		opts.Configure = siteconfig.Configure
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Builder{opts: opts, copier: passthrough.NewCopier(opts.Logger)}
}

// Registry returns the registrations of the latest build, or nil before the first one.
func (b *Builder) Registry() *registry.Registry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reg
}

// Build runs a full build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run(ctx, nil)
}

// Rebuild re-copies the passthrough entries that contain a changed path and
// replans every page. It runs a full build instead when there are no changed
// paths or the previous build did not succeed.
func (b *Builder) Rebuild(ctx context.Context, changed []string) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.lastOK || len(changed) == 0 {
		return b.run(ctx, nil)
	}
	return b.run(ctx, changed)
}

type buildRun struct {
	id        string
	logger    *slog.Logger
	outputDir string
	result    *Result
}

func (b *Builder) run(ctx context.Context, changed []string) (*Result, error) {
	start := time.Now()
	r := &buildRun{id: uuid.NewString()}
	r.logger = b.opts.Logger.With(logfields.BuildID(r.id))
	r.result = &Result{BuildID: r.id, StartTime: start, Incremental: changed != nil}

	err := b.runStages(ctx, r, changed)
	b.lastOK = err == nil

	res := r.result
	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(start)
	b.opts.Recorder.ObserveBuildDuration(res.Duration)
	switch {
	case err == nil:
		res.Status = StatusSuccess
		b.opts.Recorder.IncBuildOutcome(metrics.ResultSuccess)
		r.logger.Info("Build complete",
			logfields.DurationMS(float64(res.Duration.Microseconds())/1000),
			slog.Int("files", res.Passthrough.Files()),
			slog.Int("pages", len(res.Pages)))
	case ctx.Err() != nil:
		res.Status = StatusCancelled
		b.opts.Recorder.IncBuildOutcome(metrics.ResultCanceled)
		r.logger.Warn("Build cancelled")
	default:
		res.Status = StatusFailed
		b.opts.Recorder.IncBuildOutcome(metrics.ResultFailed)
		r.logger.Error("Build failed", logfields.Error(err))
	}
	return res, err
}

func (b *Builder) runStages(ctx context.Context, r *buildRun, changed []string) error {
	incremental := changed != nil

	if !incremental {
		if err := b.stage(ctx, r, StageConfigure, b.configure); err != nil {
			return err
		}
	}
	var err error
	r.outputDir, err = b.outputDir()
	if err != nil {
		return err
	}
	r.result.OutputDir = r.outputDir

	if !incremental && b.opts.Clean {
		if err := b.stage(ctx, r, StageClean, b.clean); err != nil {
			return err
		}
	}
	if err := b.stage(ctx, r, StagePassthrough, func(ctx context.Context, r *buildRun) error {
		return b.passthrough(ctx, r, changed)
	}); err != nil {
		return err
	}
	if err := b.stage(ctx, r, StagePlan, b.plan); err != nil {
		return err
	}
	return b.stage(ctx, r, StageManifest, b.writeManifest)
}

func (b *Builder) stage(ctx context.Context, r *buildRun, name string, fn func(context.Context, *buildRun) error) error {
	if err := ctx.Err(); err != nil {
		b.opts.Recorder.IncStageResult(name, metrics.ResultCanceled)
		return err
	}
	start := time.Now()
	err := fn(ctx, r)
	d := time.Since(start)
	b.opts.Recorder.ObserveStageDuration(name, d)
	switch {
	case err == nil:
		b.opts.Recorder.IncStageResult(name, metrics.ResultSuccess)
		r.logger.Debug("Stage complete", logfields.Stage(name), logfields.DurationMS(float64(d.Microseconds())/1000))
	case ctx.Err() != nil:
		b.opts.Recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		b.opts.Recorder.IncStageResult(name, metrics.ResultFailed)
	}
	return err
}

func (b *Builder) configure(_ context.Context, r *buildRun) error {
	cfg := b.opts.Configure()
	reg := registry.FromConfiguration(cfg)
	counts := reg.Counts()
	r.logger.Debug("Configuration applied",
		slog.Int("passthrough", counts.PassthroughPairs),
		slog.Int("watch_targets", counts.WatchTargets),
		slog.Int("global_data", counts.GlobalData))
	b.cfg = cfg
	b.reg = reg
	return nil
}

// outputDir resolves the output directory and refuses anything that would
// clean the project root or a directory outside it.
func (b *Builder) outputDir() (string, error) {
	out := path.Clean(filepath.ToSlash(b.cfg.Settings.Output))
	if out == "." || out == "/" || filepath.IsAbs(out) || out == ".." || strings.HasPrefix(out, "../") {
		return "", errors.ValidationError("output directory must be a sub-directory of the project root").
			WithContext("output", b.cfg.Settings.Output).
			Build()
	}
	return filepath.Join(b.opts.Root, filepath.FromSlash(out)), nil
}

func (b *Builder) clean(_ context.Context, r *buildRun) error {
	if err := os.RemoveAll(r.outputDir); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to clean output directory").
			WithContext("output", r.outputDir).
			Build()
	}
	r.logger.Debug("Cleaned output directory", logfields.Output(r.outputDir))
	return nil
}

func (b *Builder) passthrough(ctx context.Context, r *buildRun, changed []string) error {
	entries := b.reg.Passthrough()
	if changed != nil {
		entries = affectedEntries(entries, changed)
		if err := b.removeDeleted(r, changed); err != nil {
			return err
		}
	}
	res, err := b.copier.Copy(ctx, b.opts.Root, r.outputDir, entries)
	r.result.Passthrough = res
	for _, e := range res.Entries {
		b.opts.Recorder.AddFilesCopied(e.Source, e.Files, e.Bytes)
	}
	return err
}

// affectedEntries returns the entries whose source contains one of the changed paths.
func affectedEntries(entries []registry.Entry, changed []string) []registry.Entry {
	var out []registry.Entry
	for _, e := range entries {
		for _, c := range changed {
			if within(c, e.Source) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func within(p, dir string) bool {
	dir = path.Clean(dir)
	p = path.Clean(p)
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// removeDeleted drops output copies of passthrough files that no longer exist.
func (b *Builder) removeDeleted(r *buildRun, changed []string) error {
	for _, e := range b.reg.Passthrough() {
		for _, c := range changed {
			if !within(c, e.Source) {
				continue
			}
			if _, err := os.Lstat(filepath.Join(b.opts.Root, filepath.FromSlash(c))); !stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			rest := strings.TrimPrefix(strings.TrimPrefix(path.Clean(c), path.Clean(e.Source)), "/")
			dst := filepath.Join(r.outputDir, filepath.FromSlash(e.Dest), filepath.FromSlash(rest))
			if err := os.RemoveAll(dst); err != nil {
				return errors.WrapError(err, errors.CategoryFileSystem, "failed to remove deleted passthrough file").
					WithContext("dest", dst).
					Build()
			}
			r.logger.Debug("Removed deleted passthrough file", logfields.Dest(dst))
		}
	}
	return nil
}

func (b *Builder) plan(ctx context.Context, r *buildRun) error {
	s := b.cfg.Settings
	inputRoot := filepath.Join(b.opts.Root, filepath.FromSlash(s.Input))

	exclude := []string{s.Output, s.Includes, s.Data}
	exclude = append(exclude, b.reg.PassthroughSources()...)
	for i, dir := range exclude {
		rel, err := filepath.Rel(inputRoot, filepath.Join(b.opts.Root, filepath.FromSlash(dir)))
		if err == nil {
			exclude[i] = filepath.ToSlash(rel)
		}
	}

	planner := &pages.Planner{
		InputRoot: inputRoot,
		Settings:  s,
		Exclude:   exclude,
		Computed:  b.reg.ComputedPermalink(),
		Logger:    r.logger,
	}
	planned, err := planner.Plan(ctx)
	if err != nil {
		return err
	}
	r.result.Pages = planned
	b.opts.Recorder.SetPagesPlanned(len(planned))
	return nil
}

func (b *Builder) writeManifest(_ context.Context, r *buildRun) error {
	m := &manifest.BuildManifest{
		ID:        r.id,
		Timestamp: r.result.StartTime.UTC(),
		Status:    string(StatusSuccess),
		Settings:  b.cfg.Settings,
		Registrations: manifest.Registrations{
			Passthrough:  passthroughMap(b.reg.Passthrough()),
			WatchTargets: b.reg.WatchTargets(),
			GlobalData:   b.reg.GlobalDataKeys(),
		},
		Passthrough: r.result.Passthrough,
		Pages:       r.result.Pages,
	}
	m.DurationMS = time.Since(r.result.StartTime).Milliseconds()
	hash, err := m.ComputeHash()
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to hash build manifest").Build()
	}
	m.Hash = hash
	r.result.ManifestHash = hash

	prev := b.previousManifest(r.logger)
	r.result.Changes = manifest.Diff(prev, m)
	b.last = m
	if prev != nil && prev.Hash == hash {
		r.logger.Debug("Build plan unchanged", slog.String("hash", hash))
	}
	if !r.result.Changes.Empty() {
		r.logger.Info("Page plan changed",
			slog.Int("added", len(r.result.Changes.Added)),
			slog.Int("removed", len(r.result.Changes.Removed)),
			slog.Int("changed", len(r.result.Changes.Changed)))
	}

	if b.opts.ManifestPath == "" {
		return nil
	}
	if err := m.Save(b.opts.ManifestPath); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write build manifest").
			WithContext("path", b.opts.ManifestPath).
			Build()
	}
	return nil
}

// previousManifest returns the last in-memory manifest, falling back to the
// one on disk for the first build of the process.
func (b *Builder) previousManifest(logger *slog.Logger) *manifest.BuildManifest {
	if b.last != nil || b.loadedFS || b.opts.ManifestPath == "" {
		return b.last
	}
	b.loadedFS = true
	prev, err := manifest.Load(b.opts.ManifestPath)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			logger.Warn("Ignoring unreadable build manifest", logfields.Path(b.opts.ManifestPath), logfields.Error(err))
		}
		return nil
	}
	return prev
}

func passthroughMap(entries []registry.Entry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Source] = e.Dest
	}
	return m
}
