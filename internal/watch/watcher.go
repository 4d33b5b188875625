package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// DefaultDebounce is the quiet window used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc receives the changed paths, relative to the root and slash-separated.
type ChangeFunc func(ctx context.Context, changed []string)

// Options configures a Watcher.
type Options struct {
	Root string
	// Targets are directories relative to Root. A missing target is picked up
	// once it is created, provided its parent directory exists.
	Targets  []string
	Debounce time.Duration
	// ResyncInterval enables periodic calls to OnResync when positive.
	ResyncInterval time.Duration

	OnChange ChangeFunc
	OnResync func(ctx context.Context)

	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Watcher turns filesystem events under the watch targets into debounced rebuild calls.
type Watcher struct {
	opts      Options
	root      string
	ready     chan struct{}
	readyOnce sync.Once

	// missing holds targets that did not exist; only the Run goroutine touches it.
	missing map[string]struct{}
}

// New validates opts and returns a Watcher. Nothing is watched until Run.
func New(opts Options) (*Watcher, error) {
	if opts.OnChange == nil {
		return nil, errors.ValidationError("watch: OnChange is required").Build()
	}
	if opts.ResyncInterval > 0 && opts.OnResync == nil {
		return nil, errors.ValidationError("watch: OnResync is required when resync is enabled").Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryWatch, "failed to resolve watch root").
			WithContext("root", opts.Root).
			Build()
	}
	return &Watcher{opts: opts, root: root, ready: make(chan struct{}), missing: map[string]struct{}{}}, nil
}

// Ready is closed once Run has registered all targets.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is canceled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryWatch, "failed to create file watcher").Build()
	}
	defer func() {
		if cerr := fsw.Close(); cerr != nil {
			w.opts.Logger.Warn("Error closing file watcher", logfields.Error(cerr))
		}
	}()

	watched := 0
	for _, target := range w.opts.Targets {
		dir := w.targetDir(target)
		fi, statErr := os.Stat(dir)
		if statErr != nil || !fi.IsDir() {
			w.opts.Logger.Warn("Watch target missing; waiting for it to be created", logfields.Target(target))
			w.watchForTarget(fsw, target)
			continue
		}
		w.addDirsRecursive(fsw, dir)
		watched++
	}
	w.opts.Logger.Info("Watching for changes", logfields.Count(watched))

	if w.opts.ResyncInterval > 0 {
		sched, err := NewScheduler(w.opts.Logger)
		if err != nil {
			return errors.WrapError(err, errors.CategoryWatch, "failed to start resync scheduler").Build()
		}
		if _, err := sched.ScheduleEvery("resync", w.opts.ResyncInterval, func() {
			w.opts.Recorder.IncRebuild("resync")
			w.opts.OnResync(ctx)
		}); err != nil {
			_ = sched.Stop()
			return err
		}
		sched.Start()
		defer func() {
			if serr := sched.Stop(); serr != nil {
				w.opts.Logger.Warn("Error stopping scheduler", logfields.Error(serr))
			}
		}()
	}

	w.readyOnce.Do(func() { close(w.ready) })
	return w.loop(ctx, fsw)
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) error {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var quietC <-chan time.Time
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			rel, keep := w.handleEvent(fsw, ev)
			if !keep {
				continue
			}
			pending[rel] = struct{}{}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.opts.Debounce)
			quietC = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("Watcher error", logfields.Error(err))
		case <-quietC:
			quietC = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.opts.Logger.Info("Change detected; rebuilding", logfields.Count(len(changed)))
			w.opts.Recorder.IncRebuild("change")
			w.opts.OnChange(ctx, changed)
		}
	}
}

// handleEvent registers new directories and maps the event to a root-relative path.
// Events outside the targets, reported by the parent watch of a missing target, are dropped.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) (string, bool) {
	if ev.Op == fsnotify.Chmod || shouldIgnore(ev.Name) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	target, ok := w.targetOf(rel)
	if !ok {
		return "", false
	}

	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(fsw, ev.Name)
			if _, wasMissing := w.missing[rel]; wasMissing {
				delete(w.missing, rel)
				w.opts.Logger.Info("Watch target created", logfields.Target(rel))
			}
		}
	}
	if rel == target && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
		w.opts.Logger.Warn("Watch target removed; waiting for it to be created", logfields.Target(target))
		w.watchForTarget(fsw, target)
	}
	w.opts.Recorder.IncWatchEvent(target)
	w.opts.Logger.Debug("File change detected", logfields.Path(rel), slog.String("op", ev.Op.String()))
	return rel, true
}

func (w *Watcher) targetDir(target string) string {
	return filepath.Join(w.root, filepath.FromSlash(target))
}

// targetOf returns the target that contains rel.
func (w *Watcher) targetOf(rel string) (string, bool) {
	for _, t := range w.opts.Targets {
		t = path.Clean(t)
		if rel == t || strings.HasPrefix(rel, t+"/") {
			return t, true
		}
	}
	return "", false
}

// watchForTarget marks target missing and watches its parent so the target's
// creation is seen.
func (w *Watcher) watchForTarget(fsw *fsnotify.Watcher, target string) {
	target = path.Clean(target)
	w.missing[target] = struct{}{}
	parent := filepath.Dir(w.targetDir(target))
	if fi, err := os.Stat(parent); err != nil || !fi.IsDir() {
		return
	}
	if err := fsw.Add(parent); err != nil {
		w.opts.Logger.Warn("Watch add failed", logfields.Path(parent), logfields.Error(err))
	}
}

func (w *Watcher) addDirsRecursive(fsw *fsnotify.Watcher, dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != dir && shouldIgnore(p) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			w.opts.Logger.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}
