package commands

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/registry"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
	"git.home.luguber.info/inful/sitebuilder/internal/siteconfig"
	"git.home.luguber.info/inful/sitebuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Root        string `help:"Project root (overrides the configured root)" type:"path"`
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (overrides metrics.listen)"`
}

func (w *WatchCmd) Run(ctx context.Context, g *Global) error {
	cfg, err := g.Config()
	if err != nil {
		return err
	}
	root := resolveRoot(w.Root, cfg)
	logger := g.Logger

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	addr := w.MetricsAddr
	if addr == "" {
		addr = cfg.Metrics.Listen
	}
	if addr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		stop, err := serveMetrics(addr, reg, g)
		if err != nil {
			return err
		}
		defer stop()
	}

	builder := build.New(build.Options{
		Root:         root,
		Clean:        cfg.ShouldClean(),
		ManifestPath: cfg.ManifestPath(root),
		Recorder:     recorder,
		Logger:       logger,
	})
	if _, err := builder.Build(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("Initial build failed; watching for changes")
	}

	policy := retry.FromConfig(cfg.Watch.Retry)
	reg := builder.Registry()
	if reg == nil {
		reg = registry.FromConfiguration(siteconfig.Configure())
	}
	targets := reg.WatchTargets()
	watcher, err := watch.New(watch.Options{
		Root:           root,
		Targets:        targets,
		Debounce:       cfg.Watch.Debounce,
		ResyncInterval: cfg.Watch.ResyncInterval,
		OnChange: func(ctx context.Context, changed []string) {
			_ = policy.Do(ctx, func(ctx context.Context) error {
				_, err := builder.Rebuild(ctx, changed)
				return err
			}, func(attempt int, delay time.Duration, err error) {
				logger.Warn("Rebuild failed; retrying",
					slog.Int("attempt", attempt),
					logfields.DurationMS(float64(delay.Milliseconds())),
					logfields.Error(err))
			})
		},
		OnResync: func(ctx context.Context) {
			_, _ = builder.Build(ctx)
		},
		Recorder: recorder,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

// serveMetrics starts the metrics endpoint and returns a function that shuts it down.
func serveMetrics(addr string, reg *prom.Registry, g *Global) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to listen for metrics").
			WithContext("addr", addr).
			Build()
	}
	srv := &http.Server{Handler: metrics.NewServeMux(reg, g.Logger), ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.Logger.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	g.Logger.Info("Serving metrics", slog.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			g.Logger.Warn("Metrics server shutdown error", logfields.Error(err))
		}
		<-done
	}, nil
}
