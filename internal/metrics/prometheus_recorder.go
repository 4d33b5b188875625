package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitebuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	filesCopied   *prom.CounterVec
	bytesCopied   *prom.CounterVec
	pagesPlanned  prom.Gauge
	watchEvents   *prom.CounterVec
	rebuilds      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the collectors on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"result"}),
		filesCopied: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "passthrough_files_total",
			Help:      "Files copied verbatim, by passthrough entry",
		}, []string{"entry"}),
		bytesCopied: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "passthrough_bytes_total",
			Help:      "Bytes copied verbatim, by passthrough entry",
		}, []string{"entry"}),
		pagesPlanned: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "pages_planned",
			Help:      "Pages planned by the last build",
		}),
		watchEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "Filesystem events observed, by watch target",
		}, []string{"target"}),
		rebuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_total",
			Help:      "Rebuilds triggered in watch mode, by reason",
		}, []string{"reason"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.buildDuration, pr.buildOutcome,
		pr.filesCopied, pr.bytesCopied, pr.pagesPlanned, pr.watchEvents, pr.rebuilds)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(result ResultLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) AddFilesCopied(entry string, files int, bytes int64) {
	if p == nil {
		return
	}
	p.filesCopied.WithLabelValues(entry).Add(float64(files))
	p.bytesCopied.WithLabelValues(entry).Add(float64(bytes))
}

func (p *PrometheusRecorder) SetPagesPlanned(n int) {
	if p == nil {
		return
	}
	p.pagesPlanned.Set(float64(n))
}

func (p *PrometheusRecorder) IncWatchEvent(target string) {
	if p == nil {
		return
	}
	p.watchEvents.WithLabelValues(target).Inc()
}

func (p *PrometheusRecorder) IncRebuild(reason string) {
	if p == nil {
		return
	}
	p.rebuilds.WithLabelValues(reason).Inc()
}
