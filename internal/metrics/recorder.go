package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder receives build and watch observations.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(result ResultLabel)
	AddFilesCopied(entry string, files int, bytes int64)
	SetPagesPlanned(n int)
	IncWatchEvent(target string)
	IncRebuild(reason string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(ResultLabel)                {}
func (NoopRecorder) AddFilesCopied(string, int, int64)          {}
func (NoopRecorder) SetPagesPlanned(int)                        {}
func (NoopRecorder) IncWatchEvent(string)                       {}
func (NoopRecorder) IncRebuild(string)                          {}
