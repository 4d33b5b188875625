// Package build runs the site build pipeline.
//
// A build executes the stages configure, clean, passthrough, plan and
// manifest in order. Stage durations and outcomes go to a metrics.Recorder and
// every log line carries the build id. Builds on one Builder never overlap.
package build
