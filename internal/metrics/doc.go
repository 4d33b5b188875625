// Package metrics defines the observability hooks used by the builder and the
// watch loop. NoopRecorder is the default; PrometheusRecorder registers its
// collectors on a caller-supplied registry and HTTPHandler exposes them.
package metrics
