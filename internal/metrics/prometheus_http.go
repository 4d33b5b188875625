package metrics

import (
	"log/slog"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// HandlerPath is where NewServeMux mounts the metrics handler.
const HandlerPath = "/metrics"

// HTTPHandler serves reg in the Prometheus and OpenMetrics formats. A failing
// collector is logged at warn level and the remaining metrics are still served.
// A nil reg serves an empty registry.
func HTTPHandler(reg *prom.Registry, logger *slog.Logger) http.Handler {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
}

// NewServeMux returns a mux exposing HTTPHandler at HandlerPath.
func NewServeMux(reg *prom.Registry, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(HandlerPath, HTTPHandler(reg, logger))
	return mux
}
