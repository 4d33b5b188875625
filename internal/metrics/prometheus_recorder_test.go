package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("passthrough", 150*time.Millisecond)
	pr.IncStageResult("passthrough", ResultSuccess)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncBuildOutcome(ResultSuccess)
	pr.AddFilesCopied("modules", 3, 1024)
	pr.AddFilesCopied("modules", 2, 10)
	pr.SetPagesPlanned(7)
	pr.IncWatchEvent("content")
	pr.IncRebuild("change")

	require.InDelta(t, 5, testutil.ToFloat64(pr.filesCopied.WithLabelValues("modules")), 0)
	require.InDelta(t, 1034, testutil.ToFloat64(pr.bytesCopied.WithLabelValues("modules")), 0)
	require.InDelta(t, 7, testutil.ToFloat64(pr.pagesPlanned), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.stageResults.WithLabelValues("passthrough", "success")), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncRebuild("resync")
	pr.SetPagesPlanned(1)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncRebuild("change")

	rec := httptest.NewRecorder()
	HTTPHandler(reg, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "sitebuilder_rebuilds_total"))

	rec = httptest.NewRecorder()
	HTTPHandler(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNewServeMux(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).SetPagesPlanned(3)
	mux := NewServeMux(reg, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HandlerPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "sitebuilder_pages_planned 3")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
