package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	fetchFailures *prometheus.CounterVec
	droppedRows   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klinechart_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "klinechart_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route"},
		),
		builds: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klinechart_view_builds_total",
				Help: "Chart view builds by outcome",
			},
			[]string{"outcome"},
		),
		buildDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "klinechart_view_build_duration_seconds",
				Help:    "Time to fetch and assemble a chart view",
				Buckets: prometheus.DefBuckets,
			},
		),
		fetchFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klinechart_fetch_failures_total",
				Help: "Failed series fetches by source",
			},
			[]string{"source"},
		),
		droppedRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klinechart_dropped_rows_total",
				Help: "Malformed or duplicate rows removed during normalization",
			},
			[]string{"source"},
		),
	}
}

// instrument records the count and latency of requests to route.
func (m *metrics) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		m.requests.WithLabelValues(route, strconv.Itoa(rw.status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
