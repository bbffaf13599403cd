// Package api serves the security list, the raw series and the chart views
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"klinechart/internal/kline"
	"klinechart/internal/source"
	"klinechart/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	src        source.DataSource
	securities store.SecurityStore
	tracker    *kline.Tracker
	opts       kline.Options
	log        *slog.Logger
	registry   *prometheus.Registry
	metrics    *metrics
	httpServer *http.Server
}

// NewServer creates a Server reading series from src and the security list
// from securities.
func NewServer(src source.DataSource, securities store.SecurityStore, opts kline.Options, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	opts.Logger = log
	reg := prometheus.NewRegistry()
	return &Server{
		src:        src,
		securities: securities,
		tracker:    kline.NewTracker(),
		opts:       opts,
		log:        log,
		registry:   reg,
		metrics:    newMetrics(reg),
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "GET /api/stocks", s.handleListStocks)
	s.handle(mux, "GET /api/stocks/industries", s.handleIndustries)
	s.handle(mux, "GET /api/stocks/{ts_code}/basic", s.handleBasic)
	s.handle(mux, "GET /api/stocks/{ts_code}/candles", s.handleCandles)
	s.handle(mux, "GET /api/stocks/{ts_code}/features", s.handleFeatures)
	s.handle(mux, "GET /api/stocks/{ts_code}/chart", s.handleChart)
	s.handle(mux, "GET /api/stocks/{ts_code}/adj-factor", s.handleAdjFactor)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return corsMiddleware(mux)
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	route := pattern[strings.IndexByte(pattern, ' ')+1:]
	mux.Handle(pattern, s.metrics.instrument(route, h))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down HTTP server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
