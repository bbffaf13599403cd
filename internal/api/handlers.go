package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"klinechart/internal/domain"
	"klinechart/internal/kline"
	"klinechart/internal/series"
	"klinechart/internal/source"
	"klinechart/internal/store"
)

func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := store.Filter{Name: q.Name, TsCode: q.TsCode, Industry: q.Industry}
	items, total, page, err := s.securities.ListSecurities(r.Context(), filter, q.Page, q.PageSize)
	if err != nil {
		s.log.Error("listing securities", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []domain.Security{}
	}
	writeJSON(w, http.StatusOK, StockListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   q.PageSize,
		TotalPages: series.TotalPages(total, q.PageSize),
	})
}

func (s *Server) handleIndustries(w http.ResponseWriter, r *http.Request) {
	items, err := s.securities.Industries(r.Context())
	if err != nil {
		s.log.Error("listing industries", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []string{}
	}
	writeJSON(w, http.StatusOK, IndustriesResponse{Items: items})
}

func (s *Server) handleBasic(w http.ResponseWriter, r *http.Request) {
	code := tsCode(r)
	sec, err := s.securities.GetSecurity(r.Context(), code)
	if err != nil {
		s.log.Error("reading security", "ts_code", code, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sec == nil {
		writeError(w, http.StatusNotFound, "Stock not found")
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	code := tsCode(r)
	b := source.FetchAll(r.Context(), s.src, code)
	s.recordFetch(b)
	if err := b.PrimaryErr(); err != nil {
		s.log.Warn("fetching daily bars", "ts_code", code, "error", err)
		writeError(w, http.StatusBadGateway, failureReason(err))
		return
	}
	if err := b.Err(source.KindAdjFactor); err != nil {
		s.log.Warn("fetching adj factors", "ts_code", code, "error", err)
	}
	writeJSON(w, http.StatusOK, CandlesResponse{
		TsCode:    code,
		Daily:     nonNil(series.Normalize(b.Daily)),
		AdjFactor: nonNil(series.Normalize(b.AdjFactor)),
	})
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	code := tsCode(r)
	rows, err := s.src.Indicators(r.Context(), code)
	if err != nil {
		s.metrics.fetchFailures.WithLabelValues(string(source.KindIndicators)).Inc()
		s.log.Warn("fetching indicators", "ts_code", code, "error", err)
		writeError(w, http.StatusBadGateway, failureReason(err))
		return
	}
	writeJSON(w, http.StatusOK, FeaturesResponse{
		TsCode:     code,
		Indicators: nonNil(series.Normalize(rows)),
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	code := tsCode(r)
	snap := s.build(r.Context(), code)
	if snap.View == nil {
		writeError(w, http.StatusBadGateway, snap.Err)
		return
	}

	v := snap.View
	degraded := v.Degraded
	if degraded == nil {
		degraded = []source.Kind{}
	}
	writeJSON(w, http.StatusOK, ChartResponse{
		TsCode:     code,
		Status:     snap.State,
		Error:      snap.Err,
		Generation: snap.Generation,
		Empty:      v.Empty,
		Degraded:   degraded,
		Chart:      v.Chart,
		Tooltips:   v.Chart.Tooltips(),
	})
}

func (s *Server) handleAdjFactor(w http.ResponseWriter, r *http.Request) {
	code := tsCode(r)
	q, err := parsePageQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Paging reuses the current view; only a key with no view yet fetches.
	snap := s.tracker.Snapshot(code)
	if snap.View == nil {
		snap = s.build(r.Context(), code)
	}
	if snap.View == nil {
		writeError(w, http.StatusBadGateway, snap.Err)
		return
	}
	writeJSON(w, http.StatusOK, AdjFactorResponse{
		TsCode:  code,
		Status:  snap.State,
		Error:   snap.Err,
		AdjPage: kline.AdjTablePage(snap.View, q.Page),
	})
}

// build fetches and assembles the view of code and records the outcome in
// the tracker. A build superseded by a newer request for the same code does
// not replace the newer one's result; the returned snapshot then carries the
// state left by the newest build, falling back to this build's own view
// when no other view exists yet.
func (s *Server) build(ctx context.Context, code string) kline.Snapshot {
	start := time.Now()
	tok := s.tracker.Begin(code)

	b := source.FetchAll(ctx, s.src, code)
	s.recordFetch(b)
	view, err := kline.Assemble(b, s.opts)
	s.metrics.buildDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.builds.WithLabelValues("error").Inc()
		reason := failureReason(err)
		s.log.Warn("building chart view", "ts_code", code, "error", err)
		if !s.tracker.Fail(tok, reason) {
			s.log.Debug("discarding superseded build", "ts_code", code, "generation", tok.Generation)
		}
		snap := s.tracker.Snapshot(code)
		if snap.Err == "" {
			snap.Err = reason
		}
		return snap
	}

	outcome := "success"
	if len(view.Degraded) > 0 {
		outcome = "degraded"
	}
	s.metrics.builds.WithLabelValues(outcome).Inc()
	for kind, n := range view.Dropped {
		s.metrics.droppedRows.WithLabelValues(string(kind)).Add(float64(n))
	}

	if s.tracker.Resolve(tok, view) {
		return s.tracker.Snapshot(code)
	}
	s.log.Debug("discarding superseded build", "ts_code", code, "generation", tok.Generation)
	snap := s.tracker.Snapshot(code)
	if snap.View == nil {
		snap.View = view
	}
	return snap
}

func (s *Server) recordFetch(b source.Bundle) {
	for kind := range b.Errs {
		s.metrics.fetchFailures.WithLabelValues(string(kind)).Inc()
	}
}

func tsCode(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(r.PathValue("ts_code")))
}

// failureReason returns the upstream reason of a fetch failure, or the error
// text.
func failureReason(err error) string {
	var fe *source.FetchError
	if errors.As(err, &fe) && fe.Reason != "" {
		return fe.Reason
	}
	return err.Error()
}

func nonNil(c series.Canonical) series.Canonical {
	if c == nil {
		return series.Canonical{}
	}
	return c
}
