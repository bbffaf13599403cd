package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"klinechart/internal/domain"
	"klinechart/internal/util"
)

var _ DataSource = (*HTTPSource)(nil)

// HTTPOptions tunes an HTTPSource.
type HTTPOptions struct {
	Timeout         time.Duration
	MaxAttempts     int
	RetryDelay      time.Duration
	RateLimitPerMin int
}

// HTTPSource reads series from an upstream API exposing
// GET {base}/stocks/{code}/candles -> {"daily": [...], "adj_factor": [...]} and
// GET {base}/stocks/{code}/features -> {"indicators": [...]}.
type HTTPSource struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *util.RateLimiter
	maxAttempts int
	retryDelay  time.Duration
	log         *slog.Logger
}

// NewHTTPSource creates an HTTPSource for baseURL.
func NewHTTPSource(baseURL string, opts HTTPOptions, log *slog.Logger) *HTTPSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &HTTPSource{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: opts.Timeout},
		limiter:     util.NewRateLimiter(opts.RateLimitPerMin),
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		log:         log,
	}
}

type candlesResponse struct {
	Daily     domain.RawSeries `json:"daily"`
	AdjFactor domain.RawSeries `json:"adj_factor"`
}

type featuresResponse struct {
	Indicators domain.RawSeries `json:"indicators"`
}

// Daily returns the daily bars from the candles endpoint.
func (s *HTTPSource) Daily(ctx context.Context, tsCode string) (domain.RawSeries, error) {
	var resp candlesResponse
	if err := s.get(ctx, KindDaily, "/stocks/"+url.PathEscape(tsCode)+"/candles", &resp); err != nil {
		return nil, err
	}
	return resp.Daily, nil
}

// AdjFactor returns the adjustment factors from the candles endpoint.
func (s *HTTPSource) AdjFactor(ctx context.Context, tsCode string) (domain.RawSeries, error) {
	var resp candlesResponse
	if err := s.get(ctx, KindAdjFactor, "/stocks/"+url.PathEscape(tsCode)+"/candles", &resp); err != nil {
		return nil, err
	}
	return resp.AdjFactor, nil
}

// Indicators returns the indicator rows from the features endpoint.
func (s *HTTPSource) Indicators(ctx context.Context, tsCode string) (domain.RawSeries, error) {
	var resp featuresResponse
	if err := s.get(ctx, KindIndicators, "/stocks/"+url.PathEscape(tsCode)+"/features", &resp); err != nil {
		return nil, err
	}
	return resp.Indicators, nil
}

// get performs a GET with retries. 5xx, 429 and transport errors are retried;
// other non-2xx statuses fail immediately.
func (s *HTTPSource) get(ctx context.Context, kind Kind, path string, dst any) error {
	err := util.Retry(ctx, s.maxAttempts, s.retryDelay, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		return s.getOnce(ctx, kind, path, dst)
	})
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Source: kind, Reason: err.Error(), Err: err}
}

func (s *HTTPSource) getOnce(ctx context.Context, kind Kind, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return util.Permanent(err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn("upstream request failed", "source", kind, "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		fe := &FetchError{Source: kind, Status: resp.StatusCode, Reason: statusReason(resp.StatusCode, body)}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			s.log.Warn("upstream error status", "source", kind, "path", path, "status", resp.StatusCode)
			return fe
		}
		return util.Permanent(fe)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return util.Permanent(&FetchError{
			Source: kind,
			Status: resp.StatusCode,
			Reason: fmt.Sprintf("decoding response: %v", err),
			Err:    err,
		})
	}
	return nil
}

// statusReason prefers a FastAPI-style {"detail": "..."} body and falls back
// to the status text.
func statusReason(status int, body []byte) string {
	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &detail) == nil && detail.Detail != "" {
		return detail.Detail
	}
	return http.StatusText(status)
}
