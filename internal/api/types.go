package api

import (
	"klinechart/internal/chart"
	"klinechart/internal/domain"
	"klinechart/internal/kline"
	"klinechart/internal/series"
	"klinechart/internal/source"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StockListResponse is one page of the security list.
type StockListResponse struct {
	Items      []domain.Security `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// IndustriesResponse lists the distinct industries.
type IndustriesResponse struct {
	Items []string `json:"items"`
}

// CandlesResponse holds the normalized daily bars and adjustment factors.
type CandlesResponse struct {
	TsCode    string           `json:"ts_code"`
	Daily     series.Canonical `json:"daily"`
	AdjFactor series.Canonical `json:"adj_factor"`
}

// FeaturesResponse holds the normalized indicator rows.
type FeaturesResponse struct {
	TsCode     string           `json:"ts_code"`
	Indicators series.Canonical `json:"indicators"`
}

// ChartResponse is the chart view of a security. When the latest fetch
// failed but an earlier one succeeded, Status is "error", Error carries the
// reason and Chart is the earlier view.
type ChartResponse struct {
	TsCode     string        `json:"ts_code"`
	Status     kline.State   `json:"status"`
	Error      string        `json:"error,omitempty"`
	Generation uint64        `json:"generation"`
	Empty      bool          `json:"empty"`
	Degraded   []source.Kind `json:"degraded"`
	Chart      *chart.Spec   `json:"chart,omitempty"`
	Tooltips   [][]string    `json:"tooltips,omitempty"`
}

// AdjFactorResponse is one page of the adjustment factor table.
type AdjFactorResponse struct {
	TsCode string      `json:"ts_code"`
	Status kline.State `json:"status"`
	Error  string      `json:"error,omitempty"`
	kline.AdjPage
}
