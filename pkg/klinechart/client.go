// Package klinechart is a Go client for the kline-server HTTP API.
package klinechart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"klinechart/internal/api"
	"klinechart/internal/domain"
)

// Response types shared with the server.
type (
	Security          = domain.Security
	StockList         = api.StockListResponse
	Candles           = api.CandlesResponse
	Features          = api.FeaturesResponse
	Chart             = api.ChartResponse
	AdjFactorPage     = api.AdjFactorResponse
	industriesPayload = api.IndustriesResponse
)

// APIError is returned for non-2xx responses.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("klinechart: status %d: %s", e.Status, e.Detail)
}

// Client provides a Go SDK for interacting with the kline-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client. baseURL is the server root, e.g.
// http://localhost:8000.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ListParams filters and pages the security list. Zero values are omitted.
type ListParams struct {
	Page     int
	PageSize int
	Name     string
	TsCode   string
	Industry string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.Name != "" {
		v.Set("name", p.Name)
	}
	if p.TsCode != "" {
		v.Set("ts_code", p.TsCode)
	}
	if p.Industry != "" {
		v.Set("industry", p.Industry)
	}
	return v
}

// ListStocks retrieves one page of the security list.
func (c *Client) ListStocks(ctx context.Context, p ListParams) (*StockList, error) {
	var out StockList
	if err := c.get(ctx, "/api/stocks", p.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Industries retrieves the distinct industries.
func (c *Client) Industries(ctx context.Context) ([]string, error) {
	var out industriesPayload
	if err := c.get(ctx, "/api/stocks/industries", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Basic retrieves the basic record of a security.
func (c *Client) Basic(ctx context.Context, tsCode string) (*Security, error) {
	var out Security
	if err := c.get(ctx, stockPath(tsCode, "basic"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Candles retrieves the normalized daily bars and adjustment factors.
func (c *Client) Candles(ctx context.Context, tsCode string) (*Candles, error) {
	var out Candles
	if err := c.get(ctx, stockPath(tsCode, "candles"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Features retrieves the normalized indicator rows.
func (c *Client) Features(ctx context.Context, tsCode string) (*Features, error) {
	var out Features
	if err := c.get(ctx, stockPath(tsCode, "features"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chart retrieves the chart view with resolved tooltips.
func (c *Client) Chart(ctx context.Context, tsCode string) (*Chart, error) {
	var out Chart
	if err := c.get(ctx, stockPath(tsCode, "chart"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdjFactor retrieves one page of the adjustment factor table.
func (c *Client) AdjFactor(ctx context.Context, tsCode string, page int) (*AdjFactorPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var out AdjFactorPage
	if err := c.get(ctx, stockPath(tsCode, "adj-factor"), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func stockPath(tsCode, resource string) string {
	return "/api/stocks/" + url.PathEscape(tsCode) + "/" + resource
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		apiErr := &APIError{Status: resp.StatusCode, Detail: http.StatusText(resp.StatusCode)}
		var e api.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Detail != "" {
			apiErr.Detail = e.Detail
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
