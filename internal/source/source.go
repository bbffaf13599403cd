// Package source defines how the three daily series of a security are
// retrieved and fetches them concurrently, tolerating partial failure.
package source

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"klinechart/internal/domain"
)

// Kind names one of the three independently fetched series.
type Kind string

const (
	KindDaily      Kind = "daily"
	KindAdjFactor  Kind = "adj_factor"
	KindIndicators Kind = "indicators"
)

// DataSource retrieves the raw rows of each series for a security. Retries
// and backoff are the implementation's concern.
type DataSource interface {
	Daily(ctx context.Context, tsCode string) (domain.RawSeries, error)
	AdjFactor(ctx context.Context, tsCode string) (domain.RawSeries, error)
	Indicators(ctx context.Context, tsCode string) (domain.RawSeries, error)
}

// FetchError reports a failed retrieval. Status is an HTTP-style status code
// (0 when the failure happened before a response) and Reason is opaque text
// suitable for display.
type FetchError struct {
	Source Kind
	Status int
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: status %d: %s", e.Source, e.Status, e.Reason)
	}
	return fmt.Sprintf("fetching %s: %s", e.Source, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Bundle holds the outcome of fetching all three series. A series whose
// fetch failed is nil and its error is recorded in Errs.
type Bundle struct {
	TsCode     string
	Daily      domain.RawSeries
	AdjFactor  domain.RawSeries
	Indicators domain.RawSeries
	Errs       map[Kind]error
}

// Err returns the fetch error for kind, if any.
func (b Bundle) Err(kind Kind) error { return b.Errs[kind] }

// PrimaryErr returns the error of the daily bar fetch.
func (b Bundle) PrimaryErr() error { return b.Errs[KindDaily] }

// FetchAll fetches the three series concurrently. A failure of one fetch
// does not cancel the others.
func FetchAll(ctx context.Context, ds DataSource, tsCode string) Bundle {
	b := Bundle{TsCode: tsCode, Errs: make(map[Kind]error)}
	var mu sync.Mutex

	fetches := []struct {
		kind Kind
		fn   func(context.Context, string) (domain.RawSeries, error)
		dst  *domain.RawSeries
	}{
		{KindDaily, ds.Daily, &b.Daily},
		{KindAdjFactor, ds.AdjFactor, &b.AdjFactor},
		{KindIndicators, ds.Indicators, &b.Indicators},
	}

	var g errgroup.Group
	for _, f := range fetches {
		g.Go(func() error {
			rows, err := f.fn(ctx, tsCode)
			if err != nil {
				mu.Lock()
				b.Errs[f.kind] = err
				mu.Unlock()
				return nil
			}
			*f.dst = rows
			return nil
		})
	}
	_ = g.Wait()
	return b
}
