// Package store persists the daily series of CN securities as Parquet files
// and the security list in SQLite.
package store

import (
	"context"

	"klinechart/internal/domain"
)

// SeriesStore persists the three per-security daily series.
type SeriesStore interface {
	// WriteDaily merges daily bars into storage; a later row for the same
	// security and date replaces the stored one.
	WriteDaily(ctx context.Context, rows []DailyRecord) error

	// WriteAdjFactor merges adjustment factors into storage.
	WriteAdjFactor(ctx context.Context, rows []AdjFactorRecord) error

	// WriteIndicators merges precomputed indicator rows into storage.
	WriteIndicators(ctx context.Context, rows []IndicatorRecord) error
}

// Filter narrows a security listing. Empty fields match everything.
type Filter struct {
	Name     string
	TsCode   string
	Industry string
}

// SecurityStore persists and queries the security list.
type SecurityStore interface {
	// ReplaceSecurities replaces the whole list and returns the row count.
	ReplaceSecurities(ctx context.Context, securities []domain.Security) (int, error)

	// ListSecurities returns one page of securities matching f, ordered by
	// ts_code, the total match count and the page actually served.
	ListSecurities(ctx context.Context, f Filter, page, pageSize int) (items []domain.Security, total int, served int, err error)

	// Industries returns the distinct non-empty industries in order.
	Industries(ctx context.Context) ([]string, error)

	// GetSecurity returns the security with tsCode, or nil if there is none.
	GetSecurity(ctx context.Context, tsCode string) (*domain.Security, error)

	// Codes returns every ts_code in order.
	Codes(ctx context.Context) ([]string, error)
}
