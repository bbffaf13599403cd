// Package kline assembles the fetched series of one security into a chart
// view and tracks the view state of concurrent builds.
package kline

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/guregu/null/v6"

	"klinechart/internal/chart"
	"klinechart/internal/domain"
	"klinechart/internal/series"
	"klinechart/internal/source"
)

// ErrNoData reports that the primary OHLCV series could not be fetched, as
// distinct from a security that simply has no bars.
var ErrNoData = errors.New("no data")

// Defaults used when Options leaves a value unset.
const (
	DefaultTrailingWindow = 120
	DefaultPageSize       = 10
)

// Options controls Assemble.
type Options struct {
	TrailingWindow int
	PageSize       int
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.TrailingWindow <= 0 {
		o.TrailingWindow = DefaultTrailingWindow
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// AdjRow is one row of the adjustment factor table.
type AdjRow struct {
	TradeDate domain.TradeDate `json:"trade_date"`
	AdjFactor null.Float       `json:"adj_factor"`
}

// View is everything derived from one fetch of a security.
type View struct {
	TsCode  string
	Aligned series.Aligned
	Chart   *chart.Spec
	// AdjTable holds the trailing window rows with their adjustment factor.
	AdjTable []AdjRow
	PageSize int
	// Empty is set when the primary series was fetched but has no rows.
	Empty bool
	// Degraded lists the auxiliary sources whose fetch failed.
	Degraded []source.Kind
	// Dropped counts malformed rows removed from each source.
	Dropped map[source.Kind]int
}

// Assemble normalizes and joins the series in b and builds the chart and the
// adjustment table. It fails only when the primary fetch failed; failed
// auxiliaries are treated as empty series.
func Assemble(b source.Bundle, opts Options) (*View, error) {
	opts = opts.withDefaults()
	if err := b.PrimaryErr(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", b.TsCode, ErrNoData, err)
	}

	v := &View{
		TsCode:   b.TsCode,
		PageSize: opts.PageSize,
		Dropped:  make(map[source.Kind]int),
	}

	normalize := func(kind source.Kind, raw domain.RawSeries) series.Canonical {
		if err := b.Err(kind); err != nil {
			v.Degraded = append(v.Degraded, kind)
			opts.Logger.Warn("auxiliary series unavailable", "ts_code", b.TsCode, "source", kind, "error", err)
			return nil
		}
		canon := series.Normalize(raw)
		if n := series.Dropped(raw, canon); n > 0 {
			v.Dropped[kind] = n
			opts.Logger.Debug("dropped malformed or duplicate rows", "ts_code", b.TsCode, "source", kind, "count", n)
		}
		return canon
	}

	daily := normalize(source.KindDaily, b.Daily)
	adj := normalize(source.KindAdjFactor, b.AdjFactor)
	indicators := normalize(source.KindIndicators, b.Indicators)
	sort.Slice(v.Degraded, func(i, j int) bool { return v.Degraded[i] < v.Degraded[j] })

	v.Aligned = series.Join(daily, map[string]series.Auxiliary{
		domain.AuxAdj:        {Series: adj, Fields: []string{domain.FieldAdjFactor}},
		domain.AuxIndicators: {Series: indicators},
	})
	v.Empty = v.Aligned.Len() == 0

	window := series.TrailingWindow(v.Aligned.Rows, opts.TrailingWindow)
	v.Chart = chart.Build(v.Aligned, chart.IndicatorFieldsOf(v.Aligned), window)

	v.AdjTable = make([]AdjRow, len(window.Items))
	for i, r := range window.Items {
		v.AdjTable[i] = AdjRow{
			TradeDate: r.TradeDate,
			AdjFactor: r.Value(domain.AuxAdj, domain.FieldAdjFactor),
		}
	}
	return v, nil
}

// AdjPage is one page of the adjustment factor table.
type AdjPage struct {
	Items      []AdjRow `json:"items"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	TotalPages int      `json:"total_pages"`
}

// AdjTablePage returns page of v's adjustment table. Out of range pages are
// clamped.
func AdjTablePage(v *View, page int) AdjPage {
	var rows []AdjRow
	size := DefaultPageSize
	if v != nil {
		rows = v.AdjTable
		if v.PageSize > 0 {
			size = v.PageSize
		}
	}
	items, totalPages := series.Slice(rows, page, size)
	if items == nil {
		items = []AdjRow{}
	}
	return AdjPage{
		Items:      items,
		Total:      len(rows),
		Page:       series.ClampPage(page, totalPages),
		TotalPages: totalPages,
	}
}
