// Package series reconciles daily time series keyed by trade date: it
// deduplicates and orders raw rows, left-joins auxiliary series onto a
// primary date axis, and cuts trailing windows and pages out of the result.
//
// Every function here is pure. Malformed input degrades the output and is
// never reported as an error.
package series

import (
	"sort"

	"klinechart/internal/domain"
)

// Canonical is a chronologically ascending series with unique trade dates.
type Canonical []domain.DatedRow

// Dates returns the trade dates of the series in order.
func (c Canonical) Dates() []domain.TradeDate {
	dates := make([]domain.TradeDate, len(c))
	for i, row := range c {
		dates[i] = row.TradeDate
	}
	return dates
}

// Normalize converts a raw row collection into a Canonical series. Rows
// without a usable trade date are dropped. When a date repeats, the row seen
// last wins. Dates are ordered by their integer value, so "020230101" and
// "20230101" are the same key.
func Normalize(raw domain.RawSeries) Canonical {
	rows := make([]domain.DatedRow, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			continue
		}
		date, ok := r.TradeDate()
		if !ok {
			continue
		}
		rows = append(rows, domain.DatedRow{TradeDate: date, Fields: r.Fields()})
	}
	return NormalizeRows(rows)
}

// NormalizeRows applies the same dedupe and ordering rules as Normalize to
// rows that are already typed.
func NormalizeRows(rows []domain.DatedRow) Canonical {
	type entry struct {
		key int64
		row domain.DatedRow
	}
	index := make(map[int64]int, len(rows))
	entries := make([]entry, 0, len(rows))
	for _, row := range rows {
		key, ok := row.TradeDate.Key()
		if !ok {
			continue
		}
		if i, seen := index[key]; seen {
			entries[i].row = row
			continue
		}
		index[key] = len(entries)
		entries = append(entries, entry{key: key, row: row})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].key < entries[j].key
	})

	out := make(Canonical, len(entries))
	for i, e := range entries {
		out[i] = e.row
	}
	return out
}

// Dropped reports how many rows of raw did not survive normalization, either
// because they were malformed or because a later row replaced them.
func Dropped(raw domain.RawSeries, normalized Canonical) int {
	return len(raw) - len(normalized)
}
