package chart

import (
	"klinechart/internal/domain"
	"klinechart/internal/series"
)

// tooltipGroup is a run of series lines in the tooltip, optionally preceded
// by a blank separator line.
type tooltipGroup struct {
	blankBefore bool
	series      []Series
}

func (g *tooltipGroup) add(s Series) { g.series = append(g.series, s) }

// tooltipResolver maps a category index to display lines. OHLC values are
// read from the aligned rows rather than from the candlestick series.
type tooltipResolver struct {
	dates  []string
	rows   []series.AlignedRow
	groups []tooltipGroup
}

func (t *tooltipResolver) resolve(index int) []string {
	if index < 0 || index >= len(t.rows) {
		return nil
	}
	r := t.rows[index]
	lines := []string{
		t.dates[index],
		labelOpen + ": " + FormatNumber(r.Get(domain.FieldOpen)),
		labelClose + ": " + FormatNumber(r.Get(domain.FieldClose)),
		labelLow + ": " + FormatNumber(r.Get(domain.FieldLow)),
		labelHigh + ": " + FormatNumber(r.Get(domain.FieldHigh)),
	}
	for _, g := range t.groups {
		if len(g.series) == 0 {
			continue
		}
		if g.blankBefore {
			lines = append(lines, "")
		}
		for _, s := range g.series {
			lines = append(lines, s.Name+": "+FormatNumber(s.Values[index]))
		}
	}
	return lines
}
