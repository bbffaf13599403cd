package series

import (
	"fmt"
	"testing"

	"github.com/guregu/null/v6"

	"klinechart/internal/domain"
)

func raw(date any, fields map[string]any) domain.RawRow {
	r := domain.RawRow{"trade_date": date}
	for k, v := range fields {
		r[k] = v
	}
	return r
}

func dates(c Canonical) []string {
	out := make([]string, len(c))
	for i, row := range c {
		out[i] = string(row.TradeDate)
	}
	return out
}

func TestNormalizeSortsNumerically(t *testing.T) {
	in := domain.RawSeries{
		raw("20230105", nil),
		raw("20230101", nil),
		raw(float64(20230103), nil),
		raw("20221231", nil),
	}
	got := dates(Normalize(in))
	want := []string{"20221231", "20230101", "20230103", "20230105"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Normalize dates = %v, want %v", got, want)
	}
}

func TestNormalizeLastSeenWins(t *testing.T) {
	in := domain.RawSeries{
		raw("20230102", map[string]any{"close": 1.0}),
		raw("20230101", map[string]any{"close": 5.0}),
		raw("20230102", map[string]any{"close": 2.0}),
	}
	got := Normalize(in)
	if len(got) != 2 {
		t.Fatalf("Normalize returned %d rows, want 2", len(got))
	}
	if c := got[1].Get("close"); !c.Valid || c.Float64 != 2.0 {
		t.Errorf("close on 20230102 = %+v, want 2.0", c)
	}
}

func TestNormalizeDropsMalformed(t *testing.T) {
	in := domain.RawSeries{
		nil,
		{"open": 1.0},
		raw("", nil),
		raw("not-a-date", nil),
		raw("20230101", map[string]any{"open": 1.0}),
	}
	got := Normalize(in)
	if len(got) != 1 || got[0].TradeDate != "20230101" {
		t.Errorf("Normalize = %v, want a single 20230101 row", dates(got))
	}
	if n := Dropped(in, got); n != 4 {
		t.Errorf("Dropped = %d, want 4", n)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := Normalize(nil); len(got) != 0 {
		t.Errorf("Normalize(nil) = %v, want empty", got)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := domain.RawSeries{raw("20230102", nil), raw("20230101", nil)}
	Normalize(in)
	if d, _ := in[0].TradeDate(); d != "20230102" {
		t.Errorf("input reordered: first row is %s", d)
	}
}

func canonical(rows ...domain.DatedRow) Canonical { return NormalizeRows(rows) }

func row(date string, fields domain.Fields) domain.DatedRow {
	return domain.DatedRow{TradeDate: domain.TradeDate(date), Fields: fields}
}

func TestJoinNoAuxiliaries(t *testing.T) {
	primary := canonical(
		row("20230101", domain.Fields{"close": null.FloatFrom(1)}),
		row("20230102", domain.Fields{"close": null.FloatFrom(2)}),
	)
	got := Join(primary, nil)
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	for i, r := range got.Rows {
		if r.TradeDate != primary[i].TradeDate {
			t.Errorf("row %d date = %s, want %s", i, r.TradeDate, primary[i].TradeDate)
		}
		if len(r.Aux) != 0 {
			t.Errorf("row %d has aux fields %v, want none", i, r.Aux)
		}
		if r.Get("close") != primary[i].Get("close") {
			t.Errorf("row %d close changed", i)
		}
	}
	if len(got.Supplied) != 0 {
		t.Errorf("Supplied = %v, want empty", got.Supplied)
	}
}

func TestJoinIgnoresExtraDates(t *testing.T) {
	primary := canonical(row("20230102", nil), row("20230104", nil))
	aux := canonical(
		row("20230101", domain.Fields{"adj_factor": null.FloatFrom(1)}),
		row("20230102", domain.Fields{"adj_factor": null.FloatFrom(2)}),
		row("20230103", domain.Fields{"adj_factor": null.FloatFrom(3)}),
	)
	got := Join(primary, map[string]Auxiliary{"adj": {Series: aux, Fields: []string{"adj_factor"}}})
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	if v := got.Rows[0].Value("adj", "adj_factor"); !v.Valid || v.Float64 != 2 {
		t.Errorf("20230102 adj_factor = %+v, want 2", v)
	}
	v, present := got.Rows[1].Aux["adj"]["adj_factor"]
	if !present || v.Valid {
		t.Errorf("20230104 adj_factor = %+v (present=%v), want explicit null", v, present)
	}
}

func TestJoinIndependentAuxiliaries(t *testing.T) {
	primary := canonical(row("20230101", nil), row("20230102", nil))
	adj := canonical(row("20230101", domain.Fields{"adj_factor": null.FloatFrom(1.5)}))
	ind := canonical(row("20230102", domain.Fields{"ma5": null.FloatFrom(9)}))

	got := Join(primary, map[string]Auxiliary{
		"adj":        {Series: adj, Fields: []string{"adj_factor"}},
		"indicators": {Series: ind},
	})

	if !got.Rows[0].Value("adj", "adj_factor").Valid || got.Rows[0].Value("indicators", "ma5").Valid {
		t.Errorf("day 1: want adj present and ma5 null, got %v", got.Rows[0].Aux)
	}
	if got.Rows[1].Value("adj", "adj_factor").Valid || !got.Rows[1].Value("indicators", "ma5").Valid {
		t.Errorf("day 2: want adj null and ma5 present, got %v", got.Rows[1].Aux)
	}
	if !got.Has("indicators", "ma5") || got.Has("indicators", "kdj_k") {
		t.Errorf("Supplied = %v, want indicators=[ma5]", got.Supplied)
	}
}

func TestJoinZeroIsNotMissing(t *testing.T) {
	primary := canonical(row("20230101", nil))
	ind := canonical(row("20230101", domain.Fields{"macd_hist": null.FloatFrom(0)}))
	got := Join(primary, map[string]Auxiliary{"indicators": {Series: ind}})
	if v := got.Rows[0].Value("indicators", "macd_hist"); !v.Valid || v.Float64 != 0 {
		t.Errorf("macd_hist = %+v, want valid 0", v)
	}
}

func TestJoinEmptyAuxiliaryDesignatedFields(t *testing.T) {
	primary := canonical(row("20230101", nil), row("20230102", nil))
	got := Join(primary, map[string]Auxiliary{"adj": {Fields: []string{"adj_factor"}}})
	for i, r := range got.Rows {
		v, present := r.Aux["adj"]["adj_factor"]
		if !present || v.Valid {
			t.Errorf("row %d adj_factor = %+v (present=%v), want explicit null", i, v, present)
		}
	}
}

func TestTrailingWindow(t *testing.T) {
	seq := make([]int, 200)
	for i := range seq {
		seq[i] = i
	}

	w := TrailingWindow(seq, 120)
	if w.Len() != 120 || w.Start != 80 || w.Total != 200 {
		t.Fatalf("TrailingWindow(200, 120) = start %d len %d total %d", w.Start, w.Len(), w.Total)
	}
	for i, v := range w.Items {
		if v != 80+i {
			t.Fatalf("item %d = %d, want %d", i, v, 80+i)
		}
	}

	short := TrailingWindow(seq[:50], 120)
	if short.Len() != 50 || short.Start != 0 {
		t.Errorf("TrailingWindow(50, 120) = start %d len %d, want 0/50", short.Start, short.Len())
	}

	empty := TrailingWindow([]int(nil), 120)
	if empty.Len() != 0 || empty.Start != 0 {
		t.Errorf("TrailingWindow(empty) = %+v, want empty", empty)
	}
}

func TestTrailingWindowIsolatesAppend(t *testing.T) {
	seq := []int{1, 2, 3, 4}
	w := TrailingWindow(seq[:3], 2)
	_ = append(w.Items, 99)
	if seq[3] != 4 {
		t.Errorf("append through window overwrote source: %v", seq)
	}
}

func TestPageClamping(t *testing.T) {
	seq := make([]int, 25)
	for i := range seq {
		seq[i] = i
	}

	tests := []struct {
		page      int
		wantStart int
		wantLen   int
	}{
		{1, 0, 10},
		{2, 10, 10},
		{3, 20, 5},
		{4, 20, 5},
		{99, 20, 5},
		{0, 0, 10},
		{-3, 0, 10},
	}
	for _, tt := range tests {
		w := Page(seq, tt.page, 10)
		if w.Start != tt.wantStart || w.Len() != tt.wantLen {
			t.Errorf("Page(%d) = start %d len %d, want start %d len %d", tt.page, w.Start, w.Len(), tt.wantStart, tt.wantLen)
		}
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		n, size, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{120, 10, 12},
		{5, 0, 5},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.n, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}

func TestSliceEmpty(t *testing.T) {
	items, pages := Slice([]string{}, 3, 10)
	if len(items) != 0 || pages != 1 {
		t.Errorf("Slice(empty) = (%v, %d), want ([], 1)", items, pages)
	}
}

// Scenario: five OHLCV days, indicators on two of them, no adjustment factors.
func TestNormalizeJoinScenario(t *testing.T) {
	daily := domain.RawSeries{}
	for d := 20230101; d <= 20230105; d++ {
		daily = append(daily, raw(fmt.Sprint(d), map[string]any{"open": 1.0, "close": 2.0, "low": 0.5, "high": 2.5, "vol": 100.0}))
	}
	indicators := domain.RawSeries{
		raw("20230104", map[string]any{"ma5": 1.4, "ma10": 1.3}),
		raw("20230102", map[string]any{"ma5": 1.2, "ma10": 1.1}),
	}

	aligned := Join(Normalize(daily), map[string]Auxiliary{
		"adj":        {Series: Normalize(nil), Fields: []string{"adj_factor"}},
		"indicators": {Series: Normalize(indicators)},
	})

	if aligned.Len() != 5 {
		t.Fatalf("aligned rows = %d, want 5", aligned.Len())
	}
	for i, r := range aligned.Rows {
		populated := i == 1 || i == 3
		if got := r.Value("indicators", "ma5").Valid; got != populated {
			t.Errorf("day %d ma5 valid = %v, want %v", i+1, got, populated)
		}
		if r.Value("adj", "adj_factor").Valid {
			t.Errorf("day %d adj_factor should be null", i+1)
		}
	}
}
