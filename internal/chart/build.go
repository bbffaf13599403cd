package chart

import (
	"github.com/guregu/null/v6"

	"klinechart/internal/domain"
	"klinechart/internal/series"
)

// Series names. They double as tooltip labels.
const (
	NameCandles  = "Kline"
	NameVolume   = "Volume"
	NameMACDHist = "MACD-Hist"
	labelOpen    = "Open"
	labelClose   = "Close"
	labelLow     = "Low"
	labelHigh    = "High"
)

var seriesNames = map[string]string{
	domain.FieldMA5:        "MA5",
	domain.FieldMA10:       "MA10",
	domain.FieldMA20:       "MA20",
	domain.FieldMA30:       "MA30",
	domain.FieldKDJK:       "KDJ-K",
	domain.FieldKDJD:       "KDJ-D",
	domain.FieldKDJJ:       "KDJ-J",
	domain.FieldMACD:       "MACD",
	domain.FieldMACDSignal: "MACD-Signal",
	domain.FieldMACDHist:   NameMACDHist,
}

// IndicatorFields is the set of indicator fields available to the chart.
type IndicatorFields map[string]bool

// IndicatorFieldsOf returns the fields the indicators auxiliary supplied.
func IndicatorFieldsOf(a series.Aligned) IndicatorFields {
	fields := make(IndicatorFields)
	for _, f := range a.Supplied[domain.AuxIndicators] {
		fields[f] = true
	}
	return fields
}

// present returns the members of names that are in the set, in the order
// given.
func (f IndicatorFields) present(names []string) []string {
	var out []string
	for _, n := range names {
		if f[n] {
			out = append(out, n)
		}
	}
	return out
}

// Build produces the chart for aligned. All rows are plotted; window only
// sets the default zoom. KDJ and MACD panes are added only when indicators
// holds at least one of their fields.
func Build(aligned series.Aligned, indicators IndicatorFields, window series.Window[series.AlignedRow]) *Spec {
	rows := aligned.Rows
	b := &builder{
		rows: rows,
		spec: &Spec{
			Background: ColorBackground,
			Categories: make([]string, len(rows)),
			Axis: AxisStyle{
				Line:      colorAxisLine,
				Label:     colorAxisLabel,
				SplitLine: colorSplitLine,
			},
		},
		tooltip: &tooltipResolver{rows: rows},
	}
	for i, r := range rows {
		b.spec.Categories[i] = FormatDate(r.TradeDate)
	}
	b.tooltip.dates = b.spec.Categories

	b.pricePane(indicators.present(domain.MAFields))
	b.volumePane()
	if fields := indicators.present(domain.KDJFields); len(fields) > 0 {
		b.kdjPane(fields)
	}
	if fields := indicators.present(domain.MACDFields); len(fields) > 0 {
		b.macdPane(fields)
	}

	b.spec.Zoom = defaultZoom(len(rows), window.Start)
	b.spec.LinkedPanes = make([]int, len(b.spec.Panes))
	for i := range b.spec.Panes {
		b.spec.LinkedPanes[i] = i
	}
	b.spec.Zoom.Panes = b.spec.LinkedPanes
	b.spec.tooltip = b.tooltip
	return b.spec
}

// defaultZoom expresses the window start as a percentage of the axis.
func defaultZoom(total, start int) Zoom {
	z := Zoom{StartIndex: start, EndPercent: 100}
	if total > 1 {
		z.StartPercent = float64(start) / float64(total-1) * 100
	}
	return z
}

type builder struct {
	rows    []series.AlignedRow
	spec    *Spec
	tooltip *tooltipResolver
}

// addPane appends a pane below the previous one and returns its index.
func (b *builder) addPane(kind PaneKind, title string, gap, height int, scaleY, splitLine bool) int {
	top := priceTop
	if n := len(b.spec.Panes); n > 0 {
		prev := b.spec.Panes[n-1]
		top = prev.Top + prev.Height + gap
	}
	b.spec.Panes = append(b.spec.Panes, Pane{
		Kind:      kind,
		Title:     title,
		Left:      paneLeft,
		Right:     paneRight,
		Top:       top,
		Height:    height,
		ScaleY:    scaleY,
		SplitLine: splitLine,
	})
	if title != "" {
		b.spec.Labels = append(b.spec.Labels, Label{Text: title, Left: labelInsetLeft, Top: top + labelInsetTop})
	}
	return len(b.spec.Panes) - 1
}

// indicatorLine builds a line series for an indicator field.
func (b *builder) indicatorLine(field string, pane int) Series {
	name := seriesNames[field]
	values := make([]null.Float, len(b.rows))
	for i, r := range b.rows {
		values[i] = r.Value(domain.AuxIndicators, field)
	}
	return Series{Name: name, Kind: SeriesLine, Pane: pane, Color: lineColors[name], Width: 1, Values: values}
}

func (b *builder) pricePane(maFields []string) {
	pane := b.addPane(PanePrice, "", 0, priceHeight, true, true)

	candles := make([]Candle, len(b.rows))
	for i, r := range b.rows {
		candles[i] = Candle{
			r.Get(domain.FieldOpen),
			r.Get(domain.FieldClose),
			r.Get(domain.FieldLow),
			r.Get(domain.FieldHigh),
		}
	}
	b.spec.Series = append(b.spec.Series, Series{
		Name:      NameCandles,
		Kind:      SeriesCandlestick,
		Pane:      pane,
		Color:     ColorUp,
		DownColor: ColorDown,
		Candles:   candles,
	})

	group := tooltipGroup{blankBefore: true}
	for _, field := range maFields {
		s := b.indicatorLine(field, pane)
		b.spec.Series = append(b.spec.Series, s)
		group.add(s)
	}
	b.tooltip.groups = append(b.tooltip.groups, group)
}

func (b *builder) volumePane() {
	pane := b.addPane(PaneVolume, "", volumeGap, volumeHeight, false, false)

	values := make([]null.Float, len(b.rows))
	colors := make([]string, len(b.rows))
	for i, r := range b.rows {
		values[i] = null.FloatFrom(r.Get(domain.FieldVol).ValueOrZero())
		colors[i] = VolumeColor(r.Get(domain.FieldOpen), r.Get(domain.FieldClose))
	}
	s := Series{Name: NameVolume, Kind: SeriesBar, Pane: pane, Values: values, PointColors: colors}
	b.spec.Series = append(b.spec.Series, s)

	group := tooltipGroup{}
	group.add(s)
	b.tooltip.groups = append(b.tooltip.groups, group)
}

func (b *builder) kdjPane(fields []string) {
	pane := b.addPane(PaneKDJ, "KDJ", oscillatorGap, oscillatorHeight, false, true)
	group := tooltipGroup{blankBefore: true}
	for _, field := range fields {
		s := b.indicatorLine(field, pane)
		b.spec.Series = append(b.spec.Series, s)
		group.add(s)
	}
	b.tooltip.groups = append(b.tooltip.groups, group)
}

func (b *builder) macdPane(fields []string) {
	pane := b.addPane(PaneMACD, "MACD", oscillatorGap, oscillatorHeight, false, true)
	group := tooltipGroup{blankBefore: true}
	for _, field := range fields {
		s := b.indicatorLine(field, pane)
		if field == domain.FieldMACDHist {
			s.Kind = SeriesBar
			s.Width = 0
			s.PointColors = make([]string, len(s.Values))
			for i, v := range s.Values {
				s.PointColors[i] = HistColor(v)
			}
		}
		b.spec.Series = append(b.spec.Series, s)
		group.add(s)
	}
	b.tooltip.groups = append(b.tooltip.groups, group)
}

// VolumeColor colors a volume bar by its own day: close >= open is up.
// Missing prices count as zero.
func VolumeColor(o, c null.Float) string {
	if c.ValueOrZero() >= o.ValueOrZero() {
		return ColorUp
	}
	return ColorDown
}

// HistColor colors a MACD histogram bar by the sign of its value. A missing
// value is colored as non-negative.
func HistColor(v null.Float) string {
	if v.ValueOrZero() >= 0 {
		return ColorHistPositive
	}
	return ColorHistNegative
}
