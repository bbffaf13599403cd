// Package chart turns an aligned daily series into a renderer-agnostic chart
// description: stacked panes sharing one category axis, candlestick, line and
// bar series, the default zoom range and a tooltip resolver.
package chart

import "github.com/guregu/null/v6"

// PaneKind identifies what a pane plots.
type PaneKind string

const (
	PanePrice  PaneKind = "price"
	PaneVolume PaneKind = "volume"
	PaneKDJ    PaneKind = "kdj"
	PaneMACD   PaneKind = "macd"
)

// SeriesKind is the drawing primitive of a series.
type SeriesKind string

const (
	SeriesCandlestick SeriesKind = "candlestick"
	SeriesLine        SeriesKind = "line"
	SeriesBar         SeriesKind = "bar"
)

// Pane is one vertically stacked plotting area. Geometry is in pixels.
type Pane struct {
	Kind   PaneKind `json:"kind"`
	Title  string   `json:"title,omitempty"`
	Left   int      `json:"left"`
	Right  int      `json:"right"`
	Top    int      `json:"top"`
	Height int      `json:"height"`
	// ScaleY lets the value axis start away from zero.
	ScaleY    bool `json:"scale_y"`
	SplitLine bool `json:"split_line"`
}

// Candle is the value of one candlestick point: open, close, low, high.
// Open/close draw the body and low/high the wick.
type Candle [4]null.Float

// Series is one plotted data set bound to a pane by index. Values and Candles
// are aligned index-for-index with Spec.Categories; an invalid value is a gap.
type Series struct {
	Name string     `json:"name"`
	Kind SeriesKind `json:"kind"`
	Pane int        `json:"pane"`
	// Color is the line color, or the rising color of a candlestick.
	Color string `json:"color,omitempty"`
	// DownColor is the falling color of a candlestick.
	DownColor   string       `json:"down_color,omitempty"`
	Width       int          `json:"width,omitempty"`
	Candles     []Candle     `json:"candles,omitempty"`
	Values      []null.Float `json:"values,omitempty"`
	PointColors []string     `json:"point_colors,omitempty"`
}

// Label is a text decoration drawn at an absolute position.
type Label struct {
	Text string `json:"text"`
	Left int    `json:"left"`
	Top  int    `json:"top"`
}

// Zoom is the default visible range as a percentage of the category axis.
type Zoom struct {
	StartIndex   int     `json:"start_index"`
	StartPercent float64 `json:"start_percent"`
	EndPercent   float64 `json:"end_percent"`
	// Panes lists the pane indices the zoom control drives.
	Panes []int `json:"panes"`
}

// AxisStyle holds the shared axis colors.
type AxisStyle struct {
	Line      string `json:"line"`
	Label     string `json:"label"`
	SplitLine string `json:"split_line"`
}

// Spec is a complete chart description. It is never mutated after Build
// returns.
type Spec struct {
	Background string `json:"background"`
	// Categories is the shared category axis of formatted dates.
	Categories []string  `json:"categories"`
	Axis       AxisStyle `json:"axis"`
	Panes      []Pane    `json:"panes"`
	// LinkedPanes lists the panes whose crosshair and tooltip move together.
	LinkedPanes []int    `json:"linked_panes"`
	Series      []Series `json:"series"`
	Labels      []Label  `json:"labels,omitempty"`
	Zoom        Zoom     `json:"zoom"`

	tooltip *tooltipResolver
}

// Pane returns the index of the first pane of kind, or -1.
func (s *Spec) Pane(kind PaneKind) int {
	for i, p := range s.Panes {
		if p.Kind == kind {
			return i
		}
	}
	return -1
}

// SeriesNamed returns the series with the given name.
func (s *Spec) SeriesNamed(name string) (Series, bool) {
	for _, ser := range s.Series {
		if ser.Name == name {
			return ser, true
		}
	}
	return Series{}, false
}

// Tooltip returns the tooltip lines for the category at index, or nil when
// index is out of range.
func (s *Spec) Tooltip(index int) []string {
	if s.tooltip == nil {
		return nil
	}
	return s.tooltip.resolve(index)
}

// Tooltips resolves the tooltip of every category.
func (s *Spec) Tooltips() [][]string {
	out := make([][]string, len(s.Categories))
	for i := range out {
		out[i] = s.Tooltip(i)
	}
	return out
}
