package chart

// Rising bars are red and falling bars green, the A-share convention.
const (
	ColorBackground = "#000000"
	ColorUp         = "#ef4444"
	ColorDown       = "#22c55e"

	// MACD histogram colors depend only on the sign of the bar.
	ColorHistPositive = "#22c55e"
	ColorHistNegative = "#ef4444"

	colorAxisLine  = "#666666"
	colorAxisLabel = "#999999"
	colorSplitLine = "#333333"
)

var lineColors = map[string]string{
	"MA5":         "#ffffff",
	"MA10":        "#ff69b4",
	"MA20":        "#ffff00",
	"MA30":        "#4169e1",
	"KDJ-K":       "#ff69b4",
	"KDJ-D":       "#4169e1",
	"KDJ-J":       "#ffff00",
	"MACD":        "#4169e1",
	"MACD-Signal": "#ff69b4",
}

// Pane geometry in pixels.
const (
	paneLeft         = 40
	paneRight        = 20
	priceTop         = 30
	priceHeight      = 280
	volumeGap        = 20
	volumeHeight     = 90
	oscillatorGap    = 30
	oscillatorHeight = 180
	labelInsetLeft   = 50
	labelInsetTop    = 2
)
