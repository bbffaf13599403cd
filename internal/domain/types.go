// Package domain defines the row and record types shared by the series
// engine, the storage layer and the HTTP API.
package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"
)

// Market identifies the exchange group a security trades on.
type Market string

const (
	MarketCN Market = "cn"
)

// Well-known field names as they appear on the wire.
const (
	FieldTradeDate = "trade_date"
	FieldTsCode    = "ts_code"

	FieldOpen   = "open"
	FieldHigh   = "high"
	FieldLow    = "low"
	FieldClose  = "close"
	FieldVol    = "vol"
	FieldAmount = "amount"

	FieldAdjFactor = "adj_factor"

	FieldMA5  = "ma5"
	FieldMA10 = "ma10"
	FieldMA20 = "ma20"
	FieldMA30 = "ma30"

	FieldKDJK = "kdj_k"
	FieldKDJD = "kdj_d"
	FieldKDJJ = "kdj_j"

	FieldMACD       = "macd"
	FieldMACDSignal = "macd_signal"
	FieldMACDHist   = "macd_hist"
)

// Names of the auxiliary series joined onto the daily bars.
const (
	AuxAdj        = "adj"
	AuxIndicators = "indicators"
)

// Indicator field groups, in display order.
var (
	MAFields   = []string{FieldMA5, FieldMA10, FieldMA20, FieldMA30}
	KDJFields  = []string{FieldKDJK, FieldKDJD, FieldKDJJ}
	MACDFields = []string{FieldMACD, FieldMACDSignal, FieldMACDHist}
)

// nonNumeric lists keys that are carried on raw rows but never parsed as
// numeric fields.
var nonNumeric = map[string]bool{
	FieldTradeDate: true,
	FieldTsCode:    true,
	"symbol":       true,
	"name":         true,
}

// TradeDate is an 8-digit calendar date key such as "20230105".
type TradeDate string

// Key returns the date as an integer for chronological comparison. ok is
// false when the date is not an integer.
func (d TradeDate) Key() (key int64, ok bool) {
	k, err := strconv.ParseInt(strings.TrimSpace(string(d)), 10, 64)
	if err != nil {
		return 0, false
	}
	return k, true
}

// Fields maps a field name to an optional numeric value. An invalid
// null.Float means the value is absent or could not be parsed.
type Fields map[string]null.Float

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DatedRow is one row of a daily series, identified by its trade date.
type DatedRow struct {
	TradeDate TradeDate
	Fields    Fields
}

// Get returns the named field, or an invalid value when the row lacks it.
func (r DatedRow) Get(name string) null.Float {
	return r.Fields[name]
}

// MarshalJSON flattens the row into {"trade_date": ..., "<field>": ...}.
func (r DatedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"trade_date":`)
	date, err := json.Marshal(string(r.TradeDate))
	if err != nil {
		return nil, err
	}
	buf.Write(date)
	for _, name := range r.Fields.Names() {
		key, _ := json.Marshal(name)
		val, err := json.Marshal(r.Fields[name])
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RawRow is a row exactly as received from a source. Values are whatever the
// decoder produced: strings, json.Number, float64, nil and so on.
type RawRow map[string]any

// RawSeries is an unordered, possibly duplicated and sparse row collection.
type RawSeries []RawRow

// TradeDate extracts the row's trade date. ok is false when the row has no
// usable date key.
func (r RawRow) TradeDate() (TradeDate, bool) {
	switch v := r[FieldTradeDate].(type) {
	case string:
		v = strings.TrimSpace(v)
		return TradeDate(v), v != ""
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return TradeDate(strconv.FormatInt(n, 10)), true
		}
		if f, err := v.Float64(); err == nil {
			return floatDate(f)
		}
		return TradeDate(v.String()), v != ""
	case float64:
		return floatDate(v)
	case int:
		return TradeDate(strconv.Itoa(v)), true
	case int64:
		return TradeDate(strconv.FormatInt(v, 10)), true
	}
	return "", false
}

func floatDate(v float64) (TradeDate, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return "", false
	}
	return TradeDate(strconv.FormatFloat(v, 'f', -1, 64)), true
}

// Fields parses every numeric-looking key of the row. Values that are not
// valid numbers are kept as invalid entries so their presence is still known.
func (r RawRow) Fields() Fields {
	fields := make(Fields, len(r))
	for name, v := range r {
		if nonNumeric[name] {
			continue
		}
		fields[name] = ParseValue(v)
	}
	return fields
}

// ParseValue converts a decoded scalar into an optional float. nil, NaN,
// infinities and non-numeric strings yield an invalid value.
func ParseValue(v any) null.Float {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return null.Float{}
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return null.Float{}
		}
		f = parsed
	case null.Float:
		return x
	default:
		return null.Float{}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// Security is one row of the security list.
type Security struct {
	TsCode   string `json:"ts_code"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Area     string `json:"area"`
	Industry string `json:"industry"`
	Market   string `json:"market"`
	ListDate string `json:"list_date"`
}
