package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"klinechart/internal/domain"
)

// csvTable is a CSV file read into rows addressed by header name.
type csvTable struct {
	cols map[string]int
	rows [][]string
}

func readCSV(r io.Reader, required ...string) (*csvTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty CSV")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	t := &csvTable{cols: make(map[string]int, len(header))}
	for i, h := range header {
		t.cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := t.cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	t.rows, err = cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return t, nil
}

func (t *csvTable) get(row []string, name string) string {
	i, ok := t.cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// number parses a required numeric column. line is 1-based, counting the
// header.
func (t *csvTable) number(row []string, name string, line int) (float64, error) {
	v := domain.ParseValue(t.get(row, name))
	if !v.Valid {
		return 0, fmt.Errorf("line %d: %s %q is not a number", line, name, t.get(row, name))
	}
	return v.Float64, nil
}

// optional parses a nullable numeric column; blanks and non-numbers are nil.
func (t *csvTable) optional(row []string, name string) *float64 {
	v := domain.ParseValue(t.get(row, name))
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

// ReadSecuritiesCSV parses a stock_basic style CSV with at least a ts_code
// column. Optional columns: symbol, name, area, industry, market, list_date.
func ReadSecuritiesCSV(r io.Reader) ([]domain.Security, error) {
	t, err := readCSV(r, domain.FieldTsCode)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Security, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, domain.Security{
			TsCode:   strings.ToUpper(t.get(row, domain.FieldTsCode)),
			Symbol:   t.get(row, "symbol"),
			Name:     t.get(row, "name"),
			Area:     t.get(row, "area"),
			Industry: t.get(row, "industry"),
			Market:   t.get(row, "market"),
			ListDate: t.get(row, "list_date"),
		})
	}
	return out, nil
}

// ReadDailyCSV parses daily bars with columns ts_code, trade_date, open,
// high, low, close, vol and optionally amount.
func ReadDailyCSV(r io.Reader) ([]DailyRecord, error) {
	t, err := readCSV(r, domain.FieldTsCode, domain.FieldTradeDate,
		domain.FieldOpen, domain.FieldHigh, domain.FieldLow, domain.FieldClose, domain.FieldVol)
	if err != nil {
		return nil, err
	}
	out := make([]DailyRecord, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		rec := DailyRecord{
			TsCode:    strings.ToUpper(t.get(row, domain.FieldTsCode)),
			TradeDate: t.get(row, domain.FieldTradeDate),
		}
		for _, f := range []struct {
			name string
			dst  **float64
		}{
			{domain.FieldOpen, &rec.Open},
			{domain.FieldHigh, &rec.High},
			{domain.FieldLow, &rec.Low},
			{domain.FieldClose, &rec.Close},
			{domain.FieldVol, &rec.Vol},
		} {
			v, err := t.number(row, f.name, line)
			if err != nil {
				return nil, err
			}
			*f.dst = &v
		}
		rec.Amount = t.optional(row, domain.FieldAmount)
		out = append(out, rec)
	}
	return out, nil
}

// ReadAdjFactorCSV parses ts_code, trade_date, adj_factor rows.
func ReadAdjFactorCSV(r io.Reader) ([]AdjFactorRecord, error) {
	t, err := readCSV(r, domain.FieldTsCode, domain.FieldTradeDate, domain.FieldAdjFactor)
	if err != nil {
		return nil, err
	}
	out := make([]AdjFactorRecord, 0, len(t.rows))
	for i, row := range t.rows {
		f, err := t.number(row, domain.FieldAdjFactor, i+2)
		if err != nil {
			return nil, err
		}
		out = append(out, AdjFactorRecord{
			TsCode:    strings.ToUpper(t.get(row, domain.FieldTsCode)),
			TradeDate: t.get(row, domain.FieldTradeDate),
			AdjFactor: f,
		})
	}
	return out, nil
}

// ReadIndicatorsCSV parses indicator rows. Every indicator column is
// optional and blank cells are stored as nulls.
func ReadIndicatorsCSV(r io.Reader) ([]IndicatorRecord, error) {
	t, err := readCSV(r, domain.FieldTsCode, domain.FieldTradeDate)
	if err != nil {
		return nil, err
	}
	out := make([]IndicatorRecord, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, IndicatorRecord{
			TsCode:     strings.ToUpper(t.get(row, domain.FieldTsCode)),
			TradeDate:  t.get(row, domain.FieldTradeDate),
			MA5:        t.optional(row, domain.FieldMA5),
			MA10:       t.optional(row, domain.FieldMA10),
			MA20:       t.optional(row, domain.FieldMA20),
			MA30:       t.optional(row, domain.FieldMA30),
			KDJK:       t.optional(row, domain.FieldKDJK),
			KDJD:       t.optional(row, domain.FieldKDJD),
			KDJJ:       t.optional(row, domain.FieldKDJJ),
			MACD:       t.optional(row, domain.FieldMACD),
			MACDSignal: t.optional(row, domain.FieldMACDSignal),
			MACDHist:   t.optional(row, domain.FieldMACDHist),
		})
	}
	return out, nil
}
