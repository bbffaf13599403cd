package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"klinechart/internal/domain"
	"klinechart/internal/source"
)

// Compile-time interface checks.
var _ SeriesStore = (*ParquetStore)(nil)
var _ source.DataSource = (*ParquetStore)(nil)

// ParquetStore implements SeriesStore and source.DataSource using Parquet
// files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// DailyRecord is the Parquet schema for daily bars. Nil fields were missing
// or unparseable upstream and read back as absent, never as zero.
type DailyRecord struct {
	TsCode    string   `parquet:"ts_code"`
	TradeDate string   `parquet:"trade_date"` // YYYYMMDD
	Open      *float64 `parquet:"open,optional"`
	High      *float64 `parquet:"high,optional"`
	Low       *float64 `parquet:"low,optional"`
	Close     *float64 `parquet:"close,optional"`
	Vol       *float64 `parquet:"vol,optional"`
	Amount    *float64 `parquet:"amount,optional"`
}

// AdjFactorRecord is the Parquet schema for adjustment factors.
type AdjFactorRecord struct {
	TsCode    string  `parquet:"ts_code"`
	TradeDate string  `parquet:"trade_date"`
	AdjFactor float64 `parquet:"adj_factor"`
}

// IndicatorRecord is the Parquet schema for precomputed indicators. Nil
// fields were not computable for that day (e.g. MA30 in the first 29 days).
type IndicatorRecord struct {
	TsCode     string   `parquet:"ts_code"`
	TradeDate  string   `parquet:"trade_date"`
	MA5        *float64 `parquet:"ma5,optional"`
	MA10       *float64 `parquet:"ma10,optional"`
	MA20       *float64 `parquet:"ma20,optional"`
	MA30       *float64 `parquet:"ma30,optional"`
	KDJK       *float64 `parquet:"kdj_k,optional"`
	KDJD       *float64 `parquet:"kdj_d,optional"`
	KDJJ       *float64 `parquet:"kdj_j,optional"`
	MACD       *float64 `parquet:"macd,optional"`
	MACDSignal *float64 `parquet:"macd_signal,optional"`
	MACDHist   *float64 `parquet:"macd_hist,optional"`
}

// ---------------------------------------------------------------------------
// SeriesStore implementation
// ---------------------------------------------------------------------------

// WriteDaily writes daily bars to Parquet files organized by code and year:
//
//	<DataDir>/cn/daily/<TS_CODE>/<YYYY>.parquet
func (s *ParquetStore) WriteDaily(_ context.Context, rows []DailyRecord) error {
	type key struct {
		code string
		year string
	}
	groups := make(map[key][]DailyRecord)
	for _, r := range rows {
		if err := checkDate(r.TradeDate); err != nil {
			return err
		}
		k := key{code: r.TsCode, year: r.TradeDate[:4]}
		groups[k] = append(groups[k], r)
	}

	for k, records := range groups {
		path := s.dailyPath(k.code, k.year)
		existing, err := readExisting[DailyRecord](path)
		if err != nil {
			return err
		}
		merged := mergeByDate(existing, records, func(r DailyRecord) string { return r.TradeDate })
		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing daily bars for %s/%s: %w", k.code, k.year, err)
		}
	}
	return nil
}

// WriteAdjFactor writes adjustment factors, one file per code.
func (s *ParquetStore) WriteAdjFactor(_ context.Context, rows []AdjFactorRecord) error {
	groups := make(map[string][]AdjFactorRecord)
	for _, r := range rows {
		if err := checkDate(r.TradeDate); err != nil {
			return err
		}
		groups[r.TsCode] = append(groups[r.TsCode], r)
	}
	for code, records := range groups {
		path := s.seriesPath("adj_factor", code)
		existing, err := readExisting[AdjFactorRecord](path)
		if err != nil {
			return err
		}
		merged := mergeByDate(existing, records, func(r AdjFactorRecord) string { return r.TradeDate })
		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing adj factors for %s: %w", code, err)
		}
	}
	return nil
}

// WriteIndicators writes indicator rows, one file per code.
func (s *ParquetStore) WriteIndicators(_ context.Context, rows []IndicatorRecord) error {
	groups := make(map[string][]IndicatorRecord)
	for _, r := range rows {
		if err := checkDate(r.TradeDate); err != nil {
			return err
		}
		groups[r.TsCode] = append(groups[r.TsCode], r)
	}
	for code, records := range groups {
		path := s.seriesPath("indicators", code)
		existing, err := readExisting[IndicatorRecord](path)
		if err != nil {
			return err
		}
		merged := mergeByDate(existing, records, func(r IndicatorRecord) string { return r.TradeDate })
		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing indicators for %s: %w", code, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// source.DataSource implementation
// ---------------------------------------------------------------------------

// Daily reads every year file of a code. A code with no data yields an
// empty series.
func (s *ParquetStore) Daily(_ context.Context, tsCode string) (domain.RawSeries, error) {
	dir := filepath.Join(s.DataDir, string(domain.MarketCN), "daily", strings.ToUpper(tsCode))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.RawSeries{}, nil
		}
		return nil, err
	}

	var out domain.RawSeries
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		records, err := readParquetFile[DailyRecord](filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		for _, r := range records {
			out = append(out, withFloats(domain.RawRow{
				domain.FieldTsCode:    r.TsCode,
				domain.FieldTradeDate: r.TradeDate,
			}, map[string]*float64{
				domain.FieldOpen:   r.Open,
				domain.FieldHigh:   r.High,
				domain.FieldLow:    r.Low,
				domain.FieldClose:  r.Close,
				domain.FieldVol:    r.Vol,
				domain.FieldAmount: r.Amount,
			}))
		}
	}
	return out, nil
}

// AdjFactor reads the adjustment factors of a code.
func (s *ParquetStore) AdjFactor(_ context.Context, tsCode string) (domain.RawSeries, error) {
	records, err := readOptional[AdjFactorRecord](s.seriesPath("adj_factor", tsCode))
	if err != nil {
		return nil, err
	}
	out := make(domain.RawSeries, len(records))
	for i, r := range records {
		out[i] = domain.RawRow{
			domain.FieldTsCode:    r.TsCode,
			domain.FieldTradeDate: r.TradeDate,
			domain.FieldAdjFactor: r.AdjFactor,
		}
	}
	return out, nil
}

// Indicators reads the indicator rows of a code. Nil columns are left out
// of the row, so an indicator family that was never stored is not reported
// as supplied.
func (s *ParquetStore) Indicators(_ context.Context, tsCode string) (domain.RawSeries, error) {
	records, err := readOptional[IndicatorRecord](s.seriesPath("indicators", tsCode))
	if err != nil {
		return nil, err
	}
	out := make(domain.RawSeries, len(records))
	for i, r := range records {
		out[i] = withFloats(domain.RawRow{
			domain.FieldTsCode:    r.TsCode,
			domain.FieldTradeDate: r.TradeDate,
		}, map[string]*float64{
			domain.FieldMA5:        r.MA5,
			domain.FieldMA10:       r.MA10,
			domain.FieldMA20:       r.MA20,
			domain.FieldMA30:       r.MA30,
			domain.FieldKDJK:       r.KDJK,
			domain.FieldKDJD:       r.KDJD,
			domain.FieldKDJJ:       r.KDJJ,
			domain.FieldMACD:       r.MACD,
			domain.FieldMACDSignal: r.MACDSignal,
			domain.FieldMACDHist:   r.MACDHist,
		})
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// dailyPath returns the filesystem path for a daily bar Parquet file.
// Layout: <dataDir>/cn/daily/<TS_CODE>/<YYYY>.parquet
func (s *ParquetStore) dailyPath(tsCode, year string) string {
	return filepath.Join(s.DataDir, string(domain.MarketCN), "daily", strings.ToUpper(tsCode), year+".parquet")
}

// seriesPath returns the path of a single-file series.
// Layout: <dataDir>/cn/<kind>/<TS_CODE>.parquet
func (s *ParquetStore) seriesPath(kind, tsCode string) string {
	return filepath.Join(s.DataDir, string(domain.MarketCN), kind, strings.ToUpper(tsCode)+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// readExisting reads the file a write merges into. Only a missing file
// counts as empty.
func readExisting[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	rows, err := readParquetFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("reading existing %s: %w", path, err)
	}
	return rows, nil
}

// readOptional reads path, treating a missing file as an empty series.
func readOptional[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	rows, err := readParquetFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// mergeByDate deduplicates records by trade date, preferring incoming
// records over existing ones, and sorts them chronologically.
func mergeByDate[T any](existing, incoming []T, date func(T) string) []T {
	seen := make(map[int64]T, len(existing)+len(incoming))
	for _, r := range existing {
		if k, ok := domain.TradeDate(date(r)).Key(); ok {
			seen[k] = r
		}
	}
	for _, r := range incoming {
		if k, ok := domain.TradeDate(date(r)).Key(); ok {
			seen[k] = r
		}
	}

	keys := make([]int64, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	merged := make([]T, len(keys))
	for i, k := range keys {
		merged[i] = seen[k]
	}
	return merged
}

func checkDate(d string) error {
	if len(d) != 8 {
		return fmt.Errorf("invalid trade_date %q: want YYYYMMDD", d)
	}
	if _, ok := domain.TradeDate(d).Key(); !ok {
		return fmt.Errorf("invalid trade_date %q: want YYYYMMDD", d)
	}
	return nil
}

// withFloats sets the non-nil values of fields on row.
func withFloats(row domain.RawRow, fields map[string]*float64) domain.RawRow {
	for name, p := range fields {
		if p != nil {
			row[name] = *p
		}
	}
	return row
}
