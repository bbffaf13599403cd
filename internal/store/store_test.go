package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"klinechart/internal/domain"
	"klinechart/internal/series"
)

func ptr(v float64) *float64 { return &v }

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	dp := ps.dailyPath("000001.sz", "2024")
	want := filepath.Join("/data", "cn", "daily", "000001.SZ", "2024.parquet")
	if dp != want {
		t.Errorf("dailyPath mismatch:\n  got  %s\n  want %s", dp, want)
	}

	sp := ps.seriesPath("adj_factor", "600000.SH")
	want = filepath.Join("/data", "cn", "adj_factor", "600000.SH.parquet")
	if sp != want {
		t.Errorf("seriesPath mismatch:\n  got  %s\n  want %s", sp, want)
	}
}

func TestParquetStoreWriteReadDaily(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	rows := []DailyRecord{
		{TsCode: "000001.SZ", TradeDate: "20240103", Open: ptr(9.5), High: ptr(9.9), Low: ptr(9.4), Close: ptr(9.8), Vol: ptr(1200), Amount: ptr(11000)},
		{TsCode: "000001.SZ", TradeDate: "20231229", Open: ptr(9.2), High: ptr(9.6), Low: ptr(9.1), Close: ptr(9.5), Vol: ptr(1000), Amount: ptr(9500)},
	}
	if err := ps.WriteDaily(ctx, rows); err != nil {
		t.Fatalf("WriteDaily: %v", err)
	}

	got, err := ps.Daily(ctx, "000001.SZ")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Daily returned %d rows, want 2", len(got))
	}

	canon := series.Normalize(got)
	if canon[0].TradeDate != "20231229" || canon[1].TradeDate != "20240103" {
		t.Errorf("dates = %v, want [20231229 20240103]", canon.Dates())
	}
	if c := canon[1].Get(domain.FieldClose); c.Float64 != 9.8 {
		t.Errorf("close = %v, want 9.8", c)
	}
}

func TestParquetStoreMergeDaily(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	first := []DailyRecord{{TsCode: "600000.SH", TradeDate: "20240301", Close: ptr(7.0)}}
	if err := ps.WriteDaily(ctx, first); err != nil {
		t.Fatalf("WriteDaily (first): %v", err)
	}
	second := []DailyRecord{
		{TsCode: "600000.SH", TradeDate: "20240301", Close: ptr(7.1)},
		{TsCode: "600000.SH", TradeDate: "20240304", Close: ptr(7.3)},
	}
	if err := ps.WriteDaily(ctx, second); err != nil {
		t.Fatalf("WriteDaily (second): %v", err)
	}

	got, err := ps.Daily(ctx, "600000.SH")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	canon := series.Normalize(got)
	if len(canon) != 2 {
		t.Fatalf("Daily returned %d rows after merge, want 2", len(canon))
	}
	if c := canon[0].Get(domain.FieldClose); c.Float64 != 7.1 {
		t.Errorf("merged close = %v, want 7.1 (newer write wins)", c)
	}
}

func TestParquetStoreDailyKeepsNulls(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if err := ps.WriteDaily(ctx, []DailyRecord{
		{TsCode: "000001.SZ", TradeDate: "20240102", High: ptr(9.6), Low: ptr(9.1), Close: ptr(9.5), Vol: ptr(0)},
	}); err != nil {
		t.Fatalf("WriteDaily: %v", err)
	}
	got, err := ps.Daily(ctx, "000001.SZ")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	row := series.Normalize(got)[0]
	if v := row.Get(domain.FieldOpen); v.Valid {
		t.Errorf("open = %+v, want null", v)
	}
	if v := row.Get(domain.FieldAmount); v.Valid {
		t.Errorf("amount = %+v, want null", v)
	}
	if v := row.Get(domain.FieldVol); !v.Valid || v.Float64 != 0 {
		t.Errorf("vol = %+v, want valid 0", v)
	}
}

func TestParquetStoreWriteKeepsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	path := ps.seriesPath("adj_factor", "000001.SZ")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not parquet"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := ps.WriteAdjFactor(context.Background(), []AdjFactorRecord{
		{TsCode: "000001.SZ", TradeDate: "20240102", AdjFactor: 108},
	})
	if err == nil {
		t.Fatal("WriteAdjFactor overwrote an unreadable file")
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "not parquet" {
		t.Errorf("file content = %q, %v, want it untouched", b, err)
	}
}

func TestParquetStoreRejectsBadDate(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	err := ps.WriteDaily(context.Background(), []DailyRecord{{TsCode: "X", TradeDate: "2024-03-01"}})
	if err == nil {
		t.Fatal("WriteDaily accepted a dashed date")
	}
}

func TestParquetStoreMissingCode(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	daily, err := ps.Daily(ctx, "NOPE")
	if err != nil || len(daily) != 0 {
		t.Errorf("Daily(missing) = (%v, %v), want empty and nil", daily, err)
	}
	adj, err := ps.AdjFactor(ctx, "NOPE")
	if err != nil || len(adj) != 0 {
		t.Errorf("AdjFactor(missing) = (%v, %v), want empty and nil", adj, err)
	}
	ind, err := ps.Indicators(ctx, "NOPE")
	if err != nil || len(ind) != 0 {
		t.Errorf("Indicators(missing) = (%v, %v), want empty and nil", ind, err)
	}
}

func TestParquetStoreAdjFactor(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if err := ps.WriteAdjFactor(ctx, []AdjFactorRecord{
		{TsCode: "000001.SZ", TradeDate: "20240102", AdjFactor: 108.031},
	}); err != nil {
		t.Fatalf("WriteAdjFactor: %v", err)
	}
	got, err := ps.AdjFactor(ctx, "000001.SZ")
	if err != nil {
		t.Fatalf("AdjFactor: %v", err)
	}
	canon := series.Normalize(got)
	if len(canon) != 1 || canon[0].Get(domain.FieldAdjFactor).Float64 != 108.031 {
		t.Errorf("AdjFactor = %+v", canon)
	}
}

func TestParquetStoreIndicatorsKeepNulls(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if err := ps.WriteIndicators(ctx, []IndicatorRecord{
		{TsCode: "000001.SZ", TradeDate: "20240102", MA5: ptr(9.7), MACDHist: ptr(0)},
	}); err != nil {
		t.Fatalf("WriteIndicators: %v", err)
	}
	got, err := ps.Indicators(ctx, "000001.SZ")
	if err != nil {
		t.Fatalf("Indicators: %v", err)
	}
	canon := series.Normalize(got)
	if len(canon) != 1 {
		t.Fatalf("Indicators returned %d rows, want 1", len(canon))
	}
	row := canon[0]
	if v := row.Get(domain.FieldMA5); !v.Valid || v.Float64 != 9.7 {
		t.Errorf("ma5 = %+v, want 9.7", v)
	}
	if v := row.Get(domain.FieldMA30); v.Valid {
		t.Errorf("ma30 = %+v, want null", v)
	}
	if v := row.Get(domain.FieldMACDHist); !v.Valid || v.Float64 != 0 {
		t.Errorf("macd_hist = %+v, want valid 0", v)
	}
	for _, name := range []string{domain.FieldMA30, domain.FieldKDJK, domain.FieldMACD} {
		if _, ok := got[0][name]; ok {
			t.Errorf("row carries null column %s", name)
		}
	}
}

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore returned error: %v", err)
	}
	t.Cleanup(func() {
		if cerr := store.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	})
	return store
}

func seedSecurities(t *testing.T, s *SQLiteStore, n int) {
	t.Helper()
	var secs []domain.Security
	for i := 0; i < n; i++ {
		industry := "银行"
		if i%2 == 1 {
			industry = "软件服务"
		}
		secs = append(secs, domain.Security{
			TsCode:   fmtCode(i),
			Symbol:   fmtCode(i)[:6],
			Name:     "Stock" + fmtCode(i)[:6],
			Industry: industry,
			Market:   "主板",
		})
	}
	if _, err := s.ReplaceSecurities(context.Background(), secs); err != nil {
		t.Fatalf("ReplaceSecurities: %v", err)
	}
}

func fmtCode(i int) string {
	code := []byte("000000.SZ")
	for p := 5; p >= 0 && i > 0; p-- {
		code[p] = byte('0' + i%10)
		i /= 10
	}
	return string(code)
}

func TestSQLiteStoreOpen(t *testing.T) {
	store := newSQLite(t)
	if err := store.db.Ping(); err != nil {
		t.Fatalf("db.Ping() returned error: %v", err)
	}
}

func TestSQLiteStoreReplace(t *testing.T) {
	store := newSQLite(t)
	ctx := context.Background()

	n, err := store.ReplaceSecurities(ctx, []domain.Security{{TsCode: "A"}, {TsCode: "B"}, {TsCode: ""}})
	if err != nil {
		t.Fatalf("ReplaceSecurities: %v", err)
	}
	if n != 2 {
		t.Errorf("ReplaceSecurities = %d, want 2", n)
	}
	n, err = store.ReplaceSecurities(ctx, []domain.Security{{TsCode: "C"}})
	if err != nil || n != 1 {
		t.Errorf("second ReplaceSecurities = (%d, %v), want (1, nil)", n, err)
	}
}

func TestSQLiteStoreListPaging(t *testing.T) {
	store := newSQLite(t)
	seedSecurities(t, store, 25)
	ctx := context.Background()

	items, total, page, err := store.ListSecurities(ctx, Filter{}, 1, 10)
	if err != nil {
		t.Fatalf("ListSecurities: %v", err)
	}
	if total != 25 || page != 1 || len(items) != 10 {
		t.Fatalf("page 1 = %d items, total %d, page %d", len(items), total, page)
	}
	if items[0].TsCode != "000000.SZ" {
		t.Errorf("first item = %s, want 000000.SZ", items[0].TsCode)
	}

	items, _, page, err = store.ListSecurities(ctx, Filter{}, 99, 10)
	if err != nil {
		t.Fatalf("ListSecurities: %v", err)
	}
	if page != 3 || len(items) != 5 {
		t.Errorf("page 99 served page %d with %d items, want page 3 with 5", page, len(items))
	}
}

func TestSQLiteStoreListFilters(t *testing.T) {
	store := newSQLite(t)
	seedSecurities(t, store, 12)
	ctx := context.Background()

	items, total, _, err := store.ListSecurities(ctx, Filter{Industry: "银行"}, 1, 100)
	if err != nil {
		t.Fatalf("ListSecurities: %v", err)
	}
	if total != 6 || len(items) != 6 {
		t.Errorf("industry filter matched %d (total %d), want 6", len(items), total)
	}

	items, _, _, err = store.ListSecurities(ctx, Filter{Name: "stock000011"}, 1, 10)
	if err != nil {
		t.Fatalf("ListSecurities: %v", err)
	}
	if len(items) != 1 || items[0].TsCode != "000011.SZ" {
		t.Errorf("name filter = %+v, want 000011.SZ", items)
	}

	items, total, page, err := store.ListSecurities(ctx, Filter{TsCode: "nothing"}, 1, 10)
	if err != nil {
		t.Fatalf("ListSecurities: %v", err)
	}
	if total != 0 || page != 1 || len(items) != 0 {
		t.Errorf("empty match = %d items, total %d, page %d", len(items), total, page)
	}
}

func TestSQLiteStoreIndustriesAndGet(t *testing.T) {
	store := newSQLite(t)
	seedSecurities(t, store, 4)
	ctx := context.Background()

	inds, err := store.Industries(ctx)
	if err != nil {
		t.Fatalf("Industries: %v", err)
	}
	if len(inds) != 2 {
		t.Errorf("Industries = %v, want 2 entries", inds)
	}

	sec, err := store.GetSecurity(ctx, "000001.SZ")
	if err != nil || sec == nil || sec.Industry != "软件服务" {
		t.Errorf("GetSecurity = (%+v, %v)", sec, err)
	}
	sec, err = store.GetSecurity(ctx, "missing")
	if err != nil || sec != nil {
		t.Errorf("GetSecurity(missing) = (%+v, %v), want (nil, nil)", sec, err)
	}

	codes, err := store.Codes(ctx)
	if err != nil {
		t.Fatalf("Codes: %v", err)
	}
	want := []string{"000000.SZ", "000001.SZ", "000002.SZ", "000003.SZ"}
	if len(codes) != len(want) {
		t.Fatalf("Codes = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("Codes[%d] = %s, want %s", i, codes[i], want[i])
		}
	}
}
