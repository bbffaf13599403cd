package cn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"klinechart/internal/domain"
	"klinechart/internal/gather"
	"klinechart/internal/series"
	"klinechart/internal/source"
	"klinechart/internal/store"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*SeriesSync)(nil)

// CodeLister lists the securities to synchronize.
type CodeLister interface {
	Codes(ctx context.Context) ([]string, error)
}

// ---------------------------------------------------------------------------
// SeriesSync: mirrors the series of every listed security into a store.
// ---------------------------------------------------------------------------

// SeriesSync copies daily bars, adjustment factors and indicators from a
// DataSource (usually the upstream HTTP API) into a SeriesStore.
type SeriesSync struct {
	src     source.DataSource
	dst     store.SeriesStore
	codes   CodeLister
	workers int
	log     *slog.Logger
}

// NewSeriesSync creates a SeriesSync running up to workers codes at a time.
func NewSeriesSync(src source.DataSource, dst store.SeriesStore, codes CodeLister, workers int, log *slog.Logger) *SeriesSync {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &SeriesSync{src: src, dst: dst, codes: codes, workers: workers, log: log}
}

// Name returns the gatherer identifier.
func (g *SeriesSync) Name() string { return "cn-series-sync" }

// Result counts the rows written for one code. Skipped lists the series
// whose fetch failed.
type Result struct {
	TsCode     string
	Daily      int
	AdjFactor  int
	Indicators int
	Skipped    []source.Kind
}

// Run synchronizes every listed code. A failing code is logged and does not
// stop the others; Run reports how many failed.
func (g *SeriesSync) Run(ctx context.Context) error {
	codes, err := g.codes.Codes(ctx)
	if err != nil {
		return fmt.Errorf("listing codes: %w", err)
	}
	g.log.Info("series sync starting", "codes", len(codes), "workers", g.workers)

	var (
		mu     sync.Mutex
		failed int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, code := range codes {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			res, err := g.SyncCode(egCtx, code)
			if err != nil {
				g.log.Warn("sync failed", "ts_code", code, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			g.log.Debug("synced", "ts_code", code, "daily", res.Daily, "adj_factor", res.AdjFactor,
				"indicators", res.Indicators, "skipped", res.Skipped)
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	g.log.Info("series sync finished", "codes", len(codes), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d codes failed", failed, len(codes))
	}
	return nil
}

// SyncCode fetches the three series of code and writes whatever was
// fetched. It fails only when the daily bars could not be fetched or a
// write fails.
func (g *SeriesSync) SyncCode(ctx context.Context, code string) (Result, error) {
	b := source.FetchAll(ctx, g.src, code)
	if err := b.PrimaryErr(); err != nil {
		return Result{}, err
	}
	res := Result{TsCode: code}

	daily := dailyRecords(code, series.Normalize(b.Daily))
	if err := g.dst.WriteDaily(ctx, daily); err != nil {
		return res, fmt.Errorf("writing daily bars: %w", err)
	}
	res.Daily = len(daily)

	if err := b.Err(source.KindAdjFactor); err != nil {
		res.Skipped = append(res.Skipped, source.KindAdjFactor)
	} else {
		adj := adjRecords(code, series.Normalize(b.AdjFactor))
		if err := g.dst.WriteAdjFactor(ctx, adj); err != nil {
			return res, fmt.Errorf("writing adj factors: %w", err)
		}
		res.AdjFactor = len(adj)
	}

	if err := b.Err(source.KindIndicators); err != nil {
		res.Skipped = append(res.Skipped, source.KindIndicators)
	} else {
		ind := indicatorRecords(code, series.Normalize(b.Indicators))
		if err := g.dst.WriteIndicators(ctx, ind); err != nil {
			return res, fmt.Errorf("writing indicators: %w", err)
		}
		res.Indicators = len(ind)
	}
	return res, nil
}

// Rows whose date is not YYYYMMDD cannot be stored and are skipped.
func storable(d domain.TradeDate) bool { return len(d) == 8 }

func dailyRecords(code string, rows series.Canonical) []store.DailyRecord {
	out := make([]store.DailyRecord, 0, len(rows))
	for _, r := range rows {
		if !storable(r.TradeDate) {
			continue
		}
		out = append(out, store.DailyRecord{
			TsCode:    code,
			TradeDate: string(r.TradeDate),
			Open:      r.Get(domain.FieldOpen).Ptr(),
			High:      r.Get(domain.FieldHigh).Ptr(),
			Low:       r.Get(domain.FieldLow).Ptr(),
			Close:     r.Get(domain.FieldClose).Ptr(),
			Vol:       r.Get(domain.FieldVol).Ptr(),
			Amount:    r.Get(domain.FieldAmount).Ptr(),
		})
	}
	return out
}

func adjRecords(code string, rows series.Canonical) []store.AdjFactorRecord {
	out := make([]store.AdjFactorRecord, 0, len(rows))
	for _, r := range rows {
		v := r.Get(domain.FieldAdjFactor)
		if !storable(r.TradeDate) || !v.Valid {
			continue
		}
		out = append(out, store.AdjFactorRecord{TsCode: code, TradeDate: string(r.TradeDate), AdjFactor: v.Float64})
	}
	return out
}

func indicatorRecords(code string, rows series.Canonical) []store.IndicatorRecord {
	out := make([]store.IndicatorRecord, 0, len(rows))
	for _, r := range rows {
		if !storable(r.TradeDate) {
			continue
		}
		out = append(out, store.IndicatorRecord{
			TsCode:     code,
			TradeDate:  string(r.TradeDate),
			MA5:        r.Get(domain.FieldMA5).Ptr(),
			MA10:       r.Get(domain.FieldMA10).Ptr(),
			MA20:       r.Get(domain.FieldMA20).Ptr(),
			MA30:       r.Get(domain.FieldMA30).Ptr(),
			KDJK:       r.Get(domain.FieldKDJK).Ptr(),
			KDJD:       r.Get(domain.FieldKDJD).Ptr(),
			KDJJ:       r.Get(domain.FieldKDJJ).Ptr(),
			MACD:       r.Get(domain.FieldMACD).Ptr(),
			MACDSignal: r.Get(domain.FieldMACDSignal).Ptr(),
			MACDHist:   r.Get(domain.FieldMACDHist).Ptr(),
		})
	}
	return out
}
