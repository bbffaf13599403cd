package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"klinechart/internal/config"
	"klinechart/internal/store"
	"klinechart/pkg/klinechart"
)

const version = "0.1.0"

func main() {
	server := flag.String("server", envOr("KLINECHART_SERVER", "http://localhost:8000"), "kline-server base URL")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kline-cli [-server URL] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version                          Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  stocks [page] [industry]         List securities\n")
		fmt.Fprintf(os.Stderr, "  chart <ts_code>                  Print the chart spec as JSON\n")
		fmt.Fprintf(os.Stderr, "  tooltip <ts_code> <index>        Print the tooltip of one trade date\n")
		fmt.Fprintf(os.Stderr, "  adj <ts_code> [page]             Print a page of the adjustment table\n")
		fmt.Fprintf(os.Stderr, "  import-securities <csv>          Load the security list into SQLite\n")
		fmt.Fprintf(os.Stderr, "  import-series <kind> <csv>       Load daily|adj_factor|indicators rows into Parquet\n")
		fmt.Fprintf(os.Stderr, "\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	client := klinechart.NewClient(*server)

	var err error
	switch args[0] {
	case "version":
		fmt.Printf("kline-cli %s\n", version)

	case "stocks":
		err = listStocks(ctx, client, args[1:])

	case "chart":
		requireArgs(args, 2)
		var c *klinechart.Chart
		if c, err = client.Chart(ctx, args[1]); err == nil {
			err = printJSON(c)
		}

	case "tooltip":
		requireArgs(args, 3)
		err = printTooltip(ctx, client, args[1], args[2])

	case "adj":
		requireArgs(args, 2)
		page := 1
		if len(args) > 2 {
			page = atoi(args[2])
		}
		var p *klinechart.AdjFactorPage
		if p, err = client.AdjFactor(ctx, args[1], page); err == nil {
			fmt.Printf("%s  page %d/%d  (%d rows)\n", p.TsCode, p.Page, p.TotalPages, p.Total)
			for _, row := range p.Items {
				v := "-"
				if row.AdjFactor.Valid {
					v = strconv.FormatFloat(row.AdjFactor.Float64, 'f', -1, 64)
				}
				fmt.Printf("%s  %s\n", row.TradeDate, v)
			}
		}

	case "import-securities":
		requireArgs(args, 2)
		err = importSecurities(ctx, args[1])

	case "import-series":
		requireArgs(args, 3)
		err = importSeries(ctx, args[1], args[2])

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func listStocks(ctx context.Context, client *klinechart.Client, args []string) error {
	p := klinechart.ListParams{Page: 1}
	if len(args) > 0 {
		p.Page = atoi(args[0])
	}
	if len(args) > 1 {
		p.Industry = args[1]
	}
	list, err := client.ListStocks(ctx, p)
	if err != nil {
		return err
	}
	fmt.Printf("page %d/%d  (%d securities)\n", list.Page, list.TotalPages, list.Total)
	for _, s := range list.Items {
		fmt.Printf("%-10s %-8s %-12s %s\n", s.TsCode, s.Symbol, s.Name, s.Industry)
	}
	return nil
}

func printTooltip(ctx context.Context, client *klinechart.Client, tsCode, index string) error {
	c, err := client.Chart(ctx, tsCode)
	if err != nil {
		return err
	}
	i := atoi(index)
	if i < 0 {
		i += len(c.Tooltips)
	}
	if i < 0 || i >= len(c.Tooltips) {
		return fmt.Errorf("index %s out of range [0, %d)", index, len(c.Tooltips))
	}
	fmt.Println(strings.Join(c.Tooltips[i], "\n"))
	return nil
}

func importSecurities(ctx context.Context, path string) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	secs, err := store.ReadSecuritiesCSV(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.ReplaceSecurities(ctx, secs)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d securities into %s\n", n, cfg.Storage.SQLitePath)
	return nil
}

func importSeries(ctx context.Context, kind, path string) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ps := store.NewParquetStore(cfg.Storage.DataDir)
	var n int
	switch kind {
	case "daily":
		rows, err := store.ReadDailyCSV(f)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		n = len(rows)
		if err := ps.WriteDaily(ctx, rows); err != nil {
			return err
		}
	case "adj_factor":
		rows, err := store.ReadAdjFactorCSV(f)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		n = len(rows)
		if err := ps.WriteAdjFactor(ctx, rows); err != nil {
			return err
		}
	case "indicators":
		rows, err := store.ReadIndicatorsCSV(f)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		n = len(rows)
		if err := ps.WriteIndicators(ctx, rows); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown series kind %q (want daily, adj_factor or indicators)", kind)
	}
	fmt.Printf("imported %d %s rows into %s\n", n, kind, cfg.Storage.DataDir)
	return nil
}

func requireArgs(args []string, n int) {
	if len(args) < n {
		flag.Usage()
		os.Exit(1)
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid number: %s\n", s)
		os.Exit(1)
	}
	return n
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
