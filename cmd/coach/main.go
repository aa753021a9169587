// Package main - coach CLI. Analyzes a single trade's entry timing and
// behavioral pattern against the user's own trade history, in the
// box-drawing report style of the teacher's daily-stats CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/coachgo/tradecoach/internal/behavior"
	"github.com/coachgo/tradecoach/internal/coach"
	"github.com/coachgo/tradecoach/internal/config"
	"github.com/coachgo/tradecoach/internal/errs"
	"github.com/coachgo/tradecoach/internal/logging"
	"github.com/coachgo/tradecoach/internal/marketdata"
	_ "github.com/coachgo/tradecoach/internal/marketdata/live"
	_ "github.com/coachgo/tradecoach/internal/marketdata/mockdata"
	"github.com/coachgo/tradecoach/internal/store"
	"github.com/coachgo/tradecoach/internal/timing"
)

const (
	reset  = "\033[0m"
	red    = "\033[0;31m"
	green  = "\033[0;32m"
	yellow = "\033[1;33m"
	blue   = "\033[0;34m"
	cyan   = "\033[0;36m"
)

// Exit codes per the CLI contract: success, validation, market data, store, other.
const (
	exitSuccess     = 0
	exitOther       = 1
	exitValidation  = 2
	exitMarketData  = 3
	exitStoreError  = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logging.Init(os.Getenv("COACH_DEBUG") != "")

	if len(args) > 0 && args[0] == "trades" {
		return runTrades(args[1:])
	}
	return runAnalyze(args)
}

func runAnalyze(args []string) int {
	positional, rest := splitPositional(args, 3)
	if len(positional) < 3 {
		fmt.Fprintln(os.Stderr, "usage: coach <symbol> <entry_price> <entry_date> [--position-size N] [--stock-beta F] [--sector S] [--horizon {7,30,90}] [--mock] [--no-save] [--init-db]")
		return exitValidation
	}

	cfg := config.Default()
	if loaded, err := config.Load(""); err == nil {
		cfg = loaded
	}

	fs := flag.NewFlagSet("coach", flag.ContinueOnError)
	positionSize := fs.Float64("position-size", 0, "position size in currency units")
	stockBeta := fs.Float64("stock-beta", 0, "stock beta")
	sector := fs.String("sector", "", "sector")
	horizon := fs.Int("horizon", cfg.DefaultHorizon, "lookahead horizon in days (7, 30, or 90)")
	mock := fs.Bool("mock", false, "use the deterministic mock market-data source")
	noSave := fs.Bool("no-save", false, "analyze without persisting the trade")
	initDB := fs.Bool("init-db", false, "initialize the database file and exit")
	dbPath := fs.String("db", "", "database file path (overrides config/env)")
	fs.Float64Var(positionSize, "p", 0, "position size in currency units (shorthand)")
	fs.Float64Var(stockBeta, "b", 0, "stock beta (shorthand)")
	fs.StringVar(sector, "s", "", "sector (shorthand)")
	fs.IntVar(horizon, "H", cfg.DefaultHorizon, "horizon (shorthand)")
	if err := fs.Parse(rest); err != nil {
		return exitValidation
	}

	hasFlag := func(name string) bool {
		found := false
		fs.Visit(func(f *flag.Flag) {
			if f.Name == name {
				found = true
			}
		})
		return found
	}

	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store error: %v\n", err)
		return exitStoreError
	}
	defer st.Close()

	if *initDB {
		fmt.Printf("database initialized at %s\n", cfg.DatabasePath)
		return exitSuccess
	}

	entryPrice, err := strconv.ParseFloat(positional[1], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid entry price %q\n", positional[1])
		return exitValidation
	}
	entryDate, err := time.Parse("2006-01-02", positional[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid entry date %q (want YYYY-MM-DD)\n", positional[2])
		return exitValidation
	}

	source := "live"
	if *mock {
		source = "mock"
	}

	req := coach.Request{
		Symbol:     positional[0],
		EntryPrice: entryPrice,
		EntryDate:  entryDate,
		Horizon:    *horizon,
		Sector:     *sector,
		Source:     source,
		Save:       !*noSave,
	}
	if hasFlag("position-size") || hasFlag("p") {
		req.PositionSize = positionSize
	}
	if hasFlag("stock-beta") || hasFlag("b") {
		req.StockBeta = stockBeta
	}

	sources := map[string]marketdata.Source{}
	if mockSrc, err := marketdata.New("mock", marketdata.Config{}); err == nil {
		sources["mock"] = mockSrc
	}
	if liveSrc, err := marketdata.New("live", marketdata.Config{
		TigerID:       cfg.Broker.TigerID,
		PrivateKeyPK1: cfg.Broker.PrivateKeyPK1,
		Account:       cfg.Broker.Account,
	}); err == nil {
		sources["live"] = liveSrc
	}

	c := coach.New(st, sources)
	ctx := context.Background()
	log.Debug().Str("symbol", req.Symbol).Str("source", req.Source).Msg("starting coaching analysis")
	report, err := c.Analyze(ctx, req)
	if err != nil {
		return reportError(err)
	}

	renderReport(req, report)
	return exitSuccess
}

func runTrades(args []string) int {
	fs := flag.NewFlagSet("coach trades", flag.ContinueOnError)
	n := fs.Int("n", 10, "number of trades to show")
	dbPath := fs.String("db", "", "database file path")
	if err := fs.Parse(args); err != nil {
		return exitValidation
	}

	cfg := config.Default()
	if loaded, err := config.Load(""); err == nil {
		cfg.DatabasePath = loaded.DatabasePath
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store error: %v\n", err)
		return exitStoreError
	}
	defer st.Close()

	trades, err := st.GetLastNTrades(context.Background(), *n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store error: %v\n", err)
		return exitStoreError
	}

	fmt.Printf("%s%-10s %-12s %-12s %-8s%s\n", blue, "SYMBOL", "ENTRY", "DATE", "HORIZON", reset)
	for _, t := range trades {
		fmt.Printf("%-10s %-12s %-12s %-8d\n", t.Symbol, formatCurrency(t.EntryPrice), t.EntryDate.Format("2006-01-02"), t.Horizon)
	}
	return exitSuccess
}

func reportError(err error) int {
	switch e := err.(type) {
	case *errs.InvalidInput:
		fmt.Fprintf(os.Stderr, "validation error: %s\n", e.Error())
		return exitValidation
	case *errs.MarketDataError:
		fmt.Fprintf(os.Stderr, "market data error: %s (try --mock)\n", e.Error())
		return exitMarketData
	case *errs.StoreError:
		fmt.Fprintf(os.Stderr, "store error: %s\n", e.Error())
		return exitStoreError
	case *errs.Cancelled:
		fmt.Fprintf(os.Stderr, "cancelled: %s\n", e.Error())
		return exitOther
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitOther
	}
}

func renderReport(req coach.Request, r *coach.Report) {
	fmt.Printf("%s%s%s\n", cyan, strings.Repeat("=", 60), reset)
	fmt.Printf("%sTRADE SUMMARY%s\n", cyan, reset)
	fmt.Printf("%s%s%s\n", cyan, strings.Repeat("=", 60), reset)
	fmt.Printf("  Symbol:       %s\n", req.Symbol)
	fmt.Printf("  Entry Price:  %s\n", formatCurrency(req.EntryPrice))
	fmt.Printf("  Entry Date:   %s\n", req.EntryDate.Format("2006-01-02"))
	fmt.Printf("  Horizon:      %d days\n", req.Horizon)
	if r.TradeID > 0 {
		fmt.Printf("  Trade ID:     %d\n", r.TradeID)
	}
	fmt.Println()

	fmt.Printf("%s%s%s\n", blue, strings.Repeat("-", 60), reset)
	fmt.Printf("%sTIMING EFFICIENCY ANALYSIS%s\n", blue, reset)
	fmt.Printf("%s%s%s\n", blue, strings.Repeat("-", 60), reset)
	t := r.Timing
	fmt.Printf("  MFE:                    %s (%.2f%%)\n", formatCurrency(t.MFE), t.MFEPercent)
	fmt.Printf("  MAE:                    %s (%.2f%%)\n", formatCurrency(t.MAE), t.MAEPercent)
	fmt.Printf("  Ideal Entry:            %s\n", formatCurrency(t.IdealEntry))
	fmt.Printf("  Entry Timing Score:     %.2f%%\n", t.EntryTimingScore)
	fmt.Printf("  Missed Profit Potential:%.2f%%\n", t.MissedProfitPotential)
	fmt.Printf("  Verdict:                %s%s%s\n", verdictColor(t.Verdict), t.Verdict, reset)
	fmt.Println()

	fmt.Printf("%s%s%s\n", blue, strings.Repeat("-", 60), reset)
	fmt.Printf("%sBEHAVIORAL PATTERN ANALYSIS%s\n", blue, reset)
	fmt.Printf("%s%s%s\n", blue, strings.Repeat("-", 60), reset)
	renderBehavioral(r.Behavioral)
	fmt.Println()

	fmt.Printf("%s%s%s\n", green, strings.Repeat("=", 60), reset)
	fmt.Printf("%sCOACHING ADVICE%s\n", green, reset)
	fmt.Printf("%s%s%s\n", green, strings.Repeat("=", 60), reset)
	fmt.Println("  " + adviceFor(t.Verdict, r.Behavioral.IsAnomaly))

	if !r.PersistedAnalysis {
		fmt.Printf("\n%swarning: trade saved but analysis storage failed%s\n", yellow, reset)
	}
}

func renderBehavioral(b behavior.Report) {
	if len(b.Anomalies) == 0 && len(b.Warnings) == 0 {
		fmt.Println("  No anomalies detected (or insufficient history).")
		return
	}
	for _, a := range b.Anomalies {
		fmt.Printf("  %s[ANOMALY]%s %s (z=%.2f)\n", red, reset, a.Message, a.ZScore)
	}
	for _, w := range b.Warnings {
		fmt.Printf("  %s[NOTE]%s %s\n", yellow, reset, w.Message)
	}
}

func verdictColor(v timing.Verdict) string {
	switch v {
	case timing.VerdictExcellent, timing.VerdictGood:
		return green
	case timing.VerdictFair:
		return yellow
	case timing.VerdictPoor:
		return red
	default:
		return reset
	}
}

func adviceFor(v timing.Verdict, anomaly bool) string {
	var advice string
	switch v {
	case timing.VerdictExcellent:
		advice = "Your entry captured the post-entry move well. Keep using this timing approach."
	case timing.VerdictGood:
		advice = "Solid entry. A little patience could have improved it further."
	case timing.VerdictFair:
		advice = "Entry lagged the best available price. Consider waiting for confirmation before entering."
	case timing.VerdictPoor:
		advice = "Entry significantly trailed the ideal price. Review your trigger conditions."
	default:
		advice = "Not enough post-entry data to judge timing."
	}
	if anomaly {
		advice += " This trade also deviates from your historical pattern — double-check sizing and risk before repeating it."
	}
	return advice
}

func formatCurrency(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := int64(v*100 + 0.5)
	whole := cents / 100
	frac := cents % 100
	return fmt.Sprintf("%s%s.%02d", sign, humanize.Comma(whole), frac)
}

// splitPositional collects up to n leading non-flag tokens from args
// and returns them alongside the remainder, so flags may follow
// positional arguments per the CLI's documented usage.
func splitPositional(args []string, n int) (positional, rest []string) {
	i := 0
	for i < len(args) && len(positional) < n {
		if strings.HasPrefix(args[i], "-") {
			break
		}
		positional = append(positional, args[i])
		i++
	}
	return positional, args[i:]
}
