// Package mockdata implements a deterministic marketdata.Source for
// tests and the CLI's --mock flag. Each (symbol, horizonDays) pair is
// seeded from an FNV hash of its own inputs, so repeated calls with
// the same arguments always produce byte-identical series — the
// determinism property the spec's mock adapter requires.
package mockdata

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/coachgo/tradecoach/internal/bars"
	"github.com/coachgo/tradecoach/internal/errs"
	"github.com/coachgo/tradecoach/internal/marketdata"
)

func init() {
	marketdata.Register("mock", func(marketdata.Config) (marketdata.Source, error) {
		return New(), nil
	})
}

// Source is the deterministic mock bar generator.
type Source struct{}

// New returns a mock Source. It holds no state: every seed is derived
// fresh from its call arguments.
func New() Source {
	return Source{}
}

// Fetch generates a random-walk daily bar series for symbol, skipping
// weekends, ending on the most recent trading day on or before today.
func (Source) Fetch(_ context.Context, symbol string, horizonDays int) (bars.Series, error) {
	if horizonDays <= 0 {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataEmpty, Symbol: symbol, Message: "horizon must be positive"}
	}

	rng := rand.New(rand.NewSource(seedFor(symbol, horizonDays)))

	end := lastTradingDay(time.Now().UTC())
	dates := make([]time.Time, 0, horizonDays)
	for d := end; len(dates) < horizonDays; d = d.AddDate(0, 0, -1) {
		if isWeekend(d) {
			continue
		}
		dates = append(dates, d)
	}
	// dates were collected backward from `end`; reverse to ascending order.
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}

	price := 50 + rng.Float64()*200
	rows := make([]bars.Bar, 0, len(dates))
	for _, d := range dates {
		open := price
		move := (rng.Float64() - 0.5) * 0.06 * open
		close := open + move
		if close <= 0 {
			close = open * 0.5
		}
		high := maxFloat(open, close) * (1 + rng.Float64()*0.02)
		low := minFloat(open, close) * (1 - rng.Float64()*0.02)
		volume := int64(500000 + rng.Intn(2000000))

		rows = append(rows, bars.Bar{
			Date:   d,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
		price = close
	}

	series, err := bars.NewSeries(rows)
	if err != nil {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataTransport, Symbol: symbol, Message: "generated series failed validation", Cause: err}
	}
	if series.Len() == 0 {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataEmpty, Symbol: symbol, Message: "no trading days in horizon"}
	}
	return series, nil
}

func seedFor(symbol string, horizonDays int) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte{byte(horizonDays), byte(horizonDays >> 8)})
	return int64(h.Sum64())
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func lastTradingDay(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for isWeekend(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
