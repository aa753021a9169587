// Package bars holds the in-memory representation of daily OHLCV rows
// used by the timing and behavioral analyzers. It does no I/O: bars are
// always produced by a market-data source and consumed by a pure
// function.
package bars

import (
	"fmt"
	"time"
)

// Bar is an immutable daily OHLCV record. Per-bar invariant:
// low <= open, close <= high and low <= high.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

func (b Bar) validate() error {
	if b.Low <= 0 {
		return fmt.Errorf("bar %s: low %.4f must be positive", b.Date.Format("2006-01-02"), b.Low)
	}
	if b.Low > b.High {
		return fmt.Errorf("bar %s: low %.4f > high %.4f", b.Date.Format("2006-01-02"), b.Low, b.High)
	}
	if b.Open < b.Low || b.Open > b.High {
		return fmt.Errorf("bar %s: open %.4f outside [low %.4f, high %.4f]", b.Date.Format("2006-01-02"), b.Open, b.Low, b.High)
	}
	if b.Close < b.Low || b.Close > b.High {
		return fmt.Errorf("bar %s: close %.4f outside [low %.4f, high %.4f]", b.Date.Format("2006-01-02"), b.Close, b.Low, b.High)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s: negative volume %d", b.Date.Format("2006-01-02"), b.Volume)
	}
	return nil
}

// Series is an ordered, immutable sequence of Bar, strictly increasing
// by date. Construction validates the sequence once; every other
// operation trusts that invariant.
type Series struct {
	bars []Bar
}

// NewSeries validates bars (per-bar shape and strictly-increasing dates)
// and returns an immutable Series. An empty slice is a valid, empty
// series — callers that require at least one bar check Len() themselves.
func NewSeries(input []Bar) (Series, error) {
	cp := make([]Bar, len(input))
	copy(cp, input)

	for i, b := range cp {
		if err := b.validate(); err != nil {
			return Series{}, fmt.Errorf("bars: %w", err)
		}
		if i > 0 && !cp[i].Date.After(cp[i-1].Date) {
			return Series{}, fmt.Errorf("bars: dates not strictly increasing at index %d (%s <= %s)",
				i, cp[i].Date.Format("2006-01-02"), cp[i-1].Date.Format("2006-01-02"))
		}
	}

	return Series{bars: cp}, nil
}

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s.bars) }

// Bars returns a copy of the underlying bar slice, ascending by date.
func (s Series) Bars() []Bar {
	cp := make([]Bar, len(s.bars))
	copy(cp, s.bars)
	return cp
}

// After returns the slice of bars whose date is strictly after the given
// date, optionally bounded by limit (0 means unbounded). This is the
// "post-entry window" the timing analyzer operates on.
func (s Series) After(date time.Time, limit int) Series {
	var out []Bar
	for _, b := range s.bars {
		if b.Date.After(date) {
			out = append(out, b)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	// Already validated on construction; skip re-validation of a subslice.
	return Series{bars: out}
}

// MaxHigh returns the highest high across the series. ok is false for an
// empty series.
func (s Series) MaxHigh() (high float64, ok bool) {
	if len(s.bars) == 0 {
		return 0, false
	}
	high = s.bars[0].High
	for _, b := range s.bars[1:] {
		if b.High > high {
			high = b.High
		}
	}
	return high, true
}

// MinLow returns the lowest low across the series. ok is false for an
// empty series.
func (s Series) MinLow() (low float64, ok bool) {
	if len(s.bars) == 0 {
		return 0, false
	}
	low = s.bars[0].Low
	for _, b := range s.bars[1:] {
		if b.Low < low {
			low = b.Low
		}
	}
	return low, true
}
