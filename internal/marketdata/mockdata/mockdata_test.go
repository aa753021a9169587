package mockdata

import (
	"context"
	"testing"
	"time"
)

// Property 9: determinism of the mock adapter.
func TestFetch_DeterministicAcrossCalls(t *testing.T) {
	src := New()
	ctx := context.Background()

	first, err := src.Fetch(ctx, "AAPL", 30)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := src.Fetch(ctx, "AAPL", 30)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if first.Len() != second.Len() {
		t.Fatalf("expected identical lengths, got %d and %d", first.Len(), second.Len())
	}
	for i, b := range first.Bars() {
		other := second.Bars()[i]
		if b != other {
			t.Fatalf("bar %d differs between calls: %+v vs %+v", i, b, other)
		}
	}
}

func TestFetch_DifferentSymbolsDiffer(t *testing.T) {
	src := New()
	ctx := context.Background()

	a, err := src.Fetch(ctx, "AAPL", 30)
	if err != nil {
		t.Fatalf("fetch AAPL: %v", err)
	}
	b, err := src.Fetch(ctx, "MSFT", 30)
	if err != nil {
		t.Fatalf("fetch MSFT: %v", err)
	}

	if a.Bars()[0] == b.Bars()[0] {
		t.Error("expected different symbols to produce different series")
	}
}

func TestFetch_RejectsNonPositiveHorizon(t *testing.T) {
	src := New()
	if _, err := src.Fetch(context.Background(), "AAPL", 0); err == nil {
		t.Fatal("expected error for zero horizon")
	}
}

func TestFetch_SeriesEndsOnOrBeforeToday(t *testing.T) {
	src := New()
	series, err := src.Fetch(context.Background(), "AAPL", 7)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	last := series.Bars()[series.Len()-1]
	if last.Date.After(lastTradingDay(time.Now().UTC())) {
		t.Errorf("expected final bar on or before today, got %s", last.Date)
	}
}

func TestFetch_NoWeekendBars(t *testing.T) {
	src := New()
	series, err := src.Fetch(context.Background(), "AAPL", 30)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	for _, b := range series.Bars() {
		if isWeekend(b.Date) {
			t.Errorf("unexpected weekend bar at %s", b.Date)
		}
	}
}
