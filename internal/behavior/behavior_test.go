package behavior

import (
	"math"
	"testing"

	"github.com/coachgo/tradecoach/internal/store"
)

func fullTrade(id int64, positionSize, stockBeta float64, sector string) store.Trade {
	return store.Trade{
		ID:     id,
		Symbol: "AAPL",
		Behavioral: &store.BehavioralAttrs{
			PositionSize: positionSize,
			StockBeta:    stockBeta,
			Sector:       sector,
		},
	}
}

// S3: cold-start behavioural — empty history yields the zero report.
func TestAnalyze_S3_ColdStartEmptyHistory(t *testing.T) {
	candidate := fullTrade(0, 5000, 1.1, "Technology")
	report := Analyze(candidate, nil)

	if report.IsAnomaly {
		t.Error("expected is_anomaly=false with empty history")
	}
	if len(report.Anomalies) != 0 {
		t.Errorf("expected no anomalies, got %+v", report.Anomalies)
	}
	if report.PositionSizeMetrics != nil || report.StockBetaMetrics != nil {
		t.Error("expected no metrics with empty history")
	}
}

// S4: oversized position — history clustered at ~5,000, candidate at 50,000.
func TestAnalyze_S4_OversizedPosition(t *testing.T) {
	history := make([]store.Trade, 10)
	for i := range history {
		history[i] = fullTrade(int64(i+1), 5000+float64(i%3)*10, 1.0, "Technology")
	}
	candidate := fullTrade(99, 50000, 1.0, "Technology")

	report := Analyze(candidate, history)

	if !report.IsAnomaly {
		t.Fatal("expected is_anomaly=true for oversized position")
	}
	if len(report.Anomalies) != 1 {
		t.Fatalf("expected exactly 1 anomaly, got %d: %+v", len(report.Anomalies), report.Anomalies)
	}
	got := report.Anomalies[0]
	if got.Type != AnomalyPositionSize {
		t.Errorf("expected position_size anomaly, got %s", got.Type)
	}
	if got.ZScore < zScoreThreshold {
		t.Errorf("expected z_score >= %.1f, got %.4f", zScoreThreshold, got.ZScore)
	}
}

// S5: new sector, numerics in range — warning only, no anomaly.
func TestAnalyze_S5_NewSectorHarmless(t *testing.T) {
	history := []store.Trade{
		fullTrade(1, 5000, 1.0, "Technology"),
		fullTrade(2, 5100, 1.05, "Healthcare"),
		fullTrade(3, 4950, 0.98, "Technology"),
	}
	candidate := fullTrade(99, 5050, 1.02, "Cryptocurrency")

	report := Analyze(candidate, history)

	if report.IsAnomaly {
		t.Error("expected is_anomaly=false for in-range numerics")
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected exactly 1 sector warning, got %d", len(report.Warnings))
	}
	warning := report.Warnings[0]
	if warning.CurrentSector != "Cryptocurrency" {
		t.Errorf("expected current_sector Cryptocurrency, got %s", warning.CurrentSector)
	}
	want := map[string]bool{"Technology": true, "Healthcare": true}
	if len(warning.KnownSectors) != 2 {
		t.Fatalf("expected 2 known sectors, got %+v", warning.KnownSectors)
	}
	for _, s := range warning.KnownSectors {
		if !want[s] {
			t.Errorf("unexpected known sector %s", s)
		}
	}
}

// S6: multi-anomaly — candidate breaches both position_size and stock_beta.
func TestAnalyze_S6_MultiAnomalyOrdering(t *testing.T) {
	history := []store.Trade{
		fullTrade(1, 5000, 1.0, "Technology"),
		fullTrade(2, 5010, 1.01, "Technology"),
		fullTrade(3, 4990, 0.99, "Technology"),
		fullTrade(4, 5005, 1.0, "Technology"),
	}
	candidate := fullTrade(99, 50000, 5.0, "Technology")

	report := Analyze(candidate, history)

	if !report.IsAnomaly {
		t.Fatal("expected is_anomaly=true")
	}
	if len(report.Anomalies) != 2 {
		t.Fatalf("expected 2 anomalies, got %d", len(report.Anomalies))
	}
	if report.Anomalies[0].Type != AnomalyPositionSize {
		t.Errorf("expected first anomaly position_size, got %s", report.Anomalies[0].Type)
	}
	if report.Anomalies[1].Type != AnomalyStockBeta {
		t.Errorf("expected second anomaly stock_beta, got %s", report.Anomalies[1].Type)
	}
}

// Property 4: sample gate — fewer than 2 eligible history trades.
func TestAnalyze_SampleGate_InsufficientHistory(t *testing.T) {
	history := []store.Trade{fullTrade(1, 50, 1.0, "Technology")}
	candidate := fullTrade(99, 50000, 9.0, "Technology")

	report := Analyze(candidate, history)
	if report.IsAnomaly || len(report.Anomalies) != 0 {
		t.Errorf("expected no anomaly detection with N<2, got %+v", report)
	}
}

// Property 4 continued: ineligible history rows (missing behavioral
// attrs) don't count toward the sample.
func TestAnalyze_SampleGate_IneligibleHistoryExcluded(t *testing.T) {
	history := []store.Trade{
		fullTrade(1, 5000, 1.0, "Technology"),
		{ID: 2, Symbol: "MSFT"}, // no Behavioral attrs: ineligible
	}
	candidate := fullTrade(99, 50000, 1.0, "Technology")

	report := Analyze(candidate, history)
	if report.IsAnomaly {
		t.Errorf("expected no anomaly with only 1 eligible history row, got %+v", report)
	}
}

func TestAnalyze_CandidateSelfExcludedFromHistory(t *testing.T) {
	history := []store.Trade{
		fullTrade(1, 5000, 1.0, "Technology"),
		fullTrade(2, 5100, 1.0, "Technology"),
	}
	// Candidate shares an ID with one of the history rows (as happens
	// when a saved trade is re-analyzed against its own prior save).
	candidate := fullTrade(1, 5050, 1.0, "Technology")

	report := Analyze(candidate, history)
	// Only 1 eligible row remains once id=1 is excluded: below the gate.
	if report.IsAnomaly || report.PositionSizeMetrics != nil {
		t.Errorf("expected candidate excluded from its own history, got %+v", report)
	}
}

func TestAnalyze_CandidateMissingBehavioralAttrs_EmptyReport(t *testing.T) {
	candidate := store.Trade{ID: 99, Symbol: "AAPL"}
	history := []store.Trade{
		fullTrade(1, 5000, 1.0, "Technology"),
		fullTrade(2, 5100, 1.0, "Technology"),
	}
	report := Analyze(candidate, history)
	if report.IsAnomaly || len(report.Anomalies) != 0 {
		t.Errorf("expected empty report for behavior-less candidate, got %+v", report)
	}
}

// Property 5: z-score symmetry under reflection around the mean.
func TestZScoreSymmetry(t *testing.T) {
	history := []store.Trade{
		fullTrade(1, 100, 1.0, "Technology"),
		fullTrade(2, 120, 1.0, "Technology"),
		fullTrade(3, 90, 1.0, "Technology"),
		fullTrade(4, 110, 1.0, "Technology"),
	}
	candidate := fullTrade(99, 200, 1.0, "Technology")

	report := Analyze(candidate, history)
	originalZ := report.PositionSizeMetrics.ZScore

	mean := meanOf([]float64{100, 120, 90, 110})
	reflectedHistory := make([]store.Trade, len(history))
	for i, h := range history {
		reflectedHistory[i] = fullTrade(h.ID, 2*mean-h.Behavioral.PositionSize, 1.0, "Technology")
	}
	reflectedCandidate := fullTrade(99, 2*mean-200, 1.0, "Technology")

	reflectedReport := Analyze(reflectedCandidate, reflectedHistory)
	reflectedZ := reflectedReport.PositionSizeMetrics.ZScore

	if math.Abs(originalZ+reflectedZ) > 1e-6 {
		t.Errorf("expected z-scores to negate under reflection: original=%.6f reflected=%.6f", originalZ, reflectedZ)
	}
	if math.Abs(math.Abs(originalZ)-math.Abs(reflectedZ)) > 1e-6 {
		t.Errorf("expected |z| preserved under reflection: original=%.6f reflected=%.6f", originalZ, reflectedZ)
	}
}

func TestEvaluateAttribute_ZeroStdDevSkipsAnomalyTest(t *testing.T) {
	samples := []float64{5000, 5000, 5000}
	anomaly, metrics := evaluateAttribute(AnomalyPositionSize, 999999, samples)
	if anomaly != nil {
		t.Errorf("expected no anomaly when std=0, got %+v", anomaly)
	}
	if metrics == nil || metrics.Std != 0 {
		t.Errorf("expected metrics with std=0 still recorded, got %+v", metrics)
	}
}
