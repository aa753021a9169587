// Package behavior implements the behavioral anomaly detector: an
// online z-score model over a trader's own history, grounded on the
// teacher's risk.Manager.Validate shape (a pure function that
// collects a list of named violations rather than failing fast) and
// its Bessel-corrected variance computation from analytics.Analyze.
package behavior

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/coachgo/tradecoach/internal/store"
)

// AnomalyType names which numeric attribute an Anomaly was raised on.
type AnomalyType string

const (
	AnomalyPositionSize AnomalyType = "position_size"
	AnomalyStockBeta    AnomalyType = "stock_beta"
)

// zScoreThreshold is the |z| breach threshold from the spec's anomaly rule.
const zScoreThreshold = 2.0

// minHistorySamples is the minimum eligible history count below which
// z-scores are undefined and no anomaly test is attempted.
const minHistorySamples = 2

// Anomaly is a single attribute whose candidate value diverges from
// the trader's historical pattern by at least the z-score threshold.
type Anomaly struct {
	Type           AnomalyType
	Message        string
	CurrentValue   float64
	HistoricalMean float64
	ZScore         float64
}

// SectorWarning flags a candidate sector absent from the trader's
// eligible history. It never sets IsAnomaly on its own.
type SectorWarning struct {
	Message       string
	CurrentSector string
	KnownSectors  []string
}

// AttributeMetrics is the mean/std/z-score computed for one numeric
// attribute, present in Report.PositionSizeMetrics and
// Report.StockBetaMetrics whenever the minimum-sample gate has passed.
// ZScore stays 0 when Std is 0.
type AttributeMetrics struct {
	Mean   float64
	Std    float64
	ZScore float64
}

// Report is the full behavioral analysis result. A zero-value Report
// (IsAnomaly false, nil slices and metrics) is the correct answer
// whenever the sample gate or the candidate's own eligibility fails.
type Report struct {
	IsAnomaly           bool
	Anomalies           []Anomaly
	Warnings            []SectorWarning
	PositionSizeMetrics *AttributeMetrics
	StockBetaMetrics    *AttributeMetrics
}

// Analyze computes the behavioral report for candidate against
// history. It never returns an error: an ineligible candidate or an
// undersized history sample simply yields the empty report, per the
// spec's minimum-sample gate.
func Analyze(candidate store.Trade, history []store.Trade) Report {
	if candidate.Behavioral == nil {
		return Report{}
	}

	eligible := make([]store.Trade, 0, len(history))
	for _, h := range history {
		if h.Behavioral == nil {
			continue
		}
		if h.ID != 0 && h.ID == candidate.ID {
			continue
		}
		eligible = append(eligible, h)
	}
	if len(eligible) < minHistorySamples {
		return Report{}
	}

	var report Report

	positionSizes := make([]float64, len(eligible))
	stockBetas := make([]float64, len(eligible))
	for i, h := range eligible {
		positionSizes[i] = h.Behavioral.PositionSize
		stockBetas[i] = h.Behavioral.StockBeta
	}

	if anomaly, metrics := evaluateAttribute(AnomalyPositionSize, candidate.Behavioral.PositionSize, positionSizes); metrics != nil {
		report.PositionSizeMetrics = metrics
		if anomaly != nil {
			report.Anomalies = append(report.Anomalies, *anomaly)
		}
	}
	if anomaly, metrics := evaluateAttribute(AnomalyStockBeta, candidate.Behavioral.StockBeta, stockBetas); metrics != nil {
		report.StockBetaMetrics = metrics
		if anomaly != nil {
			report.Anomalies = append(report.Anomalies, *anomaly)
		}
	}

	report.IsAnomaly = len(report.Anomalies) > 0

	if warning := evaluateSectorNovelty(candidate.Behavioral.Sector, eligible); warning != nil {
		report.Warnings = append(report.Warnings, *warning)
	}

	return report
}

// evaluateAttribute computes mean/std/z-score for one attribute over
// the eligible sample and decides whether the candidate value breaches
// the anomaly threshold. metrics is nil only if samples is empty,
// which cannot happen once the sample gate has passed.
func evaluateAttribute(kind AnomalyType, candidateValue float64, samples []float64) (*Anomaly, *AttributeMetrics) {
	if len(samples) == 0 {
		return nil, nil
	}

	mean := meanOf(samples)
	std := sampleStdDev(samples, mean)

	metrics := &AttributeMetrics{Mean: mean, Std: std}
	if std == 0 {
		return nil, metrics
	}

	z := (candidateValue - mean) / std
	metrics.ZScore = z

	if math.Abs(z) < zScoreThreshold {
		return nil, metrics
	}

	direction := "larger"
	if z < 0 {
		direction = "smaller"
	}
	multiplier := 0.0
	if mean != 0 {
		multiplier = candidateValue / mean
	}

	anomaly := &Anomaly{
		Type:           kind,
		CurrentValue:   candidateValue,
		HistoricalMean: mean,
		ZScore:         z,
		Message: fmt.Sprintf("%s is %.1fx %s than usual (%.2f vs historical average %.2f)",
			kind, math.Abs(multiplier), direction, candidateValue, mean),
	}
	return anomaly, metrics
}

// evaluateSectorNovelty reports a warning when currentSector is not
// (case-insensitively) present among the eligible history's sectors.
func evaluateSectorNovelty(currentSector string, eligible []store.Trade) *SectorWarning {
	seen := make(map[string]bool)
	var known []string
	for _, h := range eligible {
		lower := strings.ToLower(h.Behavioral.Sector)
		if !seen[lower] {
			seen[lower] = true
			known = append(known, h.Behavioral.Sector)
		}
	}
	sort.Strings(known)

	if seen[strings.ToLower(currentSector)] {
		return nil
	}

	return &SectorWarning{
		Message:       fmt.Sprintf("sector %q has no precedent in your trade history", currentSector),
		CurrentSector: currentSector,
		KnownSectors:  known,
	}
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdDev is the Bessel-corrected sample standard deviation
// (divisor N-1), matching the teacher's computeSharpeRatio variance
// step. A single-element sample has an undefined correction and
// returns 0, which the sample gate (N >= 2) prevents in practice.
func sampleStdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	variance := sumSq / float64(len(xs)-1)
	return math.Sqrt(variance)
}
