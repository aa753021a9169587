// Package timing computes entry-timing efficiency: Maximum Favorable
// Excursion, Maximum Adverse Excursion, ideal entry, and a timing score
// over the post-entry slice of a bar series.
//
// Analyze is a pure function over a slice, the same shape as the
// teacher's analytics.Analyze: it never mutates its input and always
// returns a populated report, never nil.
package timing

import (
	"github.com/coachgo/tradecoach/internal/bars"
	"github.com/coachgo/tradecoach/internal/errs"
)

// Verdict tags how well the entry price captured the post-entry move.
type Verdict string

const (
	VerdictExcellent Verdict = "EXCELLENT"
	VerdictGood      Verdict = "GOOD"
	VerdictFair      Verdict = "FAIR"
	VerdictPoor      Verdict = "POOR"
	VerdictUnknown   Verdict = "UNKNOWN"
)

// Report is the full entry-timing efficiency result.
type Report struct {
	MFE                    float64
	MAE                    float64
	MFEPercent             float64
	MAEPercent             float64
	IdealEntry             float64
	EntryTimingScore       float64
	MissedProfitPotential  float64
	Verdict                Verdict
}

// Analyze computes the timing report for an entry price against the
// post-entry window of a bar series. window must already be the
// post-entry slice (strictly after entry_date, bounded by horizon) —
// see bars.Series.After.
//
// An empty window yields a report with every field at zero and verdict
// UNKNOWN (spec open question (b)). entryPrice <= 0 is a bug on the
// caller's part, not a market condition, and returns InvalidInput.
func Analyze(entryPrice float64, window bars.Series) (Report, error) {
	if entryPrice <= 0 {
		return Report{}, &errs.InvalidInput{Field: "entry_price", Message: "must be positive"}
	}

	if window.Len() == 0 {
		return Report{Verdict: VerdictUnknown}, nil
	}

	high, _ := window.MaxHigh()
	low, _ := window.MinLow()

	mfe := high - entryPrice
	mae := low - entryPrice
	mfePercent := 100 * mfe / entryPrice
	maePercent := 100 * mae / entryPrice

	idealEntry := low
	entryTimingScore := 100 * (idealEntry - entryPrice) / entryPrice

	var missed float64
	if idealEntry > 0 {
		missed = 100 * (high - idealEntry) / idealEntry
	}
	if missed < 0 {
		missed = 0
	}

	return Report{
		MFE:                   mfe,
		MAE:                   mae,
		MFEPercent:            mfePercent,
		MAEPercent:            maePercent,
		IdealEntry:            idealEntry,
		EntryTimingScore:      entryTimingScore,
		MissedProfitPotential: missed,
		Verdict:               verdictFor(entryTimingScore),
	}, nil
}

// verdictFor applies the tie-break-on-lower-bound partition:
//
//	>= 0        EXCELLENT
//	[-5, 0)     GOOD
//	[-10, -5)   FAIR
//	< -10       POOR
func verdictFor(score float64) Verdict {
	switch {
	case score >= 0:
		return VerdictExcellent
	case score >= -5:
		return VerdictGood
	case score >= -10:
		return VerdictFair
	default:
		return VerdictPoor
	}
}
