// Package store persists trades and their analyses to a single local
// SQLite file, in the teacher's eve-flipper idiom: one schema_version
// table and an incremental, idempotent migrate() run on every Open.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// BehavioralAttrs carries the optional attributes a caller may supply
// alongside a trade for behavioral comparison against trading history.
// A nil *BehavioralAttrs on Trade means the caller supplied none.
type BehavioralAttrs struct {
	PositionSize float64
	StockBeta    float64
	Sector       string
}

// Trade is one logged trade candidate: a symbol, entry price and date,
// the lookahead horizon used for its timing analysis, and the optional
// behavioral attributes supplied at coaching time.
type Trade struct {
	ID          int64
	Symbol      string
	EntryPrice  float64
	EntryDate   time.Time
	Horizon     int
	Behavioral  *BehavioralAttrs
	CreatedAt   time.Time
}

// AnalysisKind distinguishes the two report shapes a trade can have
// saved against it.
type AnalysisKind string

const (
	AnalysisTiming     AnalysisKind = "timing"
	AnalysisBehavioral AnalysisKind = "behavioral"
)

// Analysis is a saved report, keyed to its trade. Payload holds the
// JSON encoding of the timing.Report or behavior.Report it came from;
// the store never interprets it, only stores and returns it verbatim.
type Analysis struct {
	ID        int64
	TradeID   int64
	Kind      AnalysisKind
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Store is the persistence boundary the coaching orchestrator depends
// on. Every method is append-only: there is no update or delete path,
// matching the ledger semantics in the spec's data model.
type Store interface {
	// SaveTrade inserts trade and populates its ID and CreatedAt.
	SaveTrade(ctx context.Context, trade *Trade) error

	// SaveAnalysis inserts an analysis row linked to an existing trade.
	SaveAnalysis(ctx context.Context, analysis *Analysis) error

	// GetTrade loads a single trade by ID.
	GetTrade(ctx context.Context, id int64) (*Trade, error)

	// GetLastNTrades returns the n most recently created trades across
	// all symbols, newest first.
	GetLastNTrades(ctx context.Context, n int) ([]Trade, error)

	// GetTradesForBehavioralHistory returns prior trades usable as the
	// comparison history for a behavioral analysis, newest first,
	// excluding the candidate trade itself (which may not yet have an
	// ID if it hasn't been saved).
	GetTradesForBehavioralHistory(ctx context.Context, excludeID int64, limit int) ([]Trade, error)

	// GetAnalyses returns every analysis saved against a trade.
	GetAnalyses(ctx context.Context, tradeID int64) ([]Analysis, error)

	// Close releases the underlying connection.
	Close() error
}
