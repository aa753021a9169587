// Package coach implements the coaching orchestrator (C5): it binds a
// trade request to the bar-series, timing, and behavioral components
// and persists the result through the store, in the single linear
// pipeline shape the spec's concurrency model describes. Request
// validation stops at the first invalid field and reports only that one.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/coachgo/tradecoach/internal/bars"
	"github.com/coachgo/tradecoach/internal/behavior"
	"github.com/coachgo/tradecoach/internal/errs"
	"github.com/coachgo/tradecoach/internal/marketdata"
	"github.com/coachgo/tradecoach/internal/store"
	"github.com/coachgo/tradecoach/internal/timing"
)

// historySampleLimit bounds the behavioral comparison set fetched per
// request; the spec leaves ordering and size unspecified beyond "all
// eligible trades", so this is a generous practical ceiling.
const historySampleLimit = 10000

// Request is the coaching orchestrator's single input: an executed (or
// hypothetical) trade plus the knobs that control data sourcing and
// persistence.
type Request struct {
	Symbol       string
	EntryPrice   float64
	EntryDate    time.Time
	Horizon      int
	PositionSize *float64
	StockBeta    *float64
	Sector       string
	Source       string // "mock" or "live"
	Save         bool
}

// Report is the combined coaching result returned to callers.
type Report struct {
	TradeID           int64
	Trade             Request
	Timing            timing.Report
	Behavioral        behavior.Report
	Bars              bars.Series
	PersistedAnalysis bool
}

// Coach is the orchestrator. Store and Sources are injected at
// construction so tests can supply an in-memory store and the
// deterministic mock source without touching global state.
type Coach struct {
	store   store.Store
	sources map[string]marketdata.Source
}

// New builds a Coach bound to st for persistence and sources for bar
// retrieval, keyed by the name a Request.Source selects.
func New(st store.Store, sources map[string]marketdata.Source) *Coach {
	return &Coach{store: st, sources: sources}
}

// Analyze runs the full coaching pipeline: validate, fetch, time,
// gather history, analyze behavior, persist, return. It honours ctx
// cancellation at each of the four pipeline boundaries named in the
// spec's concurrency model.
func (c *Coach) Analyze(ctx context.Context, req Request) (*Report, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	req.Symbol = strings.ToUpper(req.Symbol)
	if ctx.Err() != nil {
		return nil, &errs.Cancelled{Stage: "validate"}
	}

	source, ok := c.sources[req.Source]
	if !ok {
		return nil, &errs.InvalidInput{Field: "source", Message: fmt.Sprintf("unknown source %q", req.Source)}
	}
	window, err := source.Fetch(ctx, req.Symbol, req.Horizon)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, &errs.Cancelled{Stage: "fetch"}
	}

	postEntry := window.After(req.EntryDate, req.Horizon)
	timingReport, err := timing.Analyze(req.EntryPrice, postEntry)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, &errs.Cancelled{Stage: "timing"}
	}

	candidate := toStoreTrade(req, 0)
	var tradeID int64
	if req.Save {
		trade := toStoreTrade(req, 0)
		if err := c.store.SaveTrade(ctx, &trade); err != nil {
			return nil, err
		}
		tradeID = trade.ID
		candidate.ID = trade.ID
	}

	history, err := c.store.GetTradesForBehavioralHistory(ctx, candidate.ID, historySampleLimit)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, &errs.Cancelled{Stage: "history"}
	}
	behavioralReport := behavior.Analyze(candidate, history)

	persistedAnalysis := true
	if req.Save {
		if err := c.persistAnalyses(ctx, tradeID, timingReport, behavioralReport); err != nil {
			persistedAnalysis = false
		}
	}

	return &Report{
		TradeID:           tradeID,
		Trade:             req,
		Timing:            timingReport,
		Behavioral:        behavioralReport,
		Bars:              window,
		PersistedAnalysis: persistedAnalysis,
	}, nil
}

func (c *Coach) persistAnalyses(ctx context.Context, tradeID int64, t timing.Report, b behavior.Report) error {
	timingPayload, err := json.Marshal(t)
	if err != nil {
		return &errs.Internal{Message: "marshal timing report", Cause: err}
	}
	if err := c.store.SaveAnalysis(ctx, &store.Analysis{TradeID: tradeID, Kind: store.AnalysisTiming, Payload: timingPayload}); err != nil {
		return err
	}

	behavioralPayload, err := json.Marshal(b)
	if err != nil {
		return &errs.Internal{Message: "marshal behavioral report", Cause: err}
	}
	return c.store.SaveAnalysis(ctx, &store.Analysis{TradeID: tradeID, Kind: store.AnalysisBehavioral, Payload: behavioralPayload})
}

// toStoreTrade builds the store.Trade representation of req. Behavioral
// attrs are populated only when all three are present on the request,
// per the spec's all-or-nothing eligibility rule.
func toStoreTrade(req Request, id int64) store.Trade {
	trade := store.Trade{
		ID:         id,
		Symbol:     req.Symbol,
		EntryPrice: req.EntryPrice,
		EntryDate:  req.EntryDate,
		Horizon:    req.Horizon,
	}
	if req.PositionSize != nil && req.StockBeta != nil && req.Sector != "" {
		trade.Behavioral = &store.BehavioralAttrs{
			PositionSize: *req.PositionSize,
			StockBeta:    *req.StockBeta,
			Sector:       req.Sector,
		}
	}
	return trade
}

func validate(req Request) error {
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" || len(symbol) > 10 {
		return &errs.InvalidInput{Field: "symbol", Message: "must be 1-10 printable ASCII characters"}
	}
	for _, r := range symbol {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return &errs.InvalidInput{Field: "symbol", Message: "must be printable ASCII"}
		}
	}
	if req.EntryPrice <= 0 {
		return &errs.InvalidInput{Field: "entry_price", Message: "must be positive"}
	}
	if req.EntryDate.IsZero() {
		return &errs.InvalidInput{Field: "entry_date", Message: "must be a valid date"}
	}
	if req.Horizon <= 0 {
		return &errs.InvalidInput{Field: "horizon", Message: "must be a positive number of days"}
	}
	if req.PositionSize != nil && *req.PositionSize < 0 {
		return &errs.InvalidInput{Field: "position_size", Message: "must be non-negative"}
	}
	if req.StockBeta != nil && *req.StockBeta < 0 {
		return &errs.InvalidInput{Field: "stock_beta", Message: "must be non-negative"}
	}
	if req.Source == "" {
		return &errs.InvalidInput{Field: "source", Message: "must be specified"}
	}
	return nil
}
