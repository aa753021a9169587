// Package marketdata defines the Source abstraction the coaching
// orchestrator uses to fetch a post-entry bar window, plus a small
// name-keyed factory registry in the teacher's broker.Registry idiom
// so the orchestrator can select "mock" or "live" by string without
// importing either implementation directly.
package marketdata

import (
	"context"

	"github.com/coachgo/tradecoach/internal/bars"
)

// Source fetches a bounded daily bar window for one symbol.
type Source interface {
	// Fetch returns at most horizonDays consecutive trading-day bars
	// for symbol, ascending by date, ending on or before today. It
	// must return at least one bar or fail with a *errs.MarketDataError
	// (or a *errs.Cancelled when ctx ends while it waits).
	Fetch(ctx context.Context, symbol string, horizonDays int) (bars.Series, error)
}

// Factory builds a Source from its configuration. Registered factories
// are looked up by name in New.
type Factory func(cfg Config) (Source, error)

// Config carries the construction-time settings a Source factory may
// need. Fields are opaque to the registry; each factory reads only
// the ones it understands.
type Config struct {
	TigerID       string
	PrivateKeyPK1 string
	Account       string
}

var registry = map[string]Factory{}

// Register adds a named factory to the registry. Called from each
// implementation's package init.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New builds the named Source, or reports an unknown name.
func New(name string, cfg Config) (Source, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, &unknownSourceError{name: name}
	}
	return factory(cfg)
}

type unknownSourceError struct{ name string }

func (e *unknownSourceError) Error() string {
	return "marketdata: unknown source " + e.name
}
