// Package live implements marketdata.Source against a brokerage
// historical-bars HTTP endpoint, in the teacher's market.DhanDataProvider
// idiom (POST request, JSON arrays, rate-limited client; the whole date
// range goes in one request, it is not split into chunks) but enriched from the rest of the corpus: a sony/gobreaker
// circuit breaker wraps each call (sawpanic-cryptorun's
// CircuitBreakerManager), and golang.org/x/time/rate paces requests
// per host instead of a hand-rolled mutex-and-sleep throttle
// (sawpanic-cryptorun's ratelimit.Limiter).
package live

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/coachgo/tradecoach/internal/bars"
	"github.com/coachgo/tradecoach/internal/errs"
	"github.com/coachgo/tradecoach/internal/marketdata"
)

func init() {
	marketdata.Register("live", func(cfg marketdata.Config) (marketdata.Source, error) {
		return New(cfg)
	})
}

const (
	defaultBaseURL  = "https://openapi.tigerfintech.com/bars/historical"
	requestsPerSec  = 5.0
	burstSize       = 5
	maxRetries      = 2
	retryBaseDelay  = 200 * time.Millisecond
)

// Source is the live HTTP-backed marketdata.Source.
type Source struct {
	cfg     marketdata.Config
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	baseURL string
}

// New builds a live Source. cfg.TigerID and cfg.PrivateKeyPK1 must be
// non-empty; they are opaque credentials consumed only here.
func New(cfg marketdata.Config) (*Source, error) {
	if cfg.TigerID == "" || cfg.PrivateKeyPK1 == "" {
		return nil, fmt.Errorf("live marketdata: TIGER_ID and PRIVATE_KEY_PK1 are required")
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "marketdata-live",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})

	return &Source{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), burstSize),
		breaker: breaker,
		baseURL: defaultBaseURL,
	}, nil
}

type historicalBarsRequest struct {
	Symbol    string `json:"symbol"`
	Account   string `json:"account"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
}

type historicalBarsResponse struct {
	Open      []float64 `json:"open"`
	High      []float64 `json:"high"`
	Low       []float64 `json:"low"`
	Close     []float64 `json:"close"`
	Volume    []int64   `json:"volume"`
	Timestamp []int64   `json:"timestamp"`
}

// Fetch retrieves up to horizonDays trading-day bars for symbol ending
// today (the most recent ones when the response holds more), retrying
// transport failures up to maxRetries times with exponential backoff,
// all guarded by the circuit breaker and limiter.
func (s *Source) Fetch(ctx context.Context, symbol string, horizonDays int) (bars.Series, error) {
	if horizonDays <= 0 {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataEmpty, Symbol: symbol, Message: "horizon must be positive"}
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -horizonDays*2) // generous calendar padding for weekends/holidays

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return bars.Series{}, &errs.Cancelled{Stage: "market_data_retry"}
			case <-time.After(retryBaseDelay * time.Duration(1<<uint(attempt-1))):
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return bars.Series{}, &errs.Cancelled{Stage: "market_data_rate_limit"}
		}

		result, err := s.breaker.Execute(func() (any, error) {
			return s.fetchOnce(ctx, symbol, from, to)
		})
		if err == nil {
			series := result.(bars.Series)
			if series.Len() > horizonDays {
				all := series.Bars()
				// A tail of a validated series is itself valid.
				series, _ = bars.NewSeries(all[len(all)-horizonDays:])
			}
			return series, nil
		}

		lastErr = err
		if marketErr, ok := err.(*errs.MarketDataError); ok && marketErr.Kind != errs.MarketDataTransport {
			return bars.Series{}, marketErr // only transport failures are retried
		}
	}

	if marketErr, ok := lastErr.(*errs.MarketDataError); ok {
		return bars.Series{}, marketErr
	}
	return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataTransport, Symbol: symbol, Message: "exhausted retries", Cause: lastErr}
}

func (s *Source) fetchOnce(ctx context.Context, symbol string, from, to time.Time) (bars.Series, error) {
	reqBody := historicalBarsRequest{
		Symbol:   symbol,
		Account:  s.cfg.Account,
		FromDate: from.Format("2006-01-02"),
		ToDate:   to.Format("2006-01-02"),
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataTransport, Symbol: symbol, Message: "marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataTransport, Symbol: symbol, Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("tiger-id", s.cfg.TigerID)
	req.Header.Set("private-key", s.cfg.PrivateKeyPK1)

	resp, err := s.client.Do(req)
	if err != nil {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataTransport, Symbol: symbol, Message: "http request", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataTransport, Symbol: symbol, Message: "read response", Cause: err}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataAuth, Symbol: symbol, Message: "authentication rejected"}
	case http.StatusNotFound:
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataNotFound, Symbol: symbol, Message: "symbol not found"}
	}
	if resp.StatusCode != http.StatusOK {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataTransport, Symbol: symbol, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var decoded historicalBarsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataTransport, Symbol: symbol, Message: "parse response", Cause: err}
	}
	if len(decoded.Timestamp) == 0 {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataEmpty, Symbol: symbol, Message: "no bars returned"}
	}

	rows := make([]bars.Bar, len(decoded.Timestamp))
	for i, ts := range decoded.Timestamp {
		t := time.Unix(ts, 0).UTC()
		rows[i] = bars.Bar{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:   decoded.Open[i],
			High:   decoded.High[i],
			Low:    decoded.Low[i],
			Close:  decoded.Close[i],
			Volume: decoded.Volume[i],
		}
	}

	series, err := bars.NewSeries(rows)
	if err != nil {
		return bars.Series{}, &errs.MarketDataError{Kind: errs.MarketDataTransport, Symbol: symbol, Message: "response failed bar validation", Cause: err}
	}
	return series, nil
}
