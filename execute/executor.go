// Package execute places risk-managed bracket orders. It is the only
// component permitted to contact the venue's trade endpoint, and must never
// run concurrently for the same symbol (the engine's bot lock guarantees
// this).
package execute

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/metrics"
	"github.com/rustyeddy/tradebot/pkg/id"
	"github.com/rustyeddy/tradebot/position"
	"github.com/rustyeddy/tradebot/risk"
	"github.com/rustyeddy/tradebot/signal"
	"github.com/rustyeddy/tradebot/xapi"
)

var (
	// ErrBlocked means a precondition failed (position already open, or no
	// session); the venue was not contacted.
	ErrBlocked = errors.New("execute: blocked")

	// ErrNoQuote means the venue reported a non-positive ask or bid.
	ErrNoQuote = errors.New("execute: no tradable quote")
)

// RejectedError is a venue-side order rejection: final for this signal,
// never retried.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("execute: order rejected: %s", e.Reason)
}

// Venue is the slice of the session the executor needs.
type Venue interface {
	EnsureConnected(ctx context.Context) error
	GetSymbol(ctx context.Context, symbol string) (xapi.SymbolInfo, error)
	GetMarginLevel(ctx context.Context) (xapi.MarginLevel, error)
	TradeTransaction(ctx context.Context, info xapi.TradeTransInfo) (int64, error)
}

// Tracker is the precondition gate: Submit refuses to run unless a fresh
// reconciliation shows FLAT.
type Tracker interface {
	Refresh(ctx context.Context) (bool, error)
}

const (
	submitAttempts = 3
	retryDelay     = 2 * time.Second
)

// Executor turns a signal into a bracketed market order.
type Executor struct {
	venue   Venue
	tracker Tracker
	policy  risk.Policy
	symbol  string
	meta    market.InstrumentMeta
	log     zerolog.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

func New(venue Venue, tracker Tracker, policy risk.Policy, symbol string, log zerolog.Logger) *Executor {
	return &Executor{
		venue:   venue,
		tracker: tracker,
		policy:  policy,
		symbol:  symbol,
		meta:    market.Lookup(symbol),
		log:     log,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Submit places an order for the given signal. The series backs the
// volatility-scaled level rule; it may be nil when the fixed rule is
// configured. On acceptance the returned Position is a candidate the tracker
// must confirm via reconciliation before it is authoritative.
func (e *Executor) Submit(ctx context.Context, sig signal.Signal, series market.Series) (position.Position, error) {
	if sig != signal.Buy && sig != signal.Sell {
		return position.Position{}, fmt.Errorf("%w: no actionable signal", ErrBlocked)
	}

	open, err := e.tracker.Refresh(ctx)
	if err != nil {
		return position.Position{}, fmt.Errorf("%w: %v", ErrBlocked, err)
	}
	if open {
		return position.Position{}, fmt.Errorf("%w: position already open for %s", ErrBlocked, e.symbol)
	}

	if err := e.venue.EnsureConnected(ctx); err != nil {
		return position.Position{}, fmt.Errorf("%w: %v", ErrBlocked, err)
	}

	info, err := e.venue.GetSymbol(ctx, e.symbol)
	if err != nil {
		return position.Position{}, fmt.Errorf("quote %s: %w", e.symbol, err)
	}
	quote := market.Quote{
		Symbol:    info.Symbol,
		Ask:       info.Ask,
		Bid:       info.Bid,
		LotMin:    info.LotMin,
		LotStep:   info.LotStep,
		Precision: info.Precision,
		SpreadRaw: info.SpreadRaw,
		Time:      e.now().UTC(),
	}
	if quote.Ask <= 0 || quote.Bid <= 0 {
		return position.Position{}, fmt.Errorf("%w: ask=%v bid=%v", ErrNoQuote, quote.Ask, quote.Bid)
	}

	dir, cmd, side := 1, xapi.CmdBuy, position.Long
	entry := quote.Ask
	if sig == signal.Sell {
		dir, cmd, side = -1, xapi.CmdSell, position.Short
		entry = quote.Bid
	}

	precision := quote.Precision
	if precision <= 0 {
		precision = e.meta.Precision
	}
	pip := e.meta.PipSize()
	if info.PipsPrecision > 0 {
		pip = math.Pow10(-info.PipsPrecision)
	}
	levels, err := e.policy.Levels(dir, entry, pip, quote.Spread(), precision, series)
	if err != nil {
		return position.Position{}, fmt.Errorf("levels %s: %w", e.symbol, err)
	}

	volume := e.sizeVolume(ctx, levels.StopDistance(), info)

	order, err := e.submitWithRetry(ctx, xapi.TradeTransInfo{
		Cmd:           cmd,
		Symbol:        e.symbol,
		Volume:        volume,
		Type:          xapi.OrderOpen,
		Price:         levels.Entry,
		SL:            levels.Stop,
		TP:            levels.Target,
		CustomComment: id.New(),
	})
	if err != nil {
		return position.Position{}, err
	}

	metrics.OrdersTotal.WithLabelValues(e.symbol, string(sig)).Inc()
	e.log.Info().
		Str("symbol", e.symbol).
		Str("side", string(sig)).
		Int64("order", order).
		Float64("entry", levels.Entry).
		Float64("sl", levels.Stop).
		Float64("tp", levels.Target).
		Float64("volume", volume).
		Msg("order accepted")

	return position.Position{
		OrderID:     order,
		Symbol:      e.symbol,
		Side:        side,
		EntryPrice:  levels.Entry,
		StopPrice:   levels.Stop,
		TargetPrice: levels.Target,
		Volume:      volume,
		OpenedAt:    e.now().UTC(),
	}, nil
}

// sizeVolume applies the risk-percent formula against the live balance,
// falling back to the configured minimum when the equity lookup fails.
func (e *Executor) sizeVolume(ctx context.Context, stopDistance float64, info xapi.SymbolInfo) float64 {
	minVol := e.policy.MinVolume
	if info.LotMin > minVol {
		minVol = info.LotMin
	}

	ml, err := e.venue.GetMarginLevel(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("equity lookup failed, using minimum volume")
		return minVol
	}

	v := risk.Volume(ml.Balance, e.policy.RiskPct, stopDistance, minVol)
	return risk.SnapToStep(v, info.LotMin, info.LotStep)
}

// submitWithRetry retries transport-level failures a bounded number of
// times. A venue rejection is final: no retry, surfaced as RejectedError.
func (e *Executor) submitWithRetry(ctx context.Context, info xapi.TradeTransInfo) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= submitAttempts; attempt++ {
		order, err := e.venue.TradeTransaction(ctx, info)
		if err == nil {
			return order, nil
		}

		var apiErr *xapi.APIError
		if errors.As(err, &apiErr) {
			return 0, &RejectedError{Reason: apiErr.Descr}
		}

		lastErr = err
		e.log.Warn().Err(err).Int("attempt", attempt).Msg("order submit transport failure")
		if attempt < submitAttempts {
			e.sleep(retryDelay)
		}
	}
	return 0, fmt.Errorf("submit order: %w", lastErr)
}
