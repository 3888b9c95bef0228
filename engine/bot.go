// Package engine owns the strategy cycle: connect, reconcile, fetch,
// evaluate, execute. A single mutex serializes cycles so the scheduler and
// the manual HTTP trigger can never overlap.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradebot/execute"
	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/metrics"
	"github.com/rustyeddy/tradebot/position"
	"github.com/rustyeddy/tradebot/signal"
	"github.com/rustyeddy/tradebot/xapi"
)

// Venue is the slice of the session the engine itself needs. Candle
// retrieval and order placement go through the feed and executor instead.
type Venue interface {
	EnsureConnected(ctx context.Context) error
	Connected() bool
	StreamSessionID() string
	GetMarginLevel(ctx context.Context) (xapi.MarginLevel, error)
	Disconnect()
}

// CandleFeed produces a normalized candle series for one symbol.
type CandleFeed interface {
	FetchRecent(ctx context.Context, symbol string, periodMinutes, lookback int) (market.Series, error)
}

// PositionTracker reconciles and caches the single open position.
type PositionTracker interface {
	Refresh(ctx context.Context) (bool, error)
	Current() (position.Position, bool)
	Track(p position.Position)
	Restore(p position.Position)
}

// OrderSubmitter turns an actionable signal into a venue order.
type OrderSubmitter interface {
	Submit(ctx context.Context, sig signal.Signal, series market.Series) (position.Position, error)
}

// StateStore persists the open position and equity snapshots so a restart
// resumes instead of forgetting.
type StateStore interface {
	SavePosition(p position.Position) error
	ClearPosition(symbol string) error
	LoadPosition(symbol string) (position.Position, bool, error)
	RecordEquity(t time.Time, ml xapi.MarginLevel) error
}

// Settings are the per-run strategy parameters.
type Settings struct {
	Symbol   string
	Period   int // chart period in minutes
	Lookback int
	Interval time.Duration // cycle cadence
	Frames   indicators.FrameConfig
}

const maxBackoff = 5 * time.Minute

// Snapshot is a point-in-time view of the bot for the HTTP surface.
type Snapshot struct {
	Symbol          string             `json:"symbol"`
	Connected       bool               `json:"connected"`
	StreamSessionID string             `json:"stream_session_id,omitempty"`
	Cycles          uint64             `json:"cycles"`
	LastCycle       time.Time          `json:"last_cycle"`
	LastError       string             `json:"last_error,omitempty"`
	LastSignal      signal.Signal      `json:"last_signal,omitempty"`
	LastClose       float64            `json:"last_close,omitempty"`
	LastFrame       indicators.Frame   `json:"last_frame"`
	Bars            int                `json:"bars"`
	Position        *position.Position `json:"position,omitempty"`
}

// Bot wires the session, feed, tracker and executor into one cycle loop.
type Bot struct {
	venue    Venue
	feed     CandleFeed
	tracker  PositionTracker
	executor OrderSubmitter
	eval     *signal.Evaluator
	store    StateStore // may be nil
	settings Settings
	log      zerolog.Logger

	cycleMu sync.Mutex // serializes cycles; never held while sleeping
	stateMu sync.Mutex
	state   Snapshot
}

func New(venue Venue, fd CandleFeed, tracker PositionTracker, executor OrderSubmitter,
	eval *signal.Evaluator, st StateStore, settings Settings, log zerolog.Logger) *Bot {
	if settings.Interval <= 0 {
		settings.Interval = time.Minute
	}
	return &Bot{
		venue:    venue,
		feed:     fd,
		tracker:  tracker,
		executor: executor,
		eval:     eval,
		store:    st,
		settings: settings,
		log:      log,
		state:    Snapshot{Symbol: settings.Symbol},
	}
}

// RestoreState seeds the tracker from the persisted position, if any. The
// next reconciliation confirms or clears it against the venue.
func (b *Bot) RestoreState() {
	if b.store == nil {
		return
	}
	p, ok, err := b.store.LoadPosition(b.settings.Symbol)
	if err != nil {
		b.log.Warn().Err(err).Msg("load persisted position")
		return
	}
	if ok {
		b.log.Info().Int64("order_id", p.OrderID).Str("side", string(p.Side)).
			Msg("restored persisted position")
		b.tracker.Restore(p)
	}
}

// Run executes cycles at the configured cadence until the context is
// cancelled. Cycle errors are logged and the loop continues; consecutive
// failures back off up to a cap.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info().Str("symbol", b.settings.Symbol).
		Dur("interval", b.settings.Interval).Msg("engine started")

	failures := 0
	for {
		if err := b.RunCycle(ctx); err != nil {
			failures++
			b.log.Error().Err(err).Int("failures", failures).Msg("cycle failed")
		} else {
			failures = 0
		}

		wait := b.settings.Interval
		for i := 0; i < failures && wait < maxBackoff; i++ {
			wait *= 2
		}
		if wait > maxBackoff {
			wait = maxBackoff
		}

		select {
		case <-ctx.Done():
			b.venue.Disconnect()
			b.log.Info().Msg("engine stopped")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RunCycle executes one full strategy pass. Safe to call from the scheduler
// and the manual HTTP trigger concurrently; the cycle mutex serializes them.
func (b *Bot) RunCycle(ctx context.Context) error {
	b.cycleMu.Lock()
	defer b.cycleMu.Unlock()

	metrics.CyclesTotal.Inc()
	err := b.cycle(ctx)
	b.finishCycle(err)
	return err
}

func (b *Bot) cycle(ctx context.Context) error {
	if err := b.venue.EnsureConnected(ctx); err != nil {
		return err
	}

	b.recordEquity(ctx)

	open, err := b.tracker.Refresh(ctx)
	if err != nil {
		// Reconciliation failed: treat as open and try again next cycle
		// rather than risking a duplicate order.
		b.log.Warn().Err(err).Msg("reconciliation failed, holding")
		return err
	}
	b.persistPosition(open)
	if open {
		b.log.Debug().Msg("position open, skipping evaluation")
		return nil
	}

	series, err := b.feed.FetchRecent(ctx, b.settings.Symbol, b.settings.Period, b.settings.Lookback)
	if err != nil {
		return err
	}

	frames := indicators.ComputeFrames(series, b.settings.Frames)
	sig := b.eval.Evaluate(series, frames)
	metrics.SignalsTotal.WithLabelValues(b.settings.Symbol, string(sig)).Inc()
	b.noteEvaluation(series, frames, sig)

	if sig == signal.None {
		return nil
	}

	pos, err := b.executor.Submit(ctx, sig, series)
	if err != nil {
		var rejected *execute.RejectedError
		switch {
		case errors.Is(err, execute.ErrBlocked):
			// Another check closed the window between evaluation and
			// submission. Not a cycle failure.
			b.log.Info().Err(err).Msg("order blocked")
			return nil
		case errors.As(err, &rejected):
			b.log.Warn().Str("reason", rejected.Reason).Msg("order rejected")
			return nil
		default:
			return err
		}
	}

	b.tracker.Track(pos)
	b.persistPosition(true)

	// Confirm against the venue so the cached state reflects the fill.
	if _, err := b.tracker.Refresh(ctx); err != nil {
		b.log.Warn().Err(err).Msg("post-order reconciliation failed")
	}
	return nil
}

// persistPosition mirrors the tracker's view into the state store.
func (b *Bot) persistPosition(open bool) {
	if b.store == nil {
		return
	}
	if p, ok := b.tracker.Current(); open && ok {
		if err := b.store.SavePosition(p); err != nil {
			b.log.Warn().Err(err).Msg("persist position")
		}
		return
	}
	if !open {
		if err := b.store.ClearPosition(b.settings.Symbol); err != nil {
			b.log.Warn().Err(err).Msg("clear persisted position")
		}
	}
}

func (b *Bot) recordEquity(ctx context.Context) {
	if b.store == nil {
		return
	}
	ml, err := b.venue.GetMarginLevel(ctx)
	if err != nil {
		b.log.Debug().Err(err).Msg("equity snapshot skipped")
		return
	}
	if err := b.store.RecordEquity(time.Now().UTC(), ml); err != nil {
		b.log.Warn().Err(err).Msg("record equity")
	}
}

func (b *Bot) noteEvaluation(series market.Series, frames []indicators.Frame, sig signal.Signal) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	b.state.Bars = series.Len()
	b.state.LastSignal = sig
	if series.Len() > 0 {
		b.state.LastClose = series.Last().Close
	}
	if len(frames) > 0 {
		b.state.LastFrame = frames[len(frames)-1]
	}
}

// finishCycle captures connection state under the cycle mutex so Snapshot
// never touches the session concurrently with a cycle.
func (b *Bot) finishCycle(err error) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	b.state.Cycles++
	b.state.LastCycle = time.Now().UTC()
	b.state.Connected = b.venue.Connected()
	b.state.StreamSessionID = b.venue.StreamSessionID()
	b.state.LastError = ""
	if err != nil {
		b.state.LastError = err.Error()
	}
	b.state.Position = nil
	if p, ok := b.tracker.Current(); ok {
		cp := p
		b.state.Position = &cp
	}
}

// Snapshot returns the last completed cycle's view. It never blocks on a
// running cycle.
func (b *Bot) Snapshot() Snapshot {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.state
}

// MarginLevel fetches the current account summary. Serialized with cycles
// since the underlying session is not concurrency safe.
func (b *Bot) MarginLevel(ctx context.Context) (xapi.MarginLevel, error) {
	b.cycleMu.Lock()
	defer b.cycleMu.Unlock()

	if err := b.venue.EnsureConnected(ctx); err != nil {
		return xapi.MarginLevel{}, err
	}
	return b.venue.GetMarginLevel(ctx)
}
