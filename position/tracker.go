// Package position tracks whether a position is open for the traded symbol.
// The venue's open-trades list is the only authority; the cached flag is a
// cache, never a decision input without a fresh Refresh.
package position

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradebot/xapi"
)

// ErrReconcile means the open-trades query failed. The tracker then assumes
// OPEN: a false "open" merely skips a trading opportunity, a false "flat"
// could double up a position.
var ErrReconcile = errors.New("position: reconciliation failed")

// Side of an open position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Position is the tracked state for the symbol. At most one per symbol is
// permitted by policy; the venue itself does not enforce this.
type Position struct {
	OrderID     int64
	Symbol      string
	Side        Side
	EntryPrice  float64
	StopPrice   float64
	TargetPrice float64
	Volume      float64
	OpenedAt    time.Time
}

// TradeLister is the slice of the venue session the tracker needs.
type TradeLister interface {
	EnsureConnected(ctx context.Context) error
	GetTrades(ctx context.Context, openedOnly bool) ([]xapi.Trade, error)
}

// Tracker is the sole writer of position state. States: FLAT, OPEN.
type Tracker struct {
	venue  TradeLister
	symbol string
	log    zerolog.Logger

	open bool
	pos  *Position
}

func NewTracker(venue TradeLister, symbol string, log zerolog.Logger) *Tracker {
	return &Tracker{venue: venue, symbol: symbol, log: log}
}

// IsOpen reads the cached state without a network call. Callers needing
// certainty call Refresh first.
func (t *Tracker) IsOpen() bool { return t.open }

// Current returns a copy of the tracked position, if any.
func (t *Tracker) Current() (Position, bool) {
	if t.pos == nil {
		return Position{}, false
	}
	return *t.pos, true
}

// Track records the position candidate the executor reports after a fill
// acknowledgment. The next Refresh confirms it against the venue.
func (t *Tracker) Track(p Position) {
	t.pos = &p
	t.open = true
}

// Restore seeds the tracker from persisted state, e.g. after a restart. The
// first Refresh reconciles it against the venue.
func (t *Tracker) Restore(p Position) {
	t.Track(p)
}

// Refresh queries the venue for open trades on the symbol and overwrites the
// cached state with the result. Returns true when a position is open.
//
// On query failure the state is forced to OPEN and the error is wrapped in
// ErrReconcile.
func (t *Tracker) Refresh(ctx context.Context) (bool, error) {
	if err := t.venue.EnsureConnected(ctx); err != nil {
		t.open = true
		return true, fmt.Errorf("%w: %v", ErrReconcile, err)
	}

	trades, err := t.venue.GetTrades(ctx, true)
	if err != nil {
		t.open = true
		return true, fmt.Errorf("%w: %v", ErrReconcile, err)
	}

	var tracked *xapi.Trade
	var other *xapi.Trade
	for i := range trades {
		tr := &trades[i]
		if tr.Symbol != t.symbol {
			continue
		}
		if t.pos != nil && tr.Order2 == t.pos.OrderID {
			tracked = tr
			break
		}
		if other == nil {
			other = tr
		}
	}

	switch {
	case tracked != nil:
		t.open = true
	case other != nil:
		// A working trade on our symbol that we did not place (or placed
		// before a restart): adopt it so the one-position policy holds.
		adopted := fromVenueTrade(*other)
		if t.pos == nil || t.pos.OrderID != adopted.OrderID {
			t.log.Info().Int64("order", adopted.OrderID).Msg("adopting venue-side open trade")
		}
		t.pos = &adopted
		t.open = true
	default:
		if t.open {
			t.log.Info().Str("symbol", t.symbol).Msg("position closed venue-side")
		}
		t.open = false
		t.pos = nil
	}
	return t.open, nil
}

func fromVenueTrade(tr xapi.Trade) Position {
	side := Long
	if tr.Cmd == xapi.CmdSell {
		side = Short
	}
	return Position{
		OrderID:     tr.Order2,
		Symbol:      tr.Symbol,
		Side:        side,
		EntryPrice:  tr.OpenPrice,
		StopPrice:   tr.SL,
		TargetPrice: tr.TP,
		Volume:      tr.Volume,
	}
}
