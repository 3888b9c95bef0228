// Package signal turns indicator frames into a trade action.
package signal

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/market"
)

// Signal is the decision for the latest bar.
type Signal string

const (
	Buy  Signal = "BUY"
	Sell Signal = "SELL"
	None Signal = "NONE"
)

// MinBars is the series length below which indicator values are not
// meaningful and Evaluate always returns None.
const MinBars = 50

// Ruleset selects the decision rule at construction time. There is no
// runtime rebinding of behaviour; pick a ruleset, build an Evaluator.
type Ruleset string

const (
	// RulesetSMARSI is the classic SMA20/50 crossover filtered by RSI(14).
	RulesetSMARSI Ruleset = "sma-rsi"

	// RulesetTrendConfirm additionally requires the fast average to agree
	// with the previous bar (rising for BUY, falling for SELL).
	RulesetTrendConfirm Ruleset = "sma-rsi-confirm"
)

// Evaluator is a stateless, deterministic classifier. No hysteresis, no
// multi-bar confirmation beyond what the ruleset specifies.
type Evaluator struct {
	rules Ruleset
}

// NewEvaluator builds an evaluator for the named ruleset.
func NewEvaluator(rules Ruleset) (*Evaluator, error) {
	switch r := Ruleset(strings.ToLower(strings.TrimSpace(string(rules)))); r {
	case RulesetSMARSI, RulesetTrendConfirm:
		return &Evaluator{rules: r}, nil
	case "":
		return &Evaluator{rules: RulesetSMARSI}, nil
	default:
		return nil, fmt.Errorf("unknown ruleset %q (supported: %s, %s)",
			rules, RulesetSMARSI, RulesetTrendConfirm)
	}
}

// Evaluate applies the ruleset to the last frame. Strict inequalities only;
// equality on any clause yields None for that clause.
func (e *Evaluator) Evaluate(series market.Series, frames []indicators.Frame) Signal {
	if len(series) < MinBars || len(frames) != len(series) {
		return None
	}

	last := frames[len(frames)-1]
	close := series.Last().Close

	buy := last.SMAFast > last.SMASlow && last.RSI < 70 && close > last.SMAFast
	sell := last.SMAFast < last.SMASlow && last.RSI > 30 && close < last.SMAFast

	if e.rules == RulesetTrendConfirm && len(frames) >= 2 {
		prev := frames[len(frames)-2]
		buy = buy && last.SMAFast > prev.SMAFast
		sell = sell && last.SMAFast < prev.SMAFast
	}

	switch {
	case buy:
		return Buy
	case sell:
		return Sell
	default:
		return None
	}
}
