// Package risk derives stop/target levels and position size from a
// configured policy. Pure computation, no venue awareness.
package risk

// LevelRule selects how stop/target distances are derived.
type LevelRule string

const (
	// RuleFixed uses fixed pip distances scaled to instrument precision.
	RuleFixed LevelRule = "fixed"
	// RuleATR scales distances from a rolling true-range average.
	RuleATR LevelRule = "atr"
)

// Policy is a configuration value object; the engine never mutates it.
type Policy struct {
	// RiskPct is the fraction of account balance risked per trade, e.g. 0.01.
	RiskPct float64

	// MinVolume floors the computed volume, in venue lots.
	MinVolume float64

	Rule LevelRule

	// Fixed-distance rule. TargetPips > StopPips keeps the expectancy skew
	// positive but is not structurally required.
	StopPips   float64
	TargetPips float64

	// ATR rule: distances as multiples of ATR(ATRPeriod).
	ATRPeriod     int
	StopATRMult   float64
	TargetATRMult float64
}

// Default is the policy the original deployment ran: 1% risk, 100/200 pip
// bracket.
func Default() Policy {
	return Policy{
		RiskPct:       0.01,
		MinVolume:     0.01,
		Rule:          RuleFixed,
		StopPips:      100,
		TargetPips:    200,
		ATRPeriod:     14,
		StopATRMult:   1.5,
		TargetATRMult: 3.0,
	}
}
