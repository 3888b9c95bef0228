package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/market"
)

// Levels is a computed bracket around an entry price.
type Levels struct {
	Entry  float64
	Stop   float64
	Target float64
}

// StopDistance is the per-unit risk |entry - stop| used for sizing.
func (l Levels) StopDistance() float64 {
	return math.Abs(l.Entry - l.Stop)
}

// Levels computes the bracket for a trade in direction dir (+1 long, -1
// short) at entry. pipSize scales the fixed rule; spread enforces the
// venue's minimum viable distance: levels inside 2x spread get widened to
// it, since the venue rejects unreasonably tight brackets. Prices are
// rounded to precision decimal places.
//
// The ATR rule needs a warm series; when it cannot be computed the fixed
// rule applies instead.
func (p Policy) Levels(dir int, entry, pipSize, spread float64, precision int, series market.Series) (Levels, error) {
	if dir != 1 && dir != -1 {
		return Levels{}, fmt.Errorf("levels: direction must be +1 or -1, got %d", dir)
	}
	if entry <= 0 {
		return Levels{}, fmt.Errorf("levels: entry must be positive, got %v", entry)
	}

	stopDist := p.StopPips * pipSize
	targetDist := p.TargetPips * pipSize

	if p.Rule == RuleATR {
		if atr, err := indicators.ATR(series, p.ATRPeriod); err == nil && atr > 0 {
			stopDist = p.StopATRMult * atr
			targetDist = p.TargetATRMult * atr
		}
	}

	if floor := 2 * spread; floor > 0 {
		if stopDist < floor {
			stopDist = floor
		}
		if targetDist < floor {
			targetDist = floor
		}
	}
	if stopDist <= 0 || targetDist <= 0 {
		return Levels{}, fmt.Errorf("levels: non-positive distances (stop %v, target %v)", stopDist, targetDist)
	}

	l := Levels{
		Entry:  entry,
		Stop:   roundTo(entry-float64(dir)*stopDist, precision),
		Target: roundTo(entry+float64(dir)*targetDist, precision),
	}
	return l, nil
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
