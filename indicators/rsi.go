package indicators

import (
	"fmt"

	"github.com/rustyeddy/tradebot/market"
)

// RSI calculates the Relative Strength Index over the trailing period using
// simple (not Wilder-smoothed) means of gains and losses.
//
// When the mean loss over the window is zero the RSI is defined as 100
// (maximal, no downward pressure) rather than propagating a division error.
func RSI(candles market.Series, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(candles) < period+1 {
		return 0, fmt.Errorf("not enough candles: need %d, got %d", period+1, len(candles))
	}

	return rsiAt(candles.Closes(), len(candles)-1, period), nil
}

// rsiAt computes the RSI for index i of closes. During warm-up (fewer than
// period deltas available) it averages over however many deltas exist; with
// no delta at all (i == 0) there are no losses, so the value is 100.
func rsiAt(closes []float64, i, period int) float64 {
	n := i
	if n > period {
		n = period
	}
	if n == 0 {
		return 100
	}

	var gain, loss float64
	for k := i - n + 1; k <= i; k++ {
		delta := closes[k] - closes[k-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}

	meanGain := gain / float64(n)
	meanLoss := loss / float64(n)
	if meanLoss == 0 {
		return 100
	}

	rs := meanGain / meanLoss
	return 100 - 100/(1+rs)
}
