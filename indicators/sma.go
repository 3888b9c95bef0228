// Package indicators provides the technical analysis computations the
// strategy consumes. All functions are pure and deterministic.
package indicators

import (
	"fmt"

	"github.com/rustyeddy/tradebot/market"
)

// SMA calculates the Simple Moving Average of closing prices over the
// trailing period.
func SMA(candles market.Series, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(candles) < period {
		return 0, fmt.Errorf("not enough candles: need %d, got %d", period, len(candles))
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period), nil
}
