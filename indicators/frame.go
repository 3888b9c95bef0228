package indicators

import "github.com/rustyeddy/tradebot/market"

// Frame holds the per-candle derived values consumed by the signal
// evaluator, aligned 1:1 with the candle series by index.
type Frame struct {
	SMAFast float64
	SMASlow float64
	RSI     float64
}

// FrameConfig selects the indicator windows. Zero values fall back to the
// 20/50/14 defaults.
type FrameConfig struct {
	FastPeriod int
	SlowPeriod int
	RSIPeriod  int
}

func (c FrameConfig) withDefaults() FrameConfig {
	if c.FastPeriod <= 0 {
		c.FastPeriod = 20
	}
	if c.SlowPeriod <= 0 {
		c.SlowPeriod = 50
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = 14
	}
	return c
}

// ComputeFrames computes one Frame per candle.
//
// Warm-up policy (lenient): indices with fewer than `window` prior candles
// take the candle's own close as the moving-average value, so every index has
// a defined frame and len(frames) == len(series). RSI warm-up averages over
// the deltas available so far.
func ComputeFrames(series market.Series, cfg FrameConfig) []Frame {
	cfg = cfg.withDefaults()
	closes := series.Closes()
	frames := make([]Frame, len(series))

	var fastSum, slowSum float64
	for i, c := range closes {
		fastSum += c
		if i >= cfg.FastPeriod {
			fastSum -= closes[i-cfg.FastPeriod]
		}
		slowSum += c
		if i >= cfg.SlowPeriod {
			slowSum -= closes[i-cfg.SlowPeriod]
		}

		f := Frame{SMAFast: c, SMASlow: c}
		if i >= cfg.FastPeriod-1 {
			f.SMAFast = fastSum / float64(cfg.FastPeriod)
		}
		if i >= cfg.SlowPeriod-1 {
			f.SMASlow = slowSum / float64(cfg.SlowPeriod)
		}
		f.RSI = rsiAt(closes, i, cfg.RSIPeriod)
		frames[i] = f
	}
	return frames
}
