// Package feed retrieves candle history from the venue and normalizes it
// into an ordered market.Series.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/metrics"
	"github.com/rustyeddy/tradebot/xapi"
)

// ErrNotConnected means the session gate could not be passed; the cycle is
// skipped, not fatal.
var ErrNotConnected = errors.New("feed: not connected")

// CandleSource is the slice of the venue session the feed needs.
type CandleSource interface {
	EnsureConnected(ctx context.Context) error
	GetChartLast(ctx context.Context, symbol string, period int, start time.Time) (xapi.ChartData, error)
}

// Feed fetches and normalizes candles. Price scales come from configuration:
// some instruments report integer-scaled prices that need dividing by a
// fixed factor to obtain decimal price.
type Feed struct {
	src    CandleSource
	scales map[string]float64
	log    zerolog.Logger
	now    func() time.Time
}

func New(src CandleSource, scales map[string]float64, log zerolog.Logger) *Feed {
	return &Feed{src: src, scales: scales, log: log, now: time.Now}
}

func (f *Feed) scaleFor(symbol string) float64 {
	if s, ok := f.scales[symbol]; ok && s > 0 {
		return s
	}
	return market.Lookup(symbol).PriceScale
}

// FetchRecent requests a window ending now and spanning
// lookback*periodMinutes back, sorted ascending and deduplicated by open
// time. A series shorter than the evaluator's minimum is returned as-is;
// callers check length.
func (f *Feed) FetchRecent(ctx context.Context, symbol string, periodMinutes, lookback int) (market.Series, error) {
	if err := f.src.EnsureConnected(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	window := time.Duration(lookback*periodMinutes) * time.Minute
	start := f.now().Add(-window)

	data, err := f.src.GetChartLast(ctx, symbol, periodMinutes, start)
	if err != nil {
		return nil, fmt.Errorf("fetch candles %s: %w", symbol, err)
	}

	scale := f.scaleFor(symbol)
	candles := make([]market.Candle, 0, len(data.RateInfos))
	for _, ri := range data.RateInfos {
		candles = append(candles, market.Candle{
			Time:   time.UnixMilli(ri.Ctm).UTC(),
			Open:   ri.Open / scale,
			High:   ri.High / scale,
			Low:    ri.Low / scale,
			Close:  ri.Close / scale,
			Volume: ri.Vol,
		})
	}

	series := market.NewSeries(candles)
	metrics.CandlesFetched.WithLabelValues(symbol).Add(float64(series.Len()))
	f.log.Debug().Str("symbol", symbol).Int("bars", series.Len()).Msg("candles fetched")
	return series, nil
}
