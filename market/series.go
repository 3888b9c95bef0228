package market

import "sort"

// Series is an ordered candle sequence, strictly increasing by open time and
// deduplicated by open time.
type Series []Candle

// NewSeries sorts candles ascending by open time and drops duplicates
// (keep-first policy, matching the venue's replay behaviour on overlapping
// windows).
func NewSeries(candles []Candle) Series {
	s := make(Series, len(candles))
	copy(s, candles)

	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Time.Before(s[j].Time)
	})

	out := s[:0]
	for i, c := range s {
		if i > 0 && c.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Last returns the most recent candle. Callers must check Len() > 0 first.
func (s Series) Last() Candle {
	return s[len(s)-1]
}

func (s Series) Len() int { return len(s) }

// Closes extracts closing prices, aligned by index with the series.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, c := range s {
		closes[i] = c.Close
	}
	return closes
}
