package market

import "time"

// Quote is the current tradable price and instrument constraints, as reported
// by the venue's getSymbol call.
type Quote struct {
	Symbol    string
	Ask       float64
	Bid       float64
	LotMin    float64
	LotStep   float64
	Precision int // decimal places for prices
	SpreadRaw float64
	Time      time.Time
}

func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// Spread prefers the venue-reported raw spread, falling back to ask-bid when
// the venue omits it.
func (q Quote) Spread() float64 {
	if q.SpreadRaw > 0 {
		return q.SpreadRaw
	}
	return q.Ask - q.Bid
}
