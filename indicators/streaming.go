package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/tradebot/market"
)

// Indicator is the streaming interface: feed candles one at a time and read
// the current value once enough history has accumulated.
type Indicator interface {
	Name() string
	Warmup() int
	Reset()
	Update(c market.Candle)
	Ready() bool
	Value() float64
}

// SimpleMA is a streaming simple moving average over closing prices.
type SimpleMA struct {
	period int
	closes []float64
	sum    float64
}

// NewMA creates a streaming simple moving average with the given period.
func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		closes: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("SMA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int {
	return m.period
}

func (m *SimpleMA) Reset() {
	m.closes = m.closes[:0]
	m.sum = 0
}

func (m *SimpleMA) Update(c market.Candle) {
	m.closes = append(m.closes, c.Close)
	m.sum += c.Close
	if len(m.closes) > m.period {
		m.sum -= m.closes[0]
		m.closes = m.closes[1:]
	}
}

func (m *SimpleMA) Ready() bool {
	return len(m.closes) >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.sum / float64(len(m.closes))
}

// RelativeStrength is a streaming RSI over closing prices. Gains and losses
// are simple means over the window, not smoothed.
type RelativeStrength struct {
	period    int
	deltas    []float64
	lastClose float64
	count     int
}

// NewRSI creates a streaming RSI with the given period.
func NewRSI(period int) *RelativeStrength {
	return &RelativeStrength{
		period: period,
		deltas: make([]float64, 0, period),
	}
}

func (r *RelativeStrength) Name() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

func (r *RelativeStrength) Warmup() int {
	// period deltas need period+1 closes
	return r.period + 1
}

func (r *RelativeStrength) Reset() {
	r.deltas = r.deltas[:0]
	r.lastClose = 0
	r.count = 0
}

func (r *RelativeStrength) Update(c market.Candle) {
	if r.count > 0 {
		r.deltas = append(r.deltas, c.Close-r.lastClose)
		if len(r.deltas) > r.period {
			r.deltas = r.deltas[1:]
		}
	}
	r.lastClose = c.Close
	r.count++
}

func (r *RelativeStrength) Ready() bool {
	return len(r.deltas) >= r.period
}

// Value returns the RSI over the deltas seen so far; 100 when no losses
// have occurred yet.
func (r *RelativeStrength) Value() float64 {
	if len(r.deltas) == 0 {
		return 100
	}

	var gain, loss float64
	for _, d := range r.deltas {
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	meanGain := gain / float64(len(r.deltas))
	meanLoss := loss / float64(len(r.deltas))
	if meanLoss == 0 {
		return 100
	}
	return 100 - 100/(1+meanGain/meanLoss)
}

// AverageTrueRange is a streaming ATR: a simple rolling mean of the true
// range.
type AverageTrueRange struct {
	period    int
	ranges    []float64
	lastClose float64
	count     int
}

// NewATR creates a streaming ATR with the given period.
func NewATR(period int) *AverageTrueRange {
	return &AverageTrueRange{
		period: period,
		ranges: make([]float64, 0, period),
	}
}

func (a *AverageTrueRange) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *AverageTrueRange) Warmup() int {
	return a.period + 1
}

func (a *AverageTrueRange) Reset() {
	a.ranges = a.ranges[:0]
	a.lastClose = 0
	a.count = 0
}

func (a *AverageTrueRange) Update(c market.Candle) {
	if a.count > 0 {
		tr := math.Max(c.High-c.Low,
			math.Max(math.Abs(c.High-a.lastClose), math.Abs(c.Low-a.lastClose)))
		a.ranges = append(a.ranges, tr)
		if len(a.ranges) > a.period {
			a.ranges = a.ranges[1:]
		}
	}
	a.lastClose = c.Close
	a.count++
}

func (a *AverageTrueRange) Ready() bool {
	return len(a.ranges) >= a.period
}

func (a *AverageTrueRange) Value() float64 {
	if !a.Ready() {
		return 0
	}
	sum := 0.0
	for _, tr := range a.ranges {
		sum += tr
	}
	return sum / float64(len(a.ranges))
}
