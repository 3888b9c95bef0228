// market/instruments.go
package market

import "math"

// InstrumentMeta carries the per-symbol normalization and precision quirks of
// the venue. PriceScale corrects instruments that report integer-scaled
// prices (divide raw OHLC by PriceScale to obtain decimal price); most
// symbols use 1.
type InstrumentMeta struct {
	Symbol     string
	PriceScale float64
	Precision  int // decimal places for prices
	PipLocation int
}

// PipSize returns the size of one pip in price units, e.g. EURUSD: 0.0001.
func (m InstrumentMeta) PipSize() float64 {
	return math.Pow10(m.PipLocation) // PipLocation is negative
}

var Instruments = map[string]InstrumentMeta{
	"EURUSD": {
		Symbol:      "EURUSD",
		PriceScale:  1,
		Precision:   5,
		PipLocation: -4,
	},
	"BITCOIN": {
		Symbol:      "BITCOIN",
		PriceScale:  1,
		Precision:   2,
		PipLocation: 0,
	},
	"US500": {
		Symbol:      "US500",
		PriceScale:  10000,
		Precision:   1,
		PipLocation: 0,
	},
}

// Lookup returns the instrument metadata, defaulting to an unscaled 5-digit
// FX-style instrument for symbols we have no record for.
func Lookup(symbol string) InstrumentMeta {
	if m, ok := Instruments[symbol]; ok {
		return m
	}
	return InstrumentMeta{
		Symbol:      symbol,
		PriceScale:  1,
		Precision:   5,
		PipLocation: -4,
	}
}
