package risk

import "math"

// Volume sizes a position so that hitting the stop loses about
// balance*riskPct: max(minVolume, round(balance*riskPct / |entry-stop|, 2)).
// A zero stop distance or unusable balance falls back to minVolume.
func Volume(balance, riskPct, stopDistance, minVolume float64) float64 {
	if balance <= 0 || riskPct <= 0 || stopDistance <= 0 {
		return minVolume
	}

	v := math.Round(balance*riskPct/stopDistance*100) / 100
	if v < minVolume {
		return minVolume
	}
	return v
}

// SnapToStep aligns a volume with the instrument's lot grid: snapped down to
// a multiple of lotStep, floored at lotMin.
func SnapToStep(v, lotMin, lotStep float64) float64 {
	if lotStep > 0 {
		v = math.Floor(v/lotStep) * lotStep
		// Counter float drift from the division, e.g. 0.30000000000000004.
		v = math.Round(v/lotStep) * lotStep
	}
	if lotMin > 0 && v < lotMin {
		return lotMin
	}
	return v
}
