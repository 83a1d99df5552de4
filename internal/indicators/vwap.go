package indicators

import "tradingDashboard/internal/domain"

// CalculateVWAP returns the volume-weighted average of the typical price
// (high+low+close)/3 over all given klines. With no volume it falls back to
// the last close; empty input yields 0.
func CalculateVWAP(klines []*domain.Kline) float64 {
	if len(klines) == 0 {
		return 0
	}
	var sumPV, sumV float64
	for _, k := range klines {
		typical := (k.High + k.Low + k.Close) / 3
		sumPV += typical * k.Volume
		sumV += k.Volume
	}
	if sumV == 0 {
		return klines[len(klines)-1].Close
	}
	return sumPV / sumV
}
