package indicators

import (
	"math"

	"tradingDashboard/internal/domain"
)

// FindSupportLevels returns up to n recent swing lows: lows strictly below both
// neighbours, newest first, without duplicates. When the window has no swing
// low the lowest low is returned instead.
//
// A simple swing heuristic, not a pivot-point algorithm.
func FindSupportLevels(klines []*domain.Kline, n int) []float64 {
	return findLevels(klines, n, func(k *domain.Kline) float64 { return k.Low }, func(a, b float64) bool { return a < b })
}

// FindResistanceLevels is the mirror of FindSupportLevels over highs.
func FindResistanceLevels(klines []*domain.Kline, n int) []float64 {
	return findLevels(klines, n, func(k *domain.Kline) float64 { return k.High }, func(a, b float64) bool { return a > b })
}

func findLevels(klines []*domain.Kline, n int, value func(*domain.Kline) float64, beyond func(a, b float64) bool) []float64 {
	if len(klines) == 0 {
		return nil
	}
	if n <= 0 {
		n = DefaultLevelCount
	}

	levels := make([]float64, 0, n)
	for i := len(klines) - 2; i >= 1 && len(levels) < n; i-- {
		v := value(klines[i])
		if beyond(v, value(klines[i-1])) && beyond(v, value(klines[i+1])) && !containsLevel(levels, v) {
			levels = append(levels, v)
		}
	}
	if len(levels) > 0 {
		return levels
	}

	extreme := value(klines[0])
	for _, k := range klines[1:] {
		if v := value(k); beyond(v, extreme) {
			extreme = v
		}
	}
	return []float64{extreme}
}

func containsLevel(levels []float64, v float64) bool {
	for _, l := range levels {
		if math.Abs(l-v) < 1e-9 {
			return true
		}
	}
	return false
}
