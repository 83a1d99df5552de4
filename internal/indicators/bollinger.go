package indicators

import (
	"math"

	"tradingDashboard/internal/domain"
)

// CalculateBollingerBands returns mid = SMA(period) and upper/lower = mid ± mult·σ,
// where σ is the population standard deviation over the same window.
// A series shorter than period uses every available value; empty input yields zero bands.
func CalculateBollingerBands(series []float64, period int, mult float64) domain.Bollinger {
	if len(series) == 0 {
		return domain.Bollinger{}
	}
	if period <= 0 || period > len(series) {
		period = len(series)
	}
	window := series[len(series)-period:]
	mid := mean(window)

	variance := 0.0
	for _, v := range window {
		d := v - mid
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(len(window)))

	return domain.Bollinger{
		Upper:  mid + mult*stddev,
		Middle: mid,
		Lower:  mid - mult*stddev,
	}
}
