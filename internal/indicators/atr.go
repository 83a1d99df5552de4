package indicators

import (
	"math"

	"tradingDashboard/internal/domain"
)

// TrueRanges returns the true range of every kline after the first:
// max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRanges(klines []*domain.Kline) []float64 {
	if len(klines) < 2 {
		return nil
	}
	trs := make([]float64, 0, len(klines)-1)
	for i := 1; i < len(klines); i++ {
		high := klines[i].High
		low := klines[i].Low
		prevClose := klines[i-1].Close

		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)
		trs = append(trs, math.Max(tr1, math.Max(tr2, tr3)))
	}
	return trs
}

// CalculateATR returns the simple average of the last period true ranges.
// Fewer than two klines yield 0; fewer than period true ranges are averaged as-is.
func CalculateATR(klines []*domain.Kline, period int) float64 {
	if period <= 0 {
		period = DefaultATRPeriod
	}
	trs := TrueRanges(klines)
	if len(trs) == 0 {
		return 0
	}
	if len(trs) > period {
		trs = trs[len(trs)-period:]
	}
	return mean(trs)
}
