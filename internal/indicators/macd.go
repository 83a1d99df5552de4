package indicators

import "tradingDashboard/internal/domain"

// CalculateMACD returns MACD(12, 26, 9) for the series.
//
// The signal line is the 9-period EMA of the MACD line series (not a smoothing
// of the latest value only), and the histogram is line minus signal.
func CalculateMACD(series []float64) domain.MACD {
	return CalculateMACDWith(series, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
}

// CalculateMACDWith is CalculateMACD with explicit periods.
func CalculateMACDWith(series []float64, fast, slow, signal int) domain.MACD {
	line := CalculateMACDLine(series, fast, slow)
	if len(line) == 0 {
		return domain.MACD{}
	}
	last := line[len(line)-1]
	sig := CalculateEMA(line, signal)
	return domain.MACD{
		Line:      last,
		Signal:    sig,
		Histogram: last - sig,
	}
}

// CalculateMACDLine returns the MACD line series, EMA(fast) - EMA(slow),
// aligned on the input tail. Its first element corresponds to input index slow-1.
// Input shorter than slow yields a single element built from the lenient scalar EMAs.
func CalculateMACDLine(series []float64, fast, slow int) []float64 {
	if len(series) == 0 {
		return nil
	}
	if fast > slow {
		fast, slow = slow, fast
	}
	if len(series) < slow {
		return []float64{CalculateEMA(series, fast) - CalculateEMA(series, slow)}
	}

	fastEMA := CalculateEMASeries(series, fast)
	slowEMA := CalculateEMASeries(series, slow)
	offset := len(fastEMA) - len(slowEMA)

	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}
	return line
}
