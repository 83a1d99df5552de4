package indicators

// CalculateSMA returns the simple average of the last period values.
// When fewer values are available all of them are averaged; empty input yields 0.
func CalculateSMA(series []float64, period int) float64 {
	if len(series) == 0 {
		return 0
	}
	if period <= 0 || period > len(series) {
		period = len(series)
	}
	return mean(series[len(series)-period:])
}

// CalculateEMA returns the latest Exponential Moving Average value.
//
// The EMA is seeded with the simple average of the first period values and then
// blended with each following price using the multiplier 2/(period+1).
// A series shorter than period yields its last value; empty input yields 0.
func CalculateEMA(series []float64, period int) float64 {
	ema := CalculateEMASeries(series, period)
	if len(ema) == 0 {
		return 0
	}
	return ema[len(ema)-1]
}

// CalculateEMASeries returns the full EMA series. Element 0 is the SMA seed,
// which corresponds to input index period-1; the last element is the value
// CalculateEMA returns.
func CalculateEMASeries(series []float64, period int) []float64 {
	if len(series) == 0 {
		return nil
	}
	if period <= 0 {
		period = 1
	}
	if len(series) < period {
		return []float64{series[len(series)-1]}
	}

	multiplier := 2.0 / float64(period+1)
	out := make([]float64, 0, len(series)-period+1)

	ema := mean(series[:period])
	out = append(out, ema)
	for _, price := range series[period:] {
		ema = (price-ema)*multiplier + ema
		out = append(out, ema)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
