package indicators

// CalculateRSI returns the latest Relative Strength Index using Wilder's smoothing.
//
// A series with no more than period values yields the neutral 50. When the
// smoothed average loss is exactly zero the RSI is 100.
func CalculateRSI(series []float64, period int) float64 {
	rsi := CalculateRSISeries(series, period)
	if len(rsi) == 0 {
		return neutralRSI
	}
	return rsi[len(rsi)-1]
}

// CalculateRSISeries returns RSI values starting at input index period.
// It returns nil when there is not enough data.
func CalculateRSISeries(series []float64, period int) []float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(series) <= period {
		return nil
	}

	p := float64(period)
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := series[i] - series[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= p
	avgLoss /= p

	out := make([]float64, 0, len(series)-period)
	out = append(out, rsiFromAverages(avgGain, avgLoss))

	for i := period + 1; i < len(series); i++ {
		change := series[i] - series[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out = append(out, rsiFromAverages(avgGain, avgLoss))
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))

	// Ensure RSI is within bounds
	if rsi > 100 {
		rsi = 100
	} else if rsi < 0 {
		rsi = 0
	}
	return rsi
}
