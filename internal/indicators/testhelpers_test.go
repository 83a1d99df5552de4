package indicators

import (
	"math"
	"time"

	"tradingDashboard/internal/domain"
)

const tolerance = 1e-6

// klinesFromCloses builds klines whose high/low straddle the close by spread.
func klinesFromCloses(closes []float64, spread float64) []*domain.Kline {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]*domain.Kline, len(closes))
	for i, c := range closes {
		klines[i] = &domain.Kline{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Symbol:   "TEST",
			Interval: "1h",
			Open:     c,
			High:     c + spread,
			Low:      c - spread,
			Close:    c,
			Volume:   100,
		}
	}
	return klines
}

// ohlc builds klines from explicit high/low/close triples.
func ohlc(rows ...[3]float64) []*domain.Kline {
	klines := make([]*domain.Kline, len(rows))
	for i, r := range rows {
		klines[i] = &domain.Kline{High: r[0], Low: r[1], Close: r[2], Open: r[2]}
	}
	return klines
}

// syntheticCloses is a deterministic oscillating random-walk-like series.
func syntheticCloses(n int) []float64 {
	closes := make([]float64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += math.Sin(float64(i)/3.0)*1.7 + math.Cos(float64(i)/7.0)*0.9 + float64(i%5-2)*0.3
		closes[i] = price
	}
	return closes
}
