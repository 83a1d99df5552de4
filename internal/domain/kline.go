package domain

import "time"

// Kline represents a single candlestick data point.
type Kline struct {
	OpenTime  time.Time `json:"open_time"`  // Start time of the interval
	CloseTime time.Time `json:"close_time"` // End time of the interval
	Symbol    string    `json:"symbol"`     // Trading symbol
	Interval  string    `json:"interval"`   // Kline interval (e.g., "1m", "1h")
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	IsFinal   bool      `json:"is_final"` // Whether this kline is the final one for the interval
}

// Closes extracts the closing prices of the klines in order.
func Closes(klines []*Kline) []float64 {
	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}
	return closes
}
