package domain

import "time"

// MACD holds the latest MACD line, signal line and histogram values.
type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"hist"`
}

// Bollinger holds the latest Bollinger Bands.
type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"mid"`
	Lower  float64 `json:"lower"`
}

// IndicatorSet is the record of indicator values derived from a kline slice.
// It is recomputed on demand and only ever cached for a short freshness window.
type IndicatorSet struct {
	Symbol     string    `json:"symbol"`
	Interval   string    `json:"interval"`
	Price      float64   `json:"price"` // Close of the latest kline
	EMA20      float64   `json:"ema20"`
	EMA50      float64   `json:"ema50"`
	RSI14      float64   `json:"rsi14"`
	MACD       MACD      `json:"macd"`
	ATR14      float64   `json:"atr14"`
	Bollinger  Bollinger `json:"bollinger"`
	VWAP       float64   `json:"vwap"`
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
	Candles    int       `json:"candles"` // Number of klines the set was computed from
	ComputedAt time.Time `json:"computed_at"`
}
