// Package indicators holds the technical indicator math used by the dashboard:
// moving averages, RSI, MACD, ATR, Bollinger Bands, VWAP and naive
// support/resistance levels.
//
// Every function is pure and lenient. Short or empty input never produces an
// error; it produces a neutral default instead (RSI 50, EMA equal to the last
// price, ATR 0, ...) so that callers which do not validate input length keep
// rendering.
package indicators

// Default periods used when building an IndicatorSet.
const (
	DefaultRSIPeriod       = 14
	DefaultATRPeriod       = 14
	DefaultBollingerPeriod = 20
	DefaultBollingerMult   = 2.0
	DefaultMACDFast        = 12
	DefaultMACDSlow        = 26
	DefaultMACDSignal      = 9
	DefaultLevelCount      = 3

	neutralRSI = 50.0
)
