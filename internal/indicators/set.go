package indicators

import (
	"time"

	"tradingDashboard/internal/domain"
)

// Compute builds the dashboard IndicatorSet from klines using the default periods.
// Empty input yields a set of neutral values.
func Compute(klines []*domain.Kline) domain.IndicatorSet {
	closes := domain.Closes(klines)

	set := domain.IndicatorSet{
		EMA20:      CalculateEMA(closes, 20),
		EMA50:      CalculateEMA(closes, 50),
		RSI14:      CalculateRSI(closes, DefaultRSIPeriod),
		MACD:       CalculateMACD(closes),
		ATR14:      CalculateATR(klines, DefaultATRPeriod),
		Bollinger:  CalculateBollingerBands(closes, DefaultBollingerPeriod, DefaultBollingerMult),
		VWAP:       CalculateVWAP(klines),
		Support:    FindSupportLevels(klines, DefaultLevelCount),
		Resistance: FindResistanceLevels(klines, DefaultLevelCount),
		Candles:    len(klines),
		ComputedAt: time.Now().UTC(),
	}
	if len(klines) > 0 {
		last := klines[len(klines)-1]
		set.Symbol = last.Symbol
		set.Interval = last.Interval
		set.Price = last.Close
	}
	return set
}
