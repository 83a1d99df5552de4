// Package signals turns an IndicatorSet into a directional read.
package signals

import (
	"context"
	"fmt"
	"math"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/indicators"
	"tradingDashboard/internal/ports"
)

// Config holds parameters for the classifier.
type Config struct {
	RSIPeriod     int     // e.g., 14
	RSIOverbought float64 // e.g., 70.0
	RSIOversold   float64 // e.g., 30.0
	// HighVolatility is the ATR/price ratio above which a risk is reported, e.g. 0.03.
	HighVolatility float64
}

// DefaultConfig returns the thresholds the dashboard uses.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:      indicators.DefaultRSIPeriod,
		RSIOverbought:  70,
		RSIOversold:    30,
		HighVolatility: 0.03,
	}
}

// Result is the outcome of classifying one IndicatorSet.
type Result struct {
	Signal     domain.Signal
	Confidence float64 // 0..1
	Reasons    []string
	Risks      []string
}

// Classifier applies the rule set to indicator snapshots.
type Classifier struct {
	cfg    Config
	rsi    *indicators.RSI
	logger ports.Logger
}

// confirmations is the number of conditions scored on each side.
const confirmations = 7

// New creates a new Classifier instance.
func New(cfg Config, logger ports.Logger) (*Classifier, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for classifier")
	}
	if cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("rsi period must be positive")
	}
	if cfg.RSIOversold >= cfg.RSIOverbought {
		return nil, fmt.Errorf("rsi oversold threshold must be below overbought threshold")
	}
	rsi := indicators.NewRSI(indicators.RSIConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: cfg.RSIPeriod},
		Overbought:      cfg.RSIOverbought,
		Oversold:        cfg.RSIOversold,
	})
	return &Classifier{cfg: cfg, rsi: rsi, logger: logger}, nil
}

// Classify reads the trend, momentum and MACD state of set.
//
// The set is bullish when price > EMA20 > EMA50, the RSI is not overbought and
// the MACD histogram is positive; bearish is the mirror image. Confidence is
// the share of the seven conditions on the winning side that hold.
func (c *Classifier) Classify(ctx context.Context, set domain.IndicatorSet) Result {
	if set.Price <= 0 || set.Candles == 0 {
		return Result{Signal: domain.SignalNeutral, Reasons: []string{"not enough market data"}}
	}

	price := set.Price
	bull := []bool{
		price > set.EMA20,
		set.EMA20 > set.EMA50,
		!c.rsi.IsOverbought(set.RSI14),
		set.MACD.Histogram > 0,
		price > set.VWAP,
		set.RSI14 > 50,
		set.MACD.Line > 0,
	}
	bear := []bool{
		price < set.EMA20,
		set.EMA20 < set.EMA50,
		!c.rsi.IsOversold(set.RSI14),
		set.MACD.Histogram < 0,
		price < set.VWAP,
		set.RSI14 < 50,
		set.MACD.Line < 0,
	}
	bullScore, bearScore := count(bull), count(bear)

	res := Result{Signal: domain.SignalNeutral}
	switch {
	case bull[0] && bull[1] && bull[2] && bull[3]:
		res.Signal = domain.SignalBullish
		res.Confidence = float64(bullScore) / confirmations
	case bear[0] && bear[1] && bear[2] && bear[3]:
		res.Signal = domain.SignalBearish
		res.Confidence = float64(bearScore) / confirmations
	default:
		// Mixed conditions: the more balanced they are, the more confidently neutral.
		res.Confidence = 1 - math.Abs(float64(bullScore-bearScore))/confirmations
	}
	res.Confidence = math.Round(res.Confidence*100) / 100
	res.Reasons = c.reasons(set)
	res.Risks = c.risks(set)

	c.logger.Debug(ctx, "Classified indicator set", map[string]interface{}{
		"symbol":     set.Symbol,
		"signal":     res.Signal,
		"confidence": res.Confidence,
		"bullScore":  bullScore,
		"bearScore":  bearScore,
	})
	return res
}

func (c *Classifier) reasons(set domain.IndicatorSet) []string {
	var out []string
	switch {
	case set.Price > set.EMA20 && set.EMA20 > set.EMA50:
		out = append(out, "price above EMA20 above EMA50 (uptrend)")
	case set.Price < set.EMA20 && set.EMA20 < set.EMA50:
		out = append(out, "price below EMA20 below EMA50 (downtrend)")
	default:
		out = append(out, "moving averages are mixed")
	}
	switch {
	case set.MACD.Histogram > 0:
		out = append(out, "MACD histogram positive")
	case set.MACD.Histogram < 0:
		out = append(out, "MACD histogram negative")
	}
	out = append(out, fmt.Sprintf("RSI14 at %.1f", set.RSI14))
	return out
}

func (c *Classifier) risks(set domain.IndicatorSet) []string {
	var out []string
	if c.rsi.IsOverbought(set.RSI14) {
		out = append(out, "RSI overbought, pullback risk")
	}
	if c.rsi.IsOversold(set.RSI14) {
		out = append(out, "RSI oversold, capitulation risk")
	}
	if set.Price > 0 && c.cfg.HighVolatility > 0 && set.ATR14/set.Price > c.cfg.HighVolatility {
		out = append(out, fmt.Sprintf("high volatility: ATR is %.1f%% of price", set.ATR14/set.Price*100))
	}
	if set.Bollinger.Upper > 0 && set.Price > set.Bollinger.Upper {
		out = append(out, "price above upper Bollinger band")
	}
	if set.Bollinger.Lower > 0 && set.Price < set.Bollinger.Lower {
		out = append(out, "price below lower Bollinger band")
	}
	return out
}

func count(conds []bool) int {
	n := 0
	for _, ok := range conds {
		if ok {
			n++
		}
	}
	return n
}
