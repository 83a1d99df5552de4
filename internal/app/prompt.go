package app

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"tradingDashboard/internal/domain"
)

// maxPromptHeadlines caps how many news items are sent to the LLM.
const maxPromptHeadlines = 5

const systemPrompt = `You are a market analyst writing short, neutral commentary for a trading dashboard.
Use only the indicator values and headlines you are given. Do not give financial advice.
Reply with a single JSON object and nothing else:
{"bias":"bullish|bearish|neutral","confidence":0.0-1.0,"summary":"2-4 sentences","key_levels":{"support":[numbers],"resistance":[numbers]},"risks":["short phrases"]}`

// formatPrice renders a price with two decimals, or six for sub-unit prices.
func formatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	places := int32(2)
	if math.Abs(v) > 0 && math.Abs(v) < 1 {
		places = 6
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

func formatLevels(levels []float64) string {
	if len(levels) == 0 {
		return "none"
	}
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = formatPrice(l)
	}
	return strings.Join(parts, ", ")
}

// BuildPrompt renders the user message for an analysis request.
func BuildPrompt(set domain.IndicatorSet, news []*domain.NewsItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\nInterval: %s\nCandles analysed: %d\n\n", set.Symbol, set.Interval, set.Candles)

	b.WriteString("Indicators:\n")
	fmt.Fprintf(&b, "- Price: %s\n", formatPrice(set.Price))
	fmt.Fprintf(&b, "- EMA20: %s\n", formatPrice(set.EMA20))
	fmt.Fprintf(&b, "- EMA50: %s\n", formatPrice(set.EMA50))
	fmt.Fprintf(&b, "- RSI14: %s\n", decimal.NewFromFloat(set.RSI14).StringFixed(2))
	fmt.Fprintf(&b, "- MACD: line %s, signal %s, histogram %s\n",
		formatPrice(set.MACD.Line), formatPrice(set.MACD.Signal), formatPrice(set.MACD.Histogram))
	fmt.Fprintf(&b, "- ATR14: %s\n", formatPrice(set.ATR14))
	fmt.Fprintf(&b, "- Bollinger(20,2): upper %s, mid %s, lower %s\n",
		formatPrice(set.Bollinger.Upper), formatPrice(set.Bollinger.Middle), formatPrice(set.Bollinger.Lower))
	fmt.Fprintf(&b, "- VWAP: %s\n", formatPrice(set.VWAP))
	fmt.Fprintf(&b, "- Support: %s\n", formatLevels(set.Support))
	fmt.Fprintf(&b, "- Resistance: %s\n", formatLevels(set.Resistance))

	b.WriteString("\nRecent headlines:\n")
	if len(news) == 0 {
		b.WriteString("- none available\n")
	}
	for i, n := range news {
		if i == maxPromptHeadlines {
			break
		}
		if n == nil {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s, sentiment %s)\n", n.Headline, n.Source, decimal.NewFromFloat(n.Sentiment).StringFixed(2))
	}
	return b.String()
}
