package news

import (
	"strings"
	"unicode"
)

// quoteSuffixes are stripped from exchange symbols to find the base asset.
var quoteSuffixes = []string{"USDT", "BUSD", "USDC", "USD", "BTC", "ETH", "EUR"}

var assetNames = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"BNB":  "binance coin",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"AVAX": "avalanche",
	"DOT":  "polkadot",
	"LINK": "chainlink",
}

// SearchQuery turns a trading symbol into a headline search query,
// e.g. "BTCUSDT" -> `"bitcoin" OR BTC`.
func SearchQuery(symbol string) string {
	base := strings.ToUpper(strings.TrimSpace(symbol))
	for _, q := range quoteSuffixes {
		if len(base) > len(q) && strings.HasSuffix(base, q) {
			base = strings.TrimSuffix(base, q)
			break
		}
	}
	if name, ok := assetNames[base]; ok {
		return `"` + name + `" OR ` + base
	}
	return base
}

var (
	positiveWords = map[string]struct{}{
		"surge": {}, "surges": {}, "rally": {}, "rallies": {}, "gain": {}, "gains": {}, "soar": {}, "soars": {},
		"jump": {}, "jumps": {}, "record": {}, "bullish": {}, "beat": {}, "beats": {}, "upgrade": {}, "upgraded": {},
		"approval": {}, "approved": {}, "growth": {}, "rise": {}, "rises": {}, "climb": {}, "climbs": {}, "high": {},
		"inflows": {}, "adoption": {}, "partnership": {}, "profit": {}, "strong": {},
	}
	negativeWords = map[string]struct{}{
		"plunge": {}, "plunges": {}, "crash": {}, "crashes": {}, "drop": {}, "drops": {}, "fall": {}, "falls": {},
		"slump": {}, "bearish": {}, "miss": {}, "misses": {}, "downgrade": {}, "downgraded": {}, "lawsuit": {},
		"hack": {}, "hacked": {}, "ban": {}, "bans": {}, "fraud": {}, "loss": {}, "losses": {}, "outflows": {},
		"selloff": {}, "sell-off": {}, "weak": {}, "probe": {}, "liquidations": {}, "low": {},
	}
)

// ScoreSentiment is a keyword tally in [-1, 1]: (positive - negative) / matched.
// Text with no sentiment keywords scores 0.
func ScoreSentiment(text string) float64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	var pos, neg int
	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}
