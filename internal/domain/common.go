package domain

import "strings"

// Signal is the directional read of a set of indicators.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

// ParseSignal normalises free text (e.g. an LLM answer) into a Signal.
// Anything unrecognised is neutral.
func ParseSignal(s string) Signal {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bullish", "bull", "long", "buy":
		return SignalBullish
	case "bearish", "bear", "short", "sell":
		return SignalBearish
	default:
		return SignalNeutral
	}
}

// AnalysisSource indicates who produced an analysis.
type AnalysisSource string

const (
	SourceLLM      AnalysisSource = "llm"
	SourceFallback AnalysisSource = "fallback"
)
