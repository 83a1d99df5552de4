package domain

import "time"

// KeyLevels are the price levels an analysis calls out.
type KeyLevels struct {
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
}

// Analysis is a textual/JSON trading commentary for a symbol.
type Analysis struct {
	ID         int64          `json:"id"`
	Symbol     string         `json:"symbol"`
	Interval   string         `json:"interval"`
	Bias       Signal         `json:"bias"`
	Confidence float64        `json:"confidence"` // 0..1
	Summary    string         `json:"summary"`
	KeyLevels  KeyLevels      `json:"key_levels"`
	Risks      []string       `json:"risks"`
	Source     AnalysisSource `json:"source"`
	Indicators IndicatorSet   `json:"indicators"`
	CreatedAt  time.Time      `json:"created_at"`
}
