package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/ports"
)

func TestParseLLMAnalysis(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		bias       domain.Signal
		confidence float64
	}{
		{
			name:       "plain object",
			raw:        `{"bias":"bearish","confidence":0.3,"summary":"Down."}`,
			bias:       domain.SignalBearish,
			confidence: 0.3,
		},
		{
			name:       "code fence",
			raw:        "```json\n{\"bias\":\"long\",\"confidence\":0.8,\"summary\":\"Up.\"}\n```",
			bias:       domain.SignalBullish,
			confidence: 0.8,
		},
		{
			name:       "prose around object",
			raw:        "Here is my analysis: {\"bias\":\"sideways\",\"confidence\":0.5,\"summary\":\"Flat.\"} Hope it helps.",
			bias:       domain.SignalNeutral,
			confidence: 0.5,
		},
		{
			name:       "percentage confidence",
			raw:        `{"bias":"bullish","confidence":85,"summary":"Up."}`,
			bias:       domain.SignalBullish,
			confidence: 0.85,
		},
		{
			name:       "confidence clamped high",
			raw:        `{"bias":"bullish","confidence":250,"summary":"Up."}`,
			bias:       domain.SignalBullish,
			confidence: 1,
		},
		{
			name:       "fraction slightly above one",
			raw:        `{"bias":"bullish","confidence":1.5,"summary":"Up."}`,
			bias:       domain.SignalBullish,
			confidence: 1,
		},
		{
			name:       "full percentage",
			raw:        `{"bias":"bullish","confidence":100,"summary":"Up."}`,
			bias:       domain.SignalBullish,
			confidence: 1,
		},
		{
			name:       "negative confidence",
			raw:        `{"bias":"bearish","confidence":-2,"summary":"Down."}`,
			bias:       domain.SignalBearish,
			confidence: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseLLMAnalysis(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.bias, a.Bias)
			assert.InDelta(t, tt.confidence, a.Confidence, 1e-9)
			assert.Equal(t, domain.SourceLLM, a.Source)
		})
	}
}

func TestParseLLMAnalysis_LevelsAndRisks(t *testing.T) {
	raw := `{"bias":"bullish","confidence":0.6,"summary":"  Up.  ","key_levels":{"support":[100,-1,0],"resistance":[120]},"risks":["", " macro ", "leverage"]}`
	a, err := ParseLLMAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Up.", a.Summary)
	assert.Equal(t, []float64{100}, a.KeyLevels.Support)
	assert.Equal(t, []float64{120}, a.KeyLevels.Resistance)
	assert.Equal(t, []string{"macro", "leverage"}, a.Risks)
}

func TestParseLLMAnalysis_Errors(t *testing.T) {
	for _, raw := range []string{
		"",
		"no json here",
		"{not valid json}",
		`{"bias":"bullish","confidence":0.9}`,
		`{"bias":"bullish","summary":"   "}`,
	} {
		_, err := ParseLLMAnalysis(raw)
		assert.ErrorIs(t, err, ports.ErrLLMResponse, raw)
	}
}
