package app

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/ports"
)

// llmAnalysis is the JSON shape the LLM is asked to return.
type llmAnalysis struct {
	Bias       string   `json:"bias"`
	Confidence float64  `json:"confidence"`
	Summary    string   `json:"summary"`
	KeyLevels  struct {
		Support    []float64 `json:"support"`
		Resistance []float64 `json:"resistance"`
	} `json:"key_levels"`
	Risks []string `json:"risks"`
}

// ParseLLMAnalysis extracts an analysis from raw completion text. Markdown
// code fences and prose around the JSON object are ignored.
func ParseLLMAnalysis(raw string) (*domain.Analysis, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return nil, fmt.Errorf("no JSON object in completion: %w", ports.ErrLLMResponse)
	}

	var parsed llmAnalysis
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, fmt.Errorf("decoding completion: %w: %w", ports.ErrLLMResponse, err)
	}
	summary := strings.TrimSpace(parsed.Summary)
	if summary == "" {
		return nil, fmt.Errorf("completion has no summary: %w", ports.ErrLLMResponse)
	}

	risks := make([]string, 0, len(parsed.Risks))
	for _, r := range parsed.Risks {
		if r = strings.TrimSpace(r); r != "" {
			risks = append(risks, r)
		}
	}

	return &domain.Analysis{
		Bias:       domain.ParseSignal(parsed.Bias),
		Confidence: normalizeConfidence(parsed.Confidence),
		Summary:    summary,
		KeyLevels: domain.KeyLevels{
			Support:    positiveLevels(parsed.KeyLevels.Support),
			Resistance: positiveLevels(parsed.KeyLevels.Resistance),
		},
		Risks:  risks,
		Source: domain.SourceLLM,
	}, nil
}

func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// normalizeConfidence clamps c to [0,1]. Values from 2 to 100 are read as
// percentages; other values above 1 are clamped.
func normalizeConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c >= 2 && c <= 100 {
		c /= 100
	}
	return math.Min(c, 1)
}

func positiveLevels(levels []float64) []float64 {
	out := make([]float64, 0, len(levels))
	for _, l := range levels {
		if l > 0 && !math.IsInf(l, 0) {
			out = append(out, l)
		}
	}
	return out
}
