package indicators

import (
	"context"
	"fmt"

	"tradingDashboard/internal/domain"
)

// Indicator represents a technical indicator that can be calculated from price data
type Indicator interface {
	// Calculate computes the latest indicator value for the given klines.
	// Short input yields the indicator's neutral value, not an error.
	Calculate(ctx context.Context, klines []*domain.Kline) (float64, error)

	// RequiredDataPoints returns the number of klines needed for a non-default value
	RequiredDataPoints() int

	// Name returns the name of the indicator
	Name() string
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of klines needed for calculation
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}

func (b *BaseIndicator) validate(name string) error {
	if b.Config.Period <= 0 {
		return fmt.Errorf("%s period must be positive, got %d", name, b.Config.Period)
	}
	return nil
}
