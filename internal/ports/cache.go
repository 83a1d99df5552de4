package ports

import (
	"context"

	"tradingDashboard/internal/domain"
)

// IndicatorStore is a shared (cross-process) store for computed indicator sets.
// Implementations expire entries on their own; a miss is reported as (nil, nil).
type IndicatorStore interface {
	GetIndicators(ctx context.Context, key string) (*domain.IndicatorSet, error)
	SetIndicators(ctx context.Context, key string, set *domain.IndicatorSet) error
	Clear(ctx context.Context) error
}
