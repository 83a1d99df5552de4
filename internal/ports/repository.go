package ports

import (
	"context"
	"time"

	"tradingDashboard/internal/domain"
)

// AnalysisRepository defines the interface for storing and retrieving generated analyses.
type AnalysisRepository interface {
	// Save stores a new analysis and returns its assigned ID.
	Save(ctx context.Context, a *domain.Analysis) (int64, error)
	// FindByID retrieves an analysis by its unique ID.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id int64) (*domain.Analysis, error)
	// FindBySymbol retrieves the most recent analyses for a symbol, newest first, up to a limit.
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Analysis, error)
	// FindLatest retrieves the newest analysis for a symbol/interval pair.
	// Returns nil, nil if none exists.
	FindLatest(ctx context.Context, symbol, interval string) (*domain.Analysis, error)
	// CountSince counts the analyses created after the given time.
	CountSince(ctx context.Context, since time.Time) (int, error)
}
