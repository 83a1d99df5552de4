package ports

import (
	"context"

	"tradingDashboard/internal/domain"
)

// NewsProvider returns recent headlines for a symbol.
type NewsProvider interface {
	GetNews(ctx context.Context, symbol string, limit int) ([]*domain.NewsItem, error)
}
