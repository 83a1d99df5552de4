package ports

import (
	"context"

	"tradingDashboard/internal/domain"
)

// MarketDataProvider defines the read-only market data an upstream provider
// (crypto exchange, equities feed) must offer.
type MarketDataProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// GetKlines retrieves the most recent klines for the symbol, oldest first.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)

	// GetTickerPrice retrieves the last traded price for a symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)
}

// IntervalLister is implemented by providers that serve only some timeframes.
type IntervalLister interface {
	SupportsInterval(interval string) bool
}

// KlineStreamer is implemented by providers that push klines over a websocket.
type KlineStreamer interface {
	// StreamKlines starts a stream for K-line/candlestick data.
	// Returns channels to control the stream (doneCh, stopCh) or an error if connection fails.
	StreamKlines(ctx context.Context, symbol, interval string, handler func(kline *domain.Kline), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)
}

// HealthChecker is implemented by dependencies that expose a connectivity probe.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
