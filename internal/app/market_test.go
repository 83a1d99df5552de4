package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingDashboard/internal/cache"
	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/metrics"
	"tradingDashboard/internal/ports"
)

func newTestMarket(t *testing.T, crypto, equity ports.MarketDataProvider, store ports.IndicatorStore) (*MarketService, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	cfg := MarketConfig{
		Crypto:  crypto,
		Equity:  equity,
		Store:   store,
		Metrics: m,
		Logger:  &mockLogger{},
	}
	svc, err := NewMarketService(cfg)
	require.NoError(t, err)
	return svc, m
}

func TestNewMarketService_RequiresDependencies(t *testing.T) {
	_, err := NewMarketService(MarketConfig{Logger: &mockLogger{}})
	assert.Error(t, err)
	_, err = NewMarketService(MarketConfig{Crypto: &mockProvider{name: "binance"}})
	assert.Error(t, err)
}

func TestIsCryptoSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   bool
	}{
		{"BTCUSDT", true},
		{"ethusdt", true},
		{"ETHBTC", true},
		{"SOLUSDC", true},
		{"BNBBUSD", true},
		{"USDT", false},
		{"BTC", false},
		{"AAPL", false},
		{"^GSPC", false},
		{"EURUSD=X", false},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCryptoSymbol(tt.symbol))
		})
	}
}

func TestNormalizeSymbolAndInterval(t *testing.T) {
	s, err := NormalizeSymbol(" btcusdt ")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", s)

	for _, bad := range []string{"", "BTC USDT", "DROP;TABLE", "ABCDEFGHIJKLMNOPQRSTUVWXYZ"} {
		_, err := NormalizeSymbol(bad)
		assert.ErrorIs(t, err, ports.ErrInvalidRequest, bad)
	}

	i, err := ValidateInterval("4h")
	require.NoError(t, err)
	assert.Equal(t, "4h", i)
	_, err = ValidateInterval("7m")
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestMarketService_ProviderFor(t *testing.T) {
	crypto := &mockProvider{name: "binance"}
	equity := &mockProvider{name: "yahoo"}
	svc, _ := newTestMarket(t, crypto, equity, nil)

	p, err := svc.ProviderFor("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "binance", p.Name())

	p, err = svc.ProviderFor("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "yahoo", p.Name())

	noEquity, _ := newTestMarket(t, crypto, nil, nil)
	_, err = noEquity.ProviderFor("AAPL")
	assert.ErrorIs(t, err, ports.ErrUnknownSymbol)
}

func TestMarketService_Streamer(t *testing.T) {
	crypto := &mockStreamingProvider{mockProvider{name: "binance"}}
	equity := &mockProvider{name: "yahoo"}
	svc, _ := newTestMarket(t, crypto, equity, nil)

	_, ok := svc.Streamer("BTCUSDT")
	assert.True(t, ok)
	_, ok = svc.Streamer("AAPL")
	assert.False(t, ok)
}

func TestMarketService_CandlesLimits(t *testing.T) {
	crypto := &mockProvider{name: "binance", klines: trendingKlines(10)}
	svc, _ := newTestMarket(t, crypto, nil, nil)
	ctx := context.Background()

	_, err := svc.Candles(ctx, "BTCUSDT", "1h", 0)
	require.NoError(t, err)
	assert.EqualValues(t, DefaultKlineLimit, crypto.lastLimit.Load())

	_, err = svc.Candles(ctx, "BTCUSDT", "1h", 5000)
	require.NoError(t, err)
	assert.EqualValues(t, maxKlineLimit, crypto.lastLimit.Load())

	_, err = svc.Candles(ctx, "BTCUSDT", "2w", 10)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestMarketService_Price(t *testing.T) {
	equity := &mockProvider{name: "yahoo", price: 189.5}
	svc, m := newTestMarket(t, &mockProvider{name: "binance"}, equity, nil)

	price, err := svc.Price(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, 189.5, price)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("yahoo", "GetTickerPrice", "ok")))
}

func TestMarketService_IndicatorsCachesComputation(t *testing.T) {
	crypto := &mockProvider{name: "binance", klines: trendingKlines(120)}
	svc, m := newTestMarket(t, crypto, nil, nil)
	ctx := context.Background()

	first, hit, err := svc.Indicators(ctx, "btcusdt", "1h")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "BTCUSDT", first.Symbol)
	assert.Equal(t, "1h", first.Interval)
	assert.Equal(t, 120, first.Candles)
	assert.Greater(t, first.EMA20, 0.0)

	second, hit, err := svc.Indicators(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, crypto.calls.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("memory")))
	assert.Equal(t, 1, svc.CacheLen())

	_, hit, err = svc.Indicators(ctx, "BTCUSDT", "4h")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.EqualValues(t, 2, crypto.calls.Load())
}

func TestMarketService_IndicatorsUsesSharedStore(t *testing.T) {
	crypto := &mockProvider{name: "binance", klines: trendingKlines(60)}
	store := newMockStore()
	shared := domain.IndicatorSet{Symbol: "ETHUSDT", Interval: "1h", Price: 3000, Candles: 200, ComputedAt: time.Now().UTC()}
	store.items[cache.Key("ETHUSDT", "1h")] = &shared

	svc, m := newTestMarket(t, crypto, nil, store)
	set, hit, err := svc.Indicators(context.Background(), "ETHUSDT", "1h")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3000.0, set.Price)
	assert.EqualValues(t, 0, crypto.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("redis")))

	// Computed sets are written through to the store.
	_, _, err = svc.Indicators(context.Background(), "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.NotNil(t, store.items[cache.Key("BTCUSDT", "1h")])
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMarketService_SharedSetKeepsRemainingLife(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	key := cache.Key("ETHUSDT", "1h")

	tests := []struct {
		name    string
		age     time.Duration
		wantHit bool
	}{
		{"fresh shared set", 29 * time.Second, true},
		{"expired shared set", 30 * time.Second, false},
		{"shared set without timestamp", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crypto := &mockProvider{name: "binance", klines: trendingKlines(60)}
			store := newMockStore()
			shared := domain.IndicatorSet{Symbol: "ETHUSDT", Interval: "1h", Price: 3000}
			if tt.age > 0 {
				shared.ComputedAt = clock.Now().Add(-tt.age)
			}
			store.items[key] = &shared

			svc, err := NewMarketService(MarketConfig{
				Crypto: crypto,
				Store:  store,
				Cache:  cache.New[domain.IndicatorSet](30*time.Second, cache.WithClock[domain.IndicatorSet](clock.Now)),
				Logger: &mockLogger{},
			})
			require.NoError(t, err)

			set, hit, err := svc.Indicators(context.Background(), "ETHUSDT", "1h")
			require.NoError(t, err)
			assert.Equal(t, tt.wantHit, hit)
			if !tt.wantHit {
				assert.EqualValues(t, 1, crypto.calls.Load())
				assert.Equal(t, clock.Now(), set.ComputedAt)
			}
		})
	}

	t.Run("memory copy expires with the shared set", func(t *testing.T) {
		crypto := &mockProvider{name: "binance", klines: trendingKlines(60)}
		store := newMockStore()
		shared := domain.IndicatorSet{Symbol: "ETHUSDT", Interval: "1h", Price: 3000, ComputedAt: clock.Now().Add(-29 * time.Second)}
		store.items[key] = &shared

		svc, err := NewMarketService(MarketConfig{
			Crypto: crypto,
			Store:  store,
			Cache:  cache.New[domain.IndicatorSet](30*time.Second, cache.WithClock[domain.IndicatorSet](clock.Now)),
			Logger: &mockLogger{},
		})
		require.NoError(t, err)

		_, hit, err := svc.Indicators(context.Background(), "ETHUSDT", "1h")
		require.NoError(t, err)
		assert.True(t, hit)

		// The store still returns the old copy; it must not be served again.
		clock.Advance(2 * time.Second)
		set, hit, err := svc.Indicators(context.Background(), "ETHUSDT", "1h")
		require.NoError(t, err)
		assert.False(t, hit)
		assert.EqualValues(t, 1, crypto.calls.Load())
		assert.Equal(t, clock.Now(), set.ComputedAt)
	})
}

func TestMarketService_ProviderIntervals(t *testing.T) {
	crypto := &mockProvider{name: "binance", klines: trendingKlines(60)}
	equity := &mockIntervalProvider{
		mockProvider: mockProvider{name: "yahoo", klines: trendingKlines(60)},
		intervals:    map[string]bool{"1h": true, "1d": true},
	}
	svc, _ := newTestMarket(t, crypto, equity, nil)
	ctx := context.Background()

	for _, interval := range []string{"3m", "2h", "4h", "6h", "12h"} {
		_, err := svc.Candles(ctx, "AAPL", interval, 10)
		assert.ErrorIs(t, err, ports.ErrInvalidRequest, interval)
		_, _, err = svc.Indicators(ctx, "AAPL", interval)
		assert.ErrorIs(t, err, ports.ErrInvalidRequest, interval)
	}
	assert.EqualValues(t, 0, equity.calls.Load())

	_, err := svc.Candles(ctx, "AAPL", "1d", 10)
	require.NoError(t, err)
	_, err = svc.Candles(ctx, "BTCUSDT", "4h", 10)
	require.NoError(t, err)
}

func TestMarketService_IndicatorsStoreErrorsDegrade(t *testing.T) {
	crypto := &mockProvider{name: "binance", klines: trendingKlines(60)}
	store := newMockStore()
	store.getErr = errors.New("redis down")
	store.setErr = errors.New("redis down")
	logger := &mockLogger{}

	svc, err := NewMarketService(MarketConfig{Crypto: crypto, Store: store, Logger: logger})
	require.NoError(t, err)

	_, hit, err := svc.Indicators(context.Background(), "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, logger.warnMsgs, 2)
}

func TestMarketService_IndicatorsErrors(t *testing.T) {
	ctx := context.Background()

	empty := &mockProvider{name: "binance"}
	svc, _ := newTestMarket(t, empty, nil, nil)
	_, _, err := svc.Indicators(ctx, "BTCUSDT", "1h")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	assert.Equal(t, 0, svc.CacheLen())

	failing := &mockProvider{name: "binance", klinesErr: ports.ErrRateLimited}
	svc, m := newTestMarket(t, failing, nil, nil)
	_, _, err = svc.Indicators(ctx, "BTCUSDT", "1h")
	assert.ErrorIs(t, err, ports.ErrRateLimited)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("binance", "GetKlines", "error")))
}

func TestMarketService_ClearCache(t *testing.T) {
	crypto := &mockProvider{name: "binance", klines: trendingKlines(60)}
	store := newMockStore()
	svc, _ := newTestMarket(t, crypto, nil, store)
	ctx := context.Background()

	_, _, err := svc.Indicators(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	require.Equal(t, 1, svc.CacheLen())

	require.NoError(t, svc.ClearCache(ctx))
	assert.Equal(t, 0, svc.CacheLen())
	assert.True(t, store.cleared)

	_, hit, err := svc.Indicators(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.EqualValues(t, 2, crypto.calls.Load())
}
