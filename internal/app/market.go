package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"tradingDashboard/internal/cache"
	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/indicators"
	"tradingDashboard/internal/metrics"
	"tradingDashboard/internal/ports"
)

const (
	// DefaultKlineLimit is the number of candles indicators are computed from.
	DefaultKlineLimit = 200
	maxKlineLimit     = 1000
)

var (
	symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-^=]{1,20}$`)

	supportedIntervals = map[string]struct{}{
		"1m": {}, "3m": {}, "5m": {}, "15m": {}, "30m": {},
		"1h": {}, "2h": {}, "4h": {}, "6h": {}, "12h": {},
		"1d": {}, "1w": {},
	}

	// cryptoQuotes are the quote assets that route a symbol to the crypto exchange.
	cryptoQuotes = []string{"USDT", "BUSD", "USDC", "BTC"}
)

// MarketConfig wires the market data service.
type MarketConfig struct {
	Crypto       ports.MarketDataProvider // Required
	Equity       ports.MarketDataProvider // Optional; non-crypto symbols fail without it
	Cache        *cache.TTLCache[domain.IndicatorSet]
	Store        ports.IndicatorStore // Optional shared second tier
	Metrics      *metrics.Metrics     // Optional
	Logger       ports.Logger
	DefaultLimit int
}

// MarketService routes market data requests to the right provider and
// serves cache-aware indicator sets.
type MarketService struct {
	crypto       ports.MarketDataProvider
	equity       ports.MarketDataProvider
	cache        *cache.TTLCache[domain.IndicatorSet]
	store        ports.IndicatorStore
	metrics      *metrics.Metrics
	logger       ports.Logger
	defaultLimit int
	group        singleflight.Group
}

// NewMarketService creates a new market data service.
func NewMarketService(cfg MarketConfig) (*MarketService, error) {
	if cfg.Logger == nil || cfg.Crypto == nil {
		return nil, fmt.Errorf("missing required dependencies for MarketService")
	}
	c := cfg.Cache
	if c == nil {
		c = cache.New[domain.IndicatorSet](cache.DefaultTTL)
	}
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = DefaultKlineLimit
	}
	return &MarketService{
		crypto:       cfg.Crypto,
		equity:       cfg.Equity,
		cache:        c,
		store:        cfg.Store,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		defaultLimit: limit,
	}, nil
}

// NormalizeSymbol upper-cases and validates a ticker symbol.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("invalid symbol %q: %w", symbol, ports.ErrInvalidRequest)
	}
	return s, nil
}

// ValidateInterval checks interval against the supported timeframes.
func ValidateInterval(interval string) (string, error) {
	i := strings.TrimSpace(interval)
	if _, ok := supportedIntervals[i]; !ok {
		return "", fmt.Errorf("unsupported interval %q: %w", interval, ports.ErrInvalidRequest)
	}
	return i, nil
}

// route normalizes symbol and interval and picks the provider that serves
// them. Providers that list their timeframes reject the others.
func (s *MarketService) route(symbol, interval string) (string, string, ports.MarketDataProvider, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return "", "", nil, err
	}
	if interval, err = ValidateInterval(interval); err != nil {
		return "", "", nil, err
	}
	p, err := s.ProviderFor(symbol)
	if err != nil {
		return "", "", nil, err
	}
	if l, ok := p.(ports.IntervalLister); ok && !l.SupportsInterval(interval) {
		return "", "", nil, fmt.Errorf("interval %q not available from %s for %s: %w", interval, p.Name(), symbol, ports.ErrInvalidRequest)
	}
	return symbol, interval, p, nil
}

// IsCryptoSymbol reports whether symbol is an exchange pair such as BTCUSDT.
func IsCryptoSymbol(symbol string) bool {
	s := strings.ToUpper(symbol)
	for _, q := range cryptoQuotes {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return true
		}
	}
	return false
}

// ProviderFor returns the market data provider that serves symbol.
func (s *MarketService) ProviderFor(symbol string) (ports.MarketDataProvider, error) {
	if IsCryptoSymbol(symbol) {
		return s.crypto, nil
	}
	if s.equity == nil {
		return nil, fmt.Errorf("no equity provider configured for %s: %w", symbol, ports.ErrUnknownSymbol)
	}
	return s.equity, nil
}

// Streamer returns the push stream for symbol, if its provider has one.
func (s *MarketService) Streamer(symbol string) (ports.KlineStreamer, bool) {
	p, err := s.ProviderFor(symbol)
	if err != nil {
		return nil, false
	}
	st, ok := p.(ports.KlineStreamer)
	return st, ok
}

// Candles returns up to limit recent klines, oldest first. A non-positive
// limit uses the configured default.
func (s *MarketService) Candles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	symbol, interval, p, err := s.route(symbol, interval)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	start := time.Now()
	klines, err := p.GetKlines(ctx, symbol, interval, limit)
	s.metrics.ObserveUpstream(p.Name(), "GetKlines", start, err)
	if err != nil {
		return nil, err
	}
	return klines, nil
}

// Price returns the latest traded price of symbol.
func (s *MarketService) Price(ctx context.Context, symbol string) (float64, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return 0, err
	}
	p, err := s.ProviderFor(symbol)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	price, err := p.GetTickerPrice(ctx, symbol)
	s.metrics.ObserveUpstream(p.Name(), "GetTickerPrice", start, err)
	return price, err
}

// Indicators returns the IndicatorSet for symbol/interval and whether it was
// served from cache. Sets are recomputed from fresh candles on a miss and
// kept for the cache TTL; concurrent misses for one key share a computation.
func (s *MarketService) Indicators(ctx context.Context, symbol, interval string) (domain.IndicatorSet, bool, error) {
	symbol, interval, _, err := s.route(symbol, interval)
	if err != nil {
		return domain.IndicatorSet{}, false, err
	}
	key := cache.Key(symbol, interval)

	if set, ok := s.cache.Get(key); ok {
		s.cacheHit("memory")
		return set, true, nil
	}

	if s.store != nil {
		shared, err := s.store.GetIndicators(ctx, key)
		if err != nil {
			s.logger.Warn(ctx, "Shared indicator store read failed, treating as miss", map[string]interface{}{"key": key, "error": err.Error()})
		} else if shared != nil {
			// The shared copy keeps only the life it has left.
			if s.cache.SetAt(key, *shared, shared.ComputedAt) {
				s.cacheHit("redis")
				return *shared, true, nil
			}
			s.logger.Debug(ctx, "Shared indicator set is stale, recomputing", map[string]interface{}{"key": key, "computed_at": shared.ComputedAt})
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.compute(ctx, key, symbol, interval)
	})
	if err != nil {
		return domain.IndicatorSet{}, false, err
	}
	return v.(domain.IndicatorSet), false, nil
}

func (s *MarketService) compute(ctx context.Context, key, symbol, interval string) (domain.IndicatorSet, error) {
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}
	klines, err := s.Candles(ctx, symbol, interval, s.defaultLimit)
	if err != nil {
		return domain.IndicatorSet{}, err
	}
	if len(klines) == 0 {
		return domain.IndicatorSet{}, fmt.Errorf("no candles for %s %s: %w", symbol, interval, ports.ErrNotFound)
	}

	start := time.Now()
	set := indicators.Compute(klines)
	if s.metrics != nil {
		s.metrics.IndicatorCompute.Observe(time.Since(start).Seconds())
	}
	set.Symbol = symbol
	set.Interval = interval
	set.ComputedAt = s.cache.Now().UTC()

	s.cache.Set(key, set)
	if s.metrics != nil {
		s.metrics.CacheEntries.Set(float64(s.cache.Len()))
	}
	if s.store != nil {
		if err := s.store.SetIndicators(ctx, key, &set); err != nil {
			s.logger.Warn(ctx, "Shared indicator store write failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	s.logger.Debug(ctx, "Indicator set computed", map[string]interface{}{
		"symbol": symbol, "interval": interval, "candles": set.Candles, "rsi": set.RSI14,
	})
	return set, nil
}

func (s *MarketService) cacheHit(tier string) {
	if s.metrics != nil {
		s.metrics.CacheHits.WithLabelValues(tier).Inc()
	}
}

// ClearCache empties the in-memory cache and the shared store.
func (s *MarketService) ClearCache(ctx context.Context) error {
	s.cache.Clear()
	if s.metrics != nil {
		s.metrics.CacheEntries.Set(0)
	}
	if s.store != nil {
		if err := s.store.Clear(ctx); err != nil {
			return fmt.Errorf("clearing shared indicator store: %w", err)
		}
	}
	s.logger.Info(ctx, "Indicator cache cleared")
	return nil
}

// CacheLen reports the number of in-memory cache entries.
func (s *MarketService) CacheLen() int {
	return s.cache.Len()
}
