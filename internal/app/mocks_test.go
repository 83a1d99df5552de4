package app

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockProvider struct {
	name      string
	klines    []*domain.Kline
	klinesErr error
	price     float64
	priceErr  error
	calls     atomic.Int32
	lastLimit atomic.Int32
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	m.calls.Add(1)
	m.lastLimit.Store(int32(limit))
	return m.klines, m.klinesErr
}

func (m *mockProvider) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return m.price, m.priceErr
}

type mockIntervalProvider struct {
	mockProvider
	intervals map[string]bool
}

func (m *mockIntervalProvider) SupportsInterval(interval string) bool { return m.intervals[interval] }

type mockStreamingProvider struct {
	mockProvider
}

func (m *mockStreamingProvider) StreamKlines(ctx context.Context, symbol, interval string, handler func(*domain.Kline), errHandler func(error)) (chan struct{}, chan struct{}, error) {
	return make(chan struct{}), make(chan struct{}), nil
}

type mockStore struct {
	mu      sync.Mutex
	items   map[string]*domain.IndicatorSet
	getErr  error
	setErr  error
	cleared bool
}

func newMockStore() *mockStore {
	return &mockStore{items: make(map[string]*domain.IndicatorSet)}
}

func (m *mockStore) GetIndicators(ctx context.Context, key string) (*domain.IndicatorSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.items[key], nil
}

func (m *mockStore) SetIndicators(ctx context.Context, key string, set *domain.IndicatorSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.items[key] = set
	return nil
}

func (m *mockStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*domain.IndicatorSet)
	m.cleared = true
	return nil
}

type mockIndicatorSource struct {
	set   domain.IndicatorSet
	err   error
	calls int
}

func (m *mockIndicatorSource) Indicators(ctx context.Context, symbol, interval string) (domain.IndicatorSet, bool, error) {
	m.calls++
	s := m.set
	s.Symbol = symbol
	s.Interval = interval
	return s, false, m.err
}

type mockNews struct {
	items []*domain.NewsItem
	err   error
}

func (m *mockNews) GetNews(ctx context.Context, symbol string, limit int) ([]*domain.NewsItem, error) {
	return m.items, m.err
}

type mockLLM struct {
	response string
	err      error
	requests []ports.CompletionRequest
}

func (m *mockLLM) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	m.requests = append(m.requests, req)
	return m.response, m.err
}

type mockRepo struct {
	saved   []*domain.Analysis
	saveErr error
	nextID  int64
	findErr error
}

func (m *mockRepo) Save(ctx context.Context, a *domain.Analysis) (int64, error) {
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	m.nextID++
	cp := *a
	cp.ID = m.nextID
	m.saved = append(m.saved, &cp)
	return m.nextID, nil
}

func (m *mockRepo) FindByID(ctx context.Context, id int64) (*domain.Analysis, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, a := range m.saved {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if m.saved[i].Symbol == symbol {
			out = append(out, m.saved[i])
		}
	}
	return out, m.findErr
}

func (m *mockRepo) FindLatest(ctx context.Context, symbol, interval string) (*domain.Analysis, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Symbol == symbol && m.saved[i].Interval == interval {
			return m.saved[i], nil
		}
	}
	return nil, nil
}

func (m *mockRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	n := 0
	for _, a := range m.saved {
		if a.CreatedAt.After(since) {
			n++
		}
	}
	return n, m.findErr
}

// trendingKlines builds n hourly klines on a gentle uptrend with some noise.
func trendingKlines(n int) []*domain.Kline {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Kline, n)
	for i := range out {
		c := 100 + float64(i)*0.5 + 2*math.Sin(float64(i)/3)
		out[i] = &domain.Kline{
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			CloseTime: start.Add(time.Duration(i+1)*time.Hour - time.Millisecond),
			Symbol:    "BTCUSDT",
			Interval:  "1h",
			Open:      c - 0.3,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    10 + float64(i%5),
			IsFinal:   true,
		}
	}
	return out
}
