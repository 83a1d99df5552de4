package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/metrics"
	"tradingDashboard/internal/ports"
)

type mockMarket struct {
	mu         sync.Mutex
	klines     []*domain.Kline
	klinesErr  error
	price      float64
	priceErr   error
	set        domain.IndicatorSet
	hit        bool
	setErr     error
	streamer   ports.KlineStreamer
	cleared    int
	lastLimit  int
	cacheCount int
}

func (m *mockMarket) Candles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	return m.klines, m.klinesErr
}

func (m *mockMarket) Price(ctx context.Context, symbol string) (float64, error) {
	return m.price, m.priceErr
}

func (m *mockMarket) Indicators(ctx context.Context, symbol, interval string) (domain.IndicatorSet, bool, error) {
	return m.set, m.hit, m.setErr
}

func (m *mockMarket) Streamer(symbol string) (ports.KlineStreamer, bool) {
	return m.streamer, m.streamer != nil
}

func (m *mockMarket) ClearCache(ctx context.Context) error {
	m.cleared++
	return nil
}

func (m *mockMarket) CacheLen() int { return m.cacheCount }

func (m *mockMarket) setKlines(k []*domain.Kline) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.klines = k
}

type mockAnalysis struct {
	analysis   *domain.Analysis
	err        error
	history    []*domain.Analysis
	historyErr error
	byID       map[int64]*domain.Analysis
	lastLimit  int
}

func (m *mockAnalysis) Analyze(ctx context.Context, symbol, interval string) (*domain.Analysis, error) {
	if m.err != nil {
		return nil, m.err
	}
	a := *m.analysis
	a.Symbol, a.Interval = symbol, interval
	return &a, nil
}

func (m *mockAnalysis) History(ctx context.Context, symbol string, limit int) ([]*domain.Analysis, error) {
	m.lastLimit = limit
	return m.history, m.historyErr
}

func (m *mockAnalysis) Get(ctx context.Context, id int64) (*domain.Analysis, error) {
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("analysis %d: %w", id, ports.ErrNotFound)
}

func (m *mockAnalysis) CountSince(ctx context.Context, since time.Time) (int, error) {
	return len(m.history), nil
}

type mockNews struct {
	items []*domain.NewsItem
	err   error
}

func (m *mockNews) GetNews(ctx context.Context, symbol string, limit int) ([]*domain.NewsItem, error) {
	return m.items, m.err
}

type mockStreamer struct {
	klines []*domain.Kline
}

func (m *mockStreamer) StreamKlines(ctx context.Context, symbol, interval string, handler func(*domain.Kline), errHandler func(error)) (chan struct{}, chan struct{}, error) {
	go func() {
		for _, k := range m.klines {
			handler(k)
		}
	}()
	return make(chan struct{}), make(chan struct{}), nil
}

type testEnv struct {
	srv      *Server
	market   *mockMarket
	analysis *mockAnalysis
	news     *mockNews
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T, origins ...string) *testEnv {
	t.Helper()
	env := &testEnv{
		market:   &mockMarket{},
		analysis: &mockAnalysis{analysis: &domain.Analysis{Bias: domain.SignalBullish, Confidence: 0.7, Summary: "Up.", Source: domain.SourceLLM}},
		news:     &mockNews{},
		metrics:  metrics.New(),
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	srv, err := New(Config{
		AllowedOrigins: origins,
		PollInterval:   20 * time.Millisecond,
		Market:         env.market,
		Analysis:       env.analysis,
		News:           env.news,
		Metrics:        env.metrics,
		Logger:         ports.NopLogger{},
	})
	require.NoError(t, err)
	env.srv = srv
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func sampleKline(close float64, open time.Time) *domain.Kline {
	return &domain.Kline{OpenTime: open, CloseTime: open.Add(time.Minute), Symbol: "BTCUSDT", Interval: "1m", Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{Logger: ports.NopLogger{}})
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", ports.ErrInvalidRequest), http.StatusBadRequest},
		{ports.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("GetKlines failed: %w: boom", ports.ErrUnknownSymbol), http.StatusNotFound},
		{ports.ErrRateLimited, http.StatusTooManyRequests},
		{ports.ErrTimeout, http.StatusGatewayTimeout},
		{ports.ErrFeatureDisabled, http.StatusServiceUnavailable},
		{ports.ErrCircuitOpen, http.StatusServiceUnavailable},
		{ports.ErrUpstreamUnavailable, http.StatusBadGateway},
		{ports.ErrAuthenticationFailed, http.StatusBadGateway},
		{fmt.Errorf("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.market.cacheCount = 3
	env.analysis.history = []*domain.Analysis{{ID: 1}}

	rec := env.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["cache_entries"])
	assert.EqualValues(t, 1, body["analyses_24h"])
	assert.NotEmpty(t, body["time"])
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(ctx context.Context) error { return m.err }

func TestHealth_Upstream(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]ports.HealthChecker
		wantStatus string
		want       map[string]interface{}
	}{
		{
			name:       "all reachable",
			checks:     map[string]ports.HealthChecker{"binance": mockPinger{}, "redis": mockPinger{}},
			wantStatus: "ok",
			want:       map[string]interface{}{"binance": "ok", "redis": "ok"},
		},
		{
			name: "redis down",
			checks: map[string]ports.HealthChecker{
				"binance": mockPinger{},
				"redis":   mockPinger{err: fmt.Errorf("redis ping: %w", ports.ErrConnectionFailed)},
			},
			wantStatus: "degraded",
			want:       map[string]interface{}{"binance": "ok", "redis": "redis ping: failed to connect to upstream provider"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := New(Config{
				Market:       &mockMarket{},
				Analysis:     &mockAnalysis{},
				Logger:       ports.NopLogger{},
				HealthChecks: tt.checks,
			})
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, tt.want, body["upstream"])
		})
	}
}

func TestCandles(t *testing.T) {
	env := newTestEnv(t)
	env.market.klines = []*domain.Kline{sampleKline(100, time.Unix(0, 0).UTC())}

	rec := env.do(t, http.MethodGet, "/api/candles?symbol=BTCUSDT&interval=1m&limit=50", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var klines []domain.Kline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &klines))
	require.Len(t, klines, 1)
	assert.Equal(t, 100.0, klines[0].Close)
	assert.Equal(t, 50, env.market.lastLimit)

	rec = env.do(t, http.MethodGet, "/api/candles?symbol=BTCUSDT&limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.market.klinesErr = fmt.Errorf("bad: %w", ports.ErrInvalidRequest)
	rec = env.do(t, http.MethodGet, "/api/candles?symbol=???", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestCandles_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/candles?symbol=BTCUSDT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestPrice(t *testing.T) {
	env := newTestEnv(t)
	env.market.price = 64000.5

	rec := env.do(t, http.MethodGet, "/api/price?symbol=btcusdt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"symbol":"BTCUSDT","price":64000.5}`, rec.Body.String())

	env.market.priceErr = fmt.Errorf("GetTickerPrice failed: %w", ports.ErrRateLimited)
	rec = env.do(t, http.MethodGet, "/api/price?symbol=btcusdt", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestIndicators_CacheHeader(t *testing.T) {
	env := newTestEnv(t)
	env.market.set = domain.IndicatorSet{Symbol: "BTCUSDT", Interval: "1h", RSI14: 55}

	rec := env.do(t, http.MethodGet, "/api/indicators?symbol=BTCUSDT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	env.market.hit = true
	rec = env.do(t, http.MethodGet, "/api/indicators?symbol=BTCUSDT", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	var set domain.IndicatorSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	assert.Equal(t, 55.0, set.RSI14)

	env.market.setErr = fmt.Errorf("no candles: %w", ports.ErrNotFound)
	rec = env.do(t, http.MethodGet, "/api/indicators?symbol=BTCUSDT", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNews_DegradesToEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.news.items = []*domain.NewsItem{{Headline: "BTC rallies", Source: "wire"}}

	rec := env.do(t, http.MethodGet, "/api/news?symbol=BTCUSDT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BTC rallies")

	env.news.err = ports.ErrUpstreamUnavailable
	rec = env.do(t, http.MethodGet, "/api/news?symbol=BTCUSDT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/news", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostAnalysis(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/analysis", `{"symbol":"BTCUSDT"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var a domain.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "BTCUSDT", a.Symbol)
	assert.Equal(t, "1h", a.Interval)
	assert.Equal(t, domain.SignalBullish, a.Bias)

	rec = env.do(t, http.MethodPost, "/api/analysis", `{"interval":"1h"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/analysis", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.analysis.err = fmt.Errorf("loading indicators: %w", ports.ErrUpstreamUnavailable)
	rec = env.do(t, http.MethodPost, "/api/analysis", `{"symbol":"BTCUSDT","interval":"4h"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAnalysisHistoryAndGet(t *testing.T) {
	env := newTestEnv(t)
	stored := &domain.Analysis{ID: 7, Symbol: "ETHUSDT", Summary: "stored"}
	env.analysis.history = []*domain.Analysis{stored}
	env.analysis.byID = map[int64]*domain.Analysis{7: stored}

	rec := env.do(t, http.MethodGet, "/api/analysis/history?symbol=ETHUSDT&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stored")
	assert.Equal(t, 5, env.analysis.lastLimit)

	rec = env.do(t, http.MethodGet, "/api/analysis/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":7`)

	rec = env.do(t, http.MethodGet, "/api/analysis/8", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/analysis/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.analysis.historyErr = fmt.Errorf("history: %w", ports.ErrFeatureDisabled)
	rec = env.do(t, http.MethodGet, "/api/analysis/history?symbol=ETHUSDT", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDeleteCache(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodDelete, "/api/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.market.cleared)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, "http://localhost:3000")

	rec := env.do(t, http.MethodOptions, "/api/price", "", "Origin", "http://localhost:3000")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(t, http.MethodOptions, "/api/price", "", "Origin", "http://evil.example")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/health", "", "Origin", "http://evil.example")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	wildcard := newTestEnv(t)
	rec = wildcard.do(t, http.MethodGet, "/api/health", "", "Origin", "http://anything.example")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpointAndInstrumentation(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/health", "")
	env.do(t, http.MethodGet, "/api/analysis/abc", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("GET", "/api/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("GET", "/api/analysis/:id", "400")))

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard_http_requests_total")
}

func dialWS(t *testing.T, env *testEnv, query string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(env.srv.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocket_Polling(t *testing.T) {
	env := newTestEnv(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.market.setKlines([]*domain.Kline{sampleKline(100, t0)})

	conn := dialWS(t, env, "symbol=AAPL&interval=1m")

	first := readFrame(t, conn)
	assert.Equal(t, "kline", first.Type)
	assert.Equal(t, "AAPL", first.Symbol)
	require.NotNil(t, first.Kline)
	assert.Equal(t, 100.0, first.Kline.Close)

	env.market.setKlines([]*domain.Kline{sampleKline(101, t0)})
	next := readFrame(t, conn)
	require.NotNil(t, next.Kline)
	assert.Equal(t, 101.0, next.Kline.Close)
}

func TestWebSocket_Stream(t *testing.T) {
	env := newTestEnv(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env.market.setKlines([]*domain.Kline{sampleKline(100, t0)})
	env.market.streamer = &mockStreamer{klines: []*domain.Kline{sampleKline(105, t0.Add(time.Minute))}}

	conn := dialWS(t, env, "symbol=BTCUSDT&interval=1m")

	assert.Equal(t, 100.0, readFrame(t, conn).Kline.Close)
	assert.Equal(t, 105.0, readFrame(t, conn).Kline.Close)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(env.metrics.WSMessagesSent) >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestWebSocket_RejectsInvalidSymbol(t *testing.T) {
	env := newTestEnv(t)
	env.market.klinesErr = fmt.Errorf("bad symbol: %w", ports.ErrInvalidRequest)

	rec := env.do(t, http.MethodGet, "/ws?symbol=%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
