// Package server exposes the dashboard over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/metrics"
	"tradingDashboard/internal/ports"
)

// MarketAPI is the market data surface the handlers need. app.MarketService implements it.
type MarketAPI interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error)
	Price(ctx context.Context, symbol string) (float64, error)
	Indicators(ctx context.Context, symbol, interval string) (domain.IndicatorSet, bool, error)
	Streamer(symbol string) (ports.KlineStreamer, bool)
	ClearCache(ctx context.Context) error
	CacheLen() int
}

// AnalysisAPI is the analysis surface the handlers need. app.AnalysisService implements it.
type AnalysisAPI interface {
	Analyze(ctx context.Context, symbol, interval string) (*domain.Analysis, error)
	History(ctx context.Context, symbol string, limit int) ([]*domain.Analysis, error)
	Get(ctx context.Context, id int64) (*domain.Analysis, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// Config wires the HTTP server.
type Config struct {
	Addr           string
	AllowedOrigins []string      // "*" allows any origin
	PollInterval   time.Duration // Polling period of /ws for providers without a push stream
	Debug          bool          // Gin debug mode
	Market         MarketAPI
	Analysis       AnalysisAPI
	News           ports.NewsProvider // Optional
	Metrics        *metrics.Metrics   // Optional
	Logger         ports.Logger

	// HealthChecks are probed by /api/health and reported under "upstream".
	HealthChecks map[string]ports.HealthChecker
}

// Server is the dashboard HTTP API.
type Server struct {
	addr         string
	origins      map[string]struct{}
	anyOrigin    bool
	pollInterval time.Duration
	market       MarketAPI
	analysis     AnalysisAPI
	news         ports.NewsProvider
	checks       map[string]ports.HealthChecker
	metrics      *metrics.Metrics
	logger       ports.Logger
	engine       *gin.Engine
	upgrader     websocket.Upgrader
	now          func() time.Time
}

// New builds the server and registers all routes.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil || cfg.Market == nil || cfg.Analysis == nil {
		return nil, fmt.Errorf("missing required dependencies for server")
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		addr:         cfg.Addr,
		origins:      make(map[string]struct{}),
		pollInterval: cfg.PollInterval,
		market:       cfg.Market,
		analysis:     cfg.Analysis,
		news:         cfg.News,
		checks:       cfg.HealthChecks,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		engine:       gin.New(),
		now:          time.Now,
	}
	if s.addr == "" {
		s.addr = ":8080"
	}
	if s.pollInterval <= 0 {
		s.pollInterval = 5 * time.Second
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			s.anyOrigin = true
		}
		s.origins[o] = struct{}{}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return s.originAllowed(r.Header.Get("Origin")) },
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), s.instrument(), s.cors())
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/candles", s.getCandles)
	api.GET("/price", s.getPrice)
	api.GET("/indicators", s.getIndicators)
	api.GET("/news", s.getNews)
	api.POST("/analysis", s.postAnalysis)
	api.GET("/analysis/history", s.getAnalysisHistory)
	api.GET("/analysis/:id", s.getAnalysis)
	api.DELETE("/cache", s.deleteCache)

	s.engine.GET("/ws", s.handleWebSocket)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": s.addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info(context.Background(), "Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
