package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/ports"
)

const (
	defaultInterval  = "1h"
	defaultNewsLimit = 5
	maxNewsLimit     = 50

	healthCheckTimeout = 3 * time.Second
)

type analysisRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Interval string `json:"interval"`
}

// statusFor maps application errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrNotFound), errors.Is(err, ports.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ports.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ports.ErrFeatureDisabled), errors.Is(err, ports.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, ports.ErrUpstreamUnavailable), errors.Is(err, ports.ErrConnectionFailed),
		errors.Is(err, ports.ErrAuthenticationFailed), errors.Is(err, ports.ErrLLMResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), err, "Request failed", map[string]interface{}{"path": c.Request.URL.Path})
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func intervalParam(c *gin.Context) string {
	if i := strings.TrimSpace(c.Query("interval")); i != "" {
		return i
	}
	return defaultInterval
}

// limitParam parses an optional positive limit; absent means 0 (use default).
func limitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (s *Server) badLimit(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
}

func (s *Server) getHealth(c *gin.Context) {
	now := s.now().UTC()
	resp := gin.H{
		"status":        "ok",
		"cache_entries": s.market.CacheLen(),
		"time":          now,
	}
	if n, err := s.analysis.CountSince(c.Request.Context(), now.Add(-24*time.Hour)); err == nil {
		resp["analyses_24h"] = n
	}
	if len(s.checks) > 0 {
		upstream, healthy := s.probe(c.Request.Context())
		resp["upstream"] = upstream
		if !healthy {
			resp["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, resp)
}

// probe pings every configured dependency and reports "ok" or the error per name.
func (s *Server) probe(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
	)
	upstream := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		wg.Add(1)
		go func(name string, check ports.HealthChecker) {
			defer wg.Done()
			status := "ok"
			if err := check.Ping(ctx); err != nil {
				status = err.Error()
				s.logger.Warn(ctx, "Health check failed", map[string]interface{}{"dependency": name, "error": status})
			}
			mu.Lock()
			upstream[name] = status
			if status != "ok" {
				healthy = false
			}
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()
	return upstream, healthy
}

func (s *Server) getCandles(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		s.badLimit(c)
		return
	}
	klines, err := s.market.Candles(c.Request.Context(), c.Query("symbol"), intervalParam(c), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if klines == nil {
		klines = []*domain.Kline{}
	}
	c.JSON(http.StatusOK, klines)
}

func (s *Server) getPrice(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	price, err := s.market.Price(c.Request.Context(), symbol)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": price})
}

func (s *Server) getIndicators(c *gin.Context) {
	set, hit, err := s.market.Indicators(c.Request.Context(), c.Query("symbol"), intervalParam(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, set)
}

// getNews never fails on upstream errors; the dashboard just shows no headlines.
func (s *Server) getNews(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	limit, ok := limitParam(c)
	if !ok {
		s.badLimit(c)
		return
	}
	if limit == 0 {
		limit = defaultNewsLimit
	}
	if limit > maxNewsLimit {
		limit = maxNewsLimit
	}

	items := []*domain.NewsItem{}
	if s.news != nil {
		got, err := s.news.GetNews(c.Request.Context(), symbol, limit)
		if err != nil {
			if !errors.Is(err, ports.ErrFeatureDisabled) {
				s.logger.Warn(c.Request.Context(), "News fetch failed, returning empty list", map[string]interface{}{"symbol": symbol, "error": err.Error()})
			}
		} else if got != nil {
			items = got
		}
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) postAnalysis(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "body must be JSON with a symbol"})
		return
	}
	if req.Interval == "" {
		req.Interval = defaultInterval
	}
	a, err := s.analysis.Analyze(c.Request.Context(), req.Symbol, req.Interval)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) getAnalysisHistory(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		s.badLimit(c)
		return
	}
	history, err := s.analysis.History(c.Request.Context(), c.Query("symbol"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if history == nil {
		history = []*domain.Analysis{}
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) getAnalysis(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}
	a, err := s.analysis.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) deleteCache(c *gin.Context) {
	if err := s.market.ClearCache(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
