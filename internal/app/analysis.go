package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/metrics"
	"tradingDashboard/internal/ports"
	"tradingDashboard/internal/signals"
)

const (
	// DefaultNewsLimit is the number of headlines fetched per analysis.
	DefaultNewsLimit    = 5
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	llmMaxTokens        = 600
	llmTemperature      = 0.2
)

// IndicatorSource provides cache-aware indicator sets. MarketService implements it.
type IndicatorSource interface {
	Indicators(ctx context.Context, symbol, interval string) (domain.IndicatorSet, bool, error)
}

// AnalysisConfig wires the analysis service.
type AnalysisConfig struct {
	Market     IndicatorSource          // Required
	Classifier *signals.Classifier      // Required, used for fallback analyses
	News       ports.NewsProvider       // Optional
	LLM        ports.LLMClient          // Optional; without it every analysis is rule-based
	Repo       ports.AnalysisRepository // Optional history store
	Metrics    *metrics.Metrics         // Optional
	Logger     ports.Logger             // Required
	Debounce   time.Duration            // Repeat requests inside this window reuse the last analysis
	NewsLimit  int
	Now        func() time.Time
}

// AnalysisService produces trading commentary from indicators and news.
type AnalysisService struct {
	market     IndicatorSource
	classifier *signals.Classifier
	news       ports.NewsProvider
	llm        ports.LLMClient
	repo       ports.AnalysisRepository
	metrics    *metrics.Metrics
	logger     ports.Logger
	debounce   time.Duration
	newsLimit  int
	now        func() time.Time

	mu     sync.Mutex
	recent map[string]*domain.Analysis
}

// NewAnalysisService creates a new analysis service.
func NewAnalysisService(cfg AnalysisConfig) (*AnalysisService, error) {
	if cfg.Market == nil || cfg.Classifier == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for AnalysisService")
	}
	if cfg.Debounce < 0 {
		return nil, fmt.Errorf("analysis debounce must not be negative")
	}
	newsLimit := cfg.NewsLimit
	if newsLimit <= 0 {
		newsLimit = DefaultNewsLimit
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AnalysisService{
		market:     cfg.Market,
		classifier: cfg.Classifier,
		news:       cfg.News,
		llm:        cfg.LLM,
		repo:       cfg.Repo,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		debounce:   cfg.Debounce,
		newsLimit:  newsLimit,
		now:        now,
		recent:     make(map[string]*domain.Analysis),
	}, nil
}

// Analyze returns an analysis for symbol/interval. The LLM is asked first;
// if it is unavailable or answers with something unusable the analysis is
// derived from the signal classifier instead.
func (s *AnalysisService) Analyze(ctx context.Context, symbol, interval string) (*domain.Analysis, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if interval, err = ValidateInterval(interval); err != nil {
		return nil, err
	}

	if last := s.debounced(ctx, symbol, interval); last != nil {
		s.logger.Debug(ctx, "Returning debounced analysis", map[string]interface{}{"symbol": symbol, "interval": interval, "id": last.ID})
		return last, nil
	}

	set, _, err := s.market.Indicators(ctx, symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("loading indicators for %s: %w", symbol, err)
	}

	news := s.headlines(ctx, symbol)

	analysis, err := s.fromLLM(ctx, set, news)
	if err != nil {
		if !errors.Is(err, ports.ErrFeatureDisabled) {
			s.logger.Warn(ctx, "LLM analysis failed, using rule-based fallback", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		}
		analysis = s.fallback(ctx, set)
	}
	analysis.Symbol = symbol
	analysis.Interval = interval
	analysis.Indicators = set
	analysis.CreatedAt = s.now().UTC()
	if analysis.Risks == nil {
		analysis.Risks = []string{}
	}

	s.persist(ctx, analysis)
	s.remember(analysis)
	if s.metrics != nil {
		s.metrics.AnalysesTotal.WithLabelValues(string(analysis.Source)).Inc()
	}

	s.logger.Info(ctx, "Analysis generated", map[string]interface{}{
		"symbol": symbol, "interval": interval, "bias": analysis.Bias,
		"confidence": analysis.Confidence, "source": analysis.Source, "id": analysis.ID,
	})
	return analysis, nil
}

func (s *AnalysisService) fromLLM(ctx context.Context, set domain.IndicatorSet, news []*domain.NewsItem) (*domain.Analysis, error) {
	if s.llm == nil {
		return nil, ports.ErrFeatureDisabled
	}
	raw, err := s.llm.Complete(ctx, ports.CompletionRequest{
		System:      systemPrompt,
		User:        BuildPrompt(set, news),
		JSON:        true,
		Temperature: llmTemperature,
		MaxTokens:   llmMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	analysis, err := ParseLLMAnalysis(raw)
	if err != nil {
		return nil, err
	}
	if len(analysis.KeyLevels.Support) == 0 && len(analysis.KeyLevels.Resistance) == 0 {
		analysis.KeyLevels = levelsOf(set)
	}
	return analysis, nil
}

// fallback builds a rule-based analysis from the classifier.
func (s *AnalysisService) fallback(ctx context.Context, set domain.IndicatorSet) *domain.Analysis {
	res := s.classifier.Classify(ctx, set)
	summary := fmt.Sprintf("Rule-based read: %s.", res.Signal)
	if len(res.Reasons) > 0 {
		summary = fmt.Sprintf("Rule-based read: %s. %s.", res.Signal, strings.Join(res.Reasons, "; "))
	}
	return &domain.Analysis{
		Bias:       res.Signal,
		Confidence: res.Confidence,
		Summary:    summary,
		KeyLevels:  levelsOf(set),
		Risks:      res.Risks,
		Source:     domain.SourceFallback,
	}
}

func levelsOf(set domain.IndicatorSet) domain.KeyLevels {
	kl := domain.KeyLevels{Support: []float64{}, Resistance: []float64{}}
	kl.Support = append(kl.Support, set.Support...)
	kl.Resistance = append(kl.Resistance, set.Resistance...)
	return kl
}

// headlines fetches news; any failure degrades to an empty list.
func (s *AnalysisService) headlines(ctx context.Context, symbol string) []*domain.NewsItem {
	if s.news == nil {
		return nil
	}
	items, err := s.news.GetNews(ctx, symbol, s.newsLimit)
	if err != nil {
		if !errors.Is(err, ports.ErrFeatureDisabled) {
			s.logger.Warn(ctx, "News fetch failed, continuing without headlines", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		}
		return nil
	}
	return items
}

func (s *AnalysisService) persist(ctx context.Context, a *domain.Analysis) {
	if s.repo == nil {
		return
	}
	id, err := s.repo.Save(ctx, a)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to save analysis", map[string]interface{}{"symbol": a.Symbol, "interval": a.Interval})
		if s.metrics != nil {
			s.metrics.AnalysisSaveFailure.Inc()
		}
		return
	}
	a.ID = id
}

func debounceKey(symbol, interval string) string {
	return symbol + ":" + interval
}

func (s *AnalysisService) remember(a *domain.Analysis) {
	if s.debounce <= 0 {
		return
	}
	s.mu.Lock()
	s.recent[debounceKey(a.Symbol, a.Interval)] = a
	s.mu.Unlock()
}

// debounced returns the last analysis for the pair if it is younger than the
// debounce window, checking memory first and then the repository.
func (s *AnalysisService) debounced(ctx context.Context, symbol, interval string) *domain.Analysis {
	if s.debounce <= 0 {
		return nil
	}
	now := s.now()
	key := debounceKey(symbol, interval)

	s.mu.Lock()
	last, ok := s.recent[key]
	if ok && now.Sub(last.CreatedAt) >= s.debounce {
		delete(s.recent, key)
		ok = false
	}
	s.mu.Unlock()
	if ok {
		return last
	}

	if s.repo == nil {
		return nil
	}
	stored, err := s.repo.FindLatest(ctx, symbol, interval)
	if err != nil {
		s.logger.Warn(ctx, "Debounce lookup failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		return nil
	}
	if stored == nil || now.Sub(stored.CreatedAt) >= s.debounce {
		return nil
	}
	return stored
}

// History returns the latest stored analyses for symbol, newest first.
func (s *AnalysisService) History(ctx context.Context, symbol string, limit int) ([]*domain.Analysis, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("analysis history: %w", ports.ErrFeatureDisabled)
	}
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.FindBySymbol(ctx, symbol, limit)
}

// Get returns a stored analysis by ID.
func (s *AnalysisService) Get(ctx context.Context, id int64) (*domain.Analysis, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("analysis lookup: %w", ports.ErrFeatureDisabled)
	}
	if id <= 0 {
		return nil, fmt.Errorf("analysis id must be positive: %w", ports.ErrInvalidRequest)
	}
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("analysis %d: %w", id, ports.ErrNotFound)
	}
	return a, nil
}

// CountSince reports how many analyses were stored after since.
func (s *AnalysisService) CountSince(ctx context.Context, since time.Time) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	return s.repo.CountSince(ctx, since)
}
