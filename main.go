package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"

	"tradingDashboard/config"
	"tradingDashboard/internal/adapters/binanceclient"
	"tradingDashboard/internal/adapters/llm"
	"tradingDashboard/internal/adapters/logger"
	"tradingDashboard/internal/adapters/news"
	"tradingDashboard/internal/adapters/rediscache"
	"tradingDashboard/internal/adapters/sqlite"
	"tradingDashboard/internal/adapters/yahoo"
	"tradingDashboard/internal/app"
	"tradingDashboard/internal/cache"
	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/metrics"
	"tradingDashboard/internal/ports"
	"tradingDashboard/internal/server"
	"tradingDashboard/internal/signals"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger and Metrics
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})
	m := metrics.New()

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 4. Initialize Market Data Providers
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	yahooClient, err := yahoo.New(yahoo.Config{BaseURL: cfg.YahooBaseURL, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Yahoo client: %v", err)
	}
	appLogger.Info(context.Background(), "Market data providers initialized")

	healthChecks := map[string]ports.HealthChecker{
		"database":           repo,
		binanceClient.Name(): binanceClient,
	}

	// 5. Optional Redis second cache tier
	var store ports.IndicatorStore
	if cfg.RedisAddr != "" {
		redisStore, err := rediscache.New(rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
			Logger:   appLogger,
		})
		if err != nil {
			appLogger.Warn(context.Background(), "Redis unavailable, using in-memory cache only", map[string]interface{}{"addr": cfg.RedisAddr, "error": err.Error()})
		} else {
			store = redisStore
			healthChecks["redis"] = redisStore
			defer redisStore.Close()
			appLogger.Info(context.Background(), "Redis indicator cache enabled", map[string]interface{}{"addr": cfg.RedisAddr})
		}
	}

	// 6. Initialize News and LLM Clients
	newsClient, err := news.New(news.Config{BaseURL: cfg.NewsAPIURL, APIKey: cfg.NewsAPIKey, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize news client: %v", err)
	}
	llmClient, err := llm.New(llm.Config{
		URL:             cfg.LLMAPIURL,
		APIKey:          cfg.LLMAPIKey,
		Model:           cfg.LLMModel,
		Timeout:         cfg.LLMTimeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerReset:    cfg.BreakerReset,
		Logger:          appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize LLM client: %v", err)
	}
	breaker := llmClient.Breaker()
	logTransition := breaker.OnStateChange
	breaker.OnStateChange = func(from, to llm.State) {
		logTransition(from, to)
		m.LLMBreakerState.Set(float64(to))
	}

	// 7. Initialize Application Services
	marketService, err := app.NewMarketService(app.MarketConfig{
		Crypto:       binanceClient,
		Equity:       yahooClient,
		Cache:        cache.New[domain.IndicatorSet](cfg.CacheTTL),
		Store:        store,
		Metrics:      m,
		Logger:       appLogger,
		DefaultLimit: cfg.DefaultKlineLimit,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize market service: %v", err)
	}

	classifier, err := signals.New(signals.DefaultConfig(), appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize signal classifier: %v", err)
	}

	analysisCfg := app.AnalysisConfig{
		Market:     marketService,
		Classifier: classifier,
		News:       newsClient,
		Repo:       repo,
		Metrics:    m,
		Logger:     appLogger,
		Debounce:   cfg.AnalysisDebounce,
	}
	if cfg.LLMEnabled() {
		analysisCfg.LLM = llmClient
	}
	analysisService, err := app.NewAnalysisService(analysisCfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize analysis service: %v", err)
	}
	appLogger.Info(context.Background(), "Application services initialized", map[string]interface{}{
		"llm": cfg.LLMEnabled(), "news": cfg.NewsEnabled(), "redis": store != nil,
	})

	// 8. Start the HTTP Server
	srv, err := server.New(server.Config{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		PollInterval:   cfg.PollInterval,
		Debug:          cfg.LogLevel == logger.LevelDebug,
		Market:         marketService,
		Analysis:       analysisService,
		News:           newsClient,
		Metrics:        m,
		Logger:         appLogger,
		HealthChecks:   healthChecks,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		appLogger.Error(context.Background(), err, "HTTP server exited with error")
		log.Fatalf("FATAL: HTTP server exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
