package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tradingDashboard/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// HTTP server
	HTTPAddr       string
	AllowedOrigins []string // "*" allows any origin
	PollInterval   time.Duration

	// Binance API (read-only market data; keys are optional)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Equities
	YahooBaseURL string

	// News
	NewsAPIURL string
	NewsAPIKey string

	// LLM
	LLMAPIURL       string
	LLMAPIKey       string
	LLMModel        string
	LLMTimeout      time.Duration
	BreakerFailures int
	BreakerReset    time.Duration

	// Indicators & analysis
	DefaultKlineLimit int
	CacheTTL          time.Duration
	AnalysisDebounce  time.Duration

	// Redis (second cache tier, disabled when RedisAddr is empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter

	// Connection Settings (Binance websocket)
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// LLMEnabled reports whether an LLM API key is configured.
func (c *Config) LLMEnabled() bool { return c.LLMAPIKey != "" }

// NewsEnabled reports whether a news API key is configured.
func (c *Config) NewsEnabled() bool { return c.NewsAPIKey != "" }

// LoadConfig loads configuration from environment variables (.env file).
// No key is mandatory; missing credentials only disable the matching feature.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// HTTP server
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.AllowedOrigins = getEnvAsList("ALLOWED_ORIGINS", []string{"*"})

	pollSeconds, err := getEnvAsIntRequired("POLL_INTERVAL_SECONDS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid POLL_INTERVAL_SECONDS: %v", err))
	} else if pollSeconds <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)

	// Equities and news
	cfg.YahooBaseURL = getEnv("YAHOO_BASE_URL", "")
	cfg.NewsAPIURL = getEnv("NEWS_API_URL", "")
	cfg.NewsAPIKey = getEnv("NEWS_API_KEY", "")

	// LLM
	cfg.LLMAPIURL = getEnv("LLM_API_URL", "")
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", "")
	cfg.LLMModel = getEnv("LLM_MODEL", "gpt-4o-mini")

	llmTimeout, err := getEnvAsIntRequired("LLM_TIMEOUT_SECONDS", 30)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LLM_TIMEOUT_SECONDS: %v", err))
	} else if llmTimeout <= 0 {
		errs = append(errs, "LLM_TIMEOUT_SECONDS must be positive")
	}
	cfg.LLMTimeout = time.Duration(llmTimeout) * time.Second

	cfg.BreakerFailures, err = getEnvAsIntRequired("LLM_BREAKER_FAILURES", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LLM_BREAKER_FAILURES: %v", err))
	} else if cfg.BreakerFailures <= 0 {
		errs = append(errs, "LLM_BREAKER_FAILURES must be positive")
	}
	breakerReset := getEnvAsInt("LLM_BREAKER_RESET_SECONDS", 30)
	if breakerReset <= 0 {
		errs = append(errs, "LLM_BREAKER_RESET_SECONDS must be positive")
	}
	cfg.BreakerReset = time.Duration(breakerReset) * time.Second

	// Indicators & analysis
	cfg.DefaultKlineLimit, err = getEnvAsIntRequired("DEFAULT_KLINE_LIMIT", 200)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_KLINE_LIMIT: %v", err))
	} else if cfg.DefaultKlineLimit <= 0 || cfg.DefaultKlineLimit > 1000 {
		errs = append(errs, "DEFAULT_KLINE_LIMIT must be between 1 and 1000")
	}

	cacheTTL := getEnvAsInt("CACHE_TTL_SECONDS", 30)
	if cacheTTL <= 0 {
		errs = append(errs, "CACHE_TTL_SECONDS must be positive")
	}
	cfg.CacheTTL = time.Duration(cacheTTL) * time.Second

	debounce, err := getEnvAsIntRequired("ANALYSIS_DEBOUNCE_SECONDS", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ANALYSIS_DEBOUNCE_SECONDS: %v", err))
	} else if debounce < 0 {
		errs = append(errs, "ANALYSIS_DEBOUNCE_SECONDS cannot be negative")
	}
	cfg.AnalysisDebounce = time.Duration(debounce) * time.Second

	// Redis
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvAsInt("REDIS_DB", 0)
	if cfg.RedisDB < 0 {
		errs = append(errs, "REDIS_DB cannot be negative")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/dashboard.db")

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Connection Settings
	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 5)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
