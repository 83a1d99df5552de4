package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Upstream Provider Errors
	ErrUpstreamUnavailable  = errors.New("upstream provider is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to upstream provider")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("upstream authentication failed (check API keys)")
	ErrUnknownSymbol        = errors.New("symbol not known to provider")
	ErrCircuitOpen          = errors.New("circuit breaker is open")
	ErrLLMResponse          = errors.New("malformed LLM response")
	ErrFeatureDisabled      = errors.New("feature disabled by configuration")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
