// Package llm talks to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tradingDashboard/internal/ports"
)

const (
	defaultURL   = "https://api.openai.com/v1/chat/completions"
	defaultModel = "gpt-4o-mini"
)

// Config holds configuration for the LLM adapter.
type Config struct {
	URL             string
	APIKey          string
	Model           string
	Timeout         time.Duration
	BreakerFailures int
	BreakerReset    time.Duration
	HTTPClient      *http.Client
	Logger          ports.Logger
}

// Client implements ports.LLMClient.
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *CircuitBreaker
	logger     ports.Logger
}

// New creates an LLM client. Without an API key every call fails with
// ports.ErrFeatureDisabled so callers fall back to rule-based analysis.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for LLM client")
	}
	c := &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
		breaker:    NewCircuitBreaker(cfg.BreakerFailures, cfg.BreakerReset),
		logger:     cfg.Logger,
	}
	if c.url == "" {
		c.url = defaultURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	c.breaker.OnStateChange = func(from, to State) {
		cfg.Logger.Warn(context.Background(), "LLM circuit breaker state changed", map[string]interface{}{"from": from.String(), "to": to.String()})
	}
	if c.apiKey == "" {
		cfg.Logger.Warn(context.Background(), "LLM API key is empty. Analyses will use the rule-based fallback.")
	}
	return c, nil
}

// Breaker exposes the circuit breaker, e.g. for health reporting.
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends req and returns the content of the first choice.
func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	op := "Complete"
	if c.apiKey == "" {
		return "", fmt.Errorf("%s failed: %w", op, ports.ErrFeatureDisabled)
	}

	var content string
	// Calls abandoned by the caller say nothing about the provider.
	err := c.breaker.ExecuteIf(func() error {
		var callErr error
		content, callErr = c.complete(ctx, req)
		return callErr
	}, func(error) bool { return ctx.Err() == nil })
	if errors.Is(err, ports.ErrCircuitOpen) {
		c.logger.Warn(ctx, "LLM call rejected by open circuit breaker")
		return "", fmt.Errorf("%s failed: %w", op, err)
	}
	if err != nil {
		return "", c.handleError(ctx, err, op)
	}
	return content, nil
}

func (c *Client) complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	body := chatRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.User})
	if req.Temperature > 0 {
		t := req.Temperature
		body.Temperature = &t
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(raw, &parsed)
	if res.StatusCode != http.StatusOK {
		detail := strings.TrimSpace(string(raw))
		if decodeErr == nil && parsed.Error != nil {
			detail = parsed.Error.Message
		}
		return "", statusError(res.StatusCode, detail)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decoding completion: %w: %w", ports.ErrLLMResponse, decodeErr)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("completion has no content: %w", ports.ErrLLMResponse)
	}

	c.logger.Debug(ctx, "LLM completion received", map[string]interface{}{
		"model":    c.model,
		"duration": time.Since(start).String(),
		"chars":    len(parsed.Choices[0].Message.Content),
	})
	return parsed.Choices[0].Message.Content, nil
}

func statusError(code int, detail string) error {
	if len(detail) > 200 {
		detail = detail[:200]
	}
	var sentinel error
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		sentinel = ports.ErrAuthenticationFailed
	case code == http.StatusTooManyRequests:
		sentinel = ports.ErrRateLimited
	case code == http.StatusBadRequest:
		sentinel = ports.ErrInvalidRequest
	case code >= 500:
		sentinel = ports.ErrUpstreamUnavailable
	default:
		sentinel = ports.ErrUnknown
	}
	return fmt.Errorf("status %d: %s: %w", code, detail, sentinel)
}

func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case errors.Is(err, ports.ErrAuthenticationFailed), errors.Is(err, ports.ErrRateLimited),
		errors.Is(err, ports.ErrInvalidRequest), errors.Is(err, ports.ErrUpstreamUnavailable),
		errors.Is(err, ports.ErrLLMResponse), errors.Is(err, ports.ErrUnknown):
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	default:
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
		} else {
			finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
		}
	}
	c.logger.Error(ctx, err, fmt.Sprintf("LLM %s failed", operation), map[string]interface{}{"model": c.model})
	return finalErr
}
