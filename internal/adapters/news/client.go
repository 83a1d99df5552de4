// Package news fetches recent headlines from a NewsAPI-compatible endpoint.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/ports"
)

const (
	defaultBaseURL = "https://newsapi.org/v2/everything"
	maxLimit       = 50
)

// Config holds configuration for the news adapter.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     ports.Logger
}

// Client implements ports.NewsProvider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     ports.Logger
}

// New creates a news client. An empty APIKey yields a client whose calls
// fail with ports.ErrFeatureDisabled.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for news client")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if cfg.APIKey == "" {
		cfg.Logger.Warn(context.Background(), "News API key is empty. Headlines are disabled.")
	}
	return &Client{baseURL: baseURL, apiKey: cfg.APIKey, httpClient: httpClient, logger: cfg.Logger}, nil
}

type articlesResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

// GetNews returns up to limit recent headlines about symbol, newest first.
func (c *Client) GetNews(ctx context.Context, symbol string, limit int) ([]*domain.NewsItem, error) {
	op := "GetNews"
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s failed: %w", op, ports.ErrFeatureDisabled)
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	q := url.Values{}
	q.Set("q", SearchQuery(symbol))
	q.Set("pageSize", strconv.Itoa(limit))
	q.Set("sortBy", "publishedAt")
	q.Set("language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	var payload articlesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if res.StatusCode != http.StatusOK {
			return nil, c.handleError(ctx, statusError(res.StatusCode, ""), op)
		}
		return nil, c.handleError(ctx, fmt.Errorf("decoding articles: %w", err), op)
	}
	if res.StatusCode != http.StatusOK || payload.Status == "error" {
		return nil, c.handleError(ctx, statusError(res.StatusCode, payload.Code+": "+payload.Message), op)
	}

	items := make([]*domain.NewsItem, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		if strings.TrimSpace(a.Title) == "" || a.Title == "[Removed]" {
			continue
		}
		items = append(items, &domain.NewsItem{
			Headline:    a.Title,
			Summary:     a.Description,
			Source:      a.Source.Name,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Sentiment:   ScoreSentiment(a.Title + " " + a.Description),
		})
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func statusError(code int, detail string) error {
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
	return fmt.Errorf("status %d %s: %w", code, strings.TrimSpace(detail), sentinel)
}

func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	var finalErr error
	switch {
	case errors.Is(err, ports.ErrAuthenticationFailed), errors.Is(err, ports.ErrRateLimited),
		errors.Is(err, ports.ErrInvalidRequest), errors.Is(err, ports.ErrUpstreamUnavailable),
		errors.Is(err, ports.ErrUnknown):
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUpstreamUnavailable, err)
	}
	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), map[string]interface{}{"operation": operation, "provider": "news"})
	return finalErr
}
