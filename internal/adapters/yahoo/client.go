// Package yahoo reads equity candles from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"tradingDashboard/internal/domain"
	"tradingDashboard/internal/ports"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Config holds configuration for the Yahoo Finance adapter.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // Optional; overrides Timeout
	Logger     ports.Logger
}

// Client implements ports.MarketDataProvider for equities and indices.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     ports.Logger
}

// New creates a new Yahoo Finance client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Yahoo client")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
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
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: cfg.Logger}, nil
}

// Name identifies the provider.
func (c *Client) Name() string {
	return "yahoo"
}

// chartResponse is the subset of the v8 chart payload the dashboard reads.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High   []*float64 `json:"high"` // null for halted periods
					Low    []*float64 `json:"low"`
					Open   []*float64 `json:"open"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// chartParams maps a dashboard interval to the Yahoo interval and a range
// wide enough to hold the usual 200 candles.
func chartParams(interval string) (yInterval, yRange string, step time.Duration, err error) {
	switch interval {
	case "1m":
		return "1m", "5d", time.Minute, nil
	case "5m":
		return "5m", "1mo", 5 * time.Minute, nil
	case "15m":
		return "15m", "1mo", 15 * time.Minute, nil
	case "30m":
		return "30m", "1mo", 30 * time.Minute, nil
	case "1h", "60m":
		return "60m", "6mo", time.Hour, nil
	case "1d":
		return "1d", "2y", 24 * time.Hour, nil
	case "1w", "1wk":
		return "1wk", "10y", 7 * 24 * time.Hour, nil
	default:
		return "", "", 0, fmt.Errorf("interval %q not supported: %w", interval, ports.ErrInvalidRequest)
	}
}

// SupportsInterval reports whether Yahoo serves bars of the given timeframe.
// Yahoo has no 3m, 2h, 4h, 6h or 12h bars.
func (c *Client) SupportsInterval(interval string) bool {
	_, _, _, err := chartParams(interval)
	return err == nil
}

// GetKlines retrieves the most recent klines for the symbol, oldest first.
func (c *Client) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error) {
	op := "GetKlines"
	yInterval, yRange, step, err := chartParams(interval)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	resp, err := c.fetchChart(ctx, symbol, yInterval, yRange)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	klines, err := c.toKlines(ctx, resp, symbol, interval, step)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if limit > 0 && len(klines) > limit {
		klines = klines[len(klines)-limit:]
	}
	return klines, nil
}

// GetTickerPrice returns the regular market price from the chart metadata.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetTickerPrice"
	resp, err := c.fetchChart(ctx, symbol, "1m", "1d")
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	price := resp.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return 0, c.handleError(ctx, fmt.Errorf("no market price for %s: %w", symbol, ports.ErrUnknownSymbol), op)
	}
	return price, nil
}

func (c *Client) fetchChart(ctx context.Context, symbol, interval, rng string) (*chartResponse, error) {
	q := url.Values{}
	q.Set("interval", interval)
	q.Set("range", rng)
	q.Set("includePrePost", "false")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (dashboard)")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return nil, err
	}

	var resp chartResponse
	// Yahoo reports unknown symbols as 404 with a JSON error body.
	if jsonErr := json.Unmarshal(body, &resp); jsonErr == nil && resp.Chart.Error != nil {
		if res.StatusCode == http.StatusNotFound || resp.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%s: %s: %w", symbol, resp.Chart.Error.Description, ports.ErrUnknownSymbol)
		}
		return nil, fmt.Errorf("yahoo api error %s - %s: %w", resp.Chart.Error.Code, resp.Chart.Error.Description, ports.ErrUpstreamUnavailable)
	} else if jsonErr != nil && res.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("json unmarshal failed: %w", jsonErr)
	}

	if err := statusError(res.StatusCode); err != nil {
		return nil, err
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no result in response for %s: %w", symbol, ports.ErrUnknownSymbol)
	}
	return &resp, nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ports.ErrUnknownSymbol
	case code == http.StatusTooManyRequests:
		return ports.ErrRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ports.ErrAuthenticationFailed
	case code >= 500:
		return fmt.Errorf("status %d: %w", code, ports.ErrUpstreamUnavailable)
	default:
		return fmt.Errorf("unexpected status %d: %w", code, ports.ErrUnknown)
	}
}

func (c *Client) toKlines(ctx context.Context, resp *chartResponse, symbol, interval string, step time.Duration) ([]*domain.Kline, error) {
	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data in response for %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n || len(quote.Close) != n || len(quote.Volume) != n {
		return nil, fmt.Errorf("data alignment error for %s", symbol)
	}

	klines := make([]*domain.Kline, 0, n)
	skipped := 0
	now := time.Now()
	for i, ts := range result.Timestamp {
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			skipped++
			continue
		}
		if *quote.Close[i] <= 0 {
			skipped++
			continue
		}
		volume := 0.0
		if quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		open := time.Unix(ts, 0).UTC()
		closeTime := open.Add(step - time.Millisecond)
		klines = append(klines, &domain.Kline{
			OpenTime:  open,
			CloseTime: closeTime,
			Symbol:    symbol,
			Interval:  interval,
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Volume:    volume,
			IsFinal:   closeTime.Before(now),
		})
	}
	if skipped > 0 {
		c.logger.Debug(ctx, "Skipped incomplete Yahoo data points", map[string]interface{}{"symbol": symbol, "skipped": skipped})
	}

	sort.Slice(klines, func(i, j int) bool { return klines[i].OpenTime.Before(klines[j].OpenTime) })
	return klines, nil
}

// handleError wraps err with a ports sentinel and logs it.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	fields := map[string]interface{}{"operation": operation, "provider": "yahoo"}

	var finalErr error
	switch {
	case isPortsError(err):
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	default:
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
		} else {
			finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUpstreamUnavailable, err)
		}
	}

	if errors.Is(err, ports.ErrUnknownSymbol) || errors.Is(err, ports.ErrInvalidRequest) {
		c.logger.Warn(ctx, fmt.Sprintf("%s rejected", operation), fields)
	} else {
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	}
	return finalErr
}

func isPortsError(err error) bool {
	for _, sentinel := range []error{
		ports.ErrInvalidRequest, ports.ErrUnknownSymbol, ports.ErrRateLimited,
		ports.ErrAuthenticationFailed, ports.ErrUpstreamUnavailable, ports.ErrUnknown,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
