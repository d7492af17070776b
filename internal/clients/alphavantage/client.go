// Package alphavantage provides historical prices from the Alpha Vantage API.
// The free tier allows 25 requests per day; the client enforces that budget
// locally and caches responses so repeated syncs do not spend it twice.
package alphavantage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aristath/hodl/internal/domain"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://www.alphavantage.co/query"
	dailyLimit     = 25
	defaultTTL     = time.Hour
)

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// Client is an Alpha Vantage API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger

	mu            sync.Mutex
	requestsToday int
	resetAt       time.Time
	cache         map[string]cacheEntry
	now           func() time.Time
}

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:     log.With().Str("client", "alphavantage").Logger(),
		resetAt: nextMidnightUTC(time.Now()),
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// GetRemainingRequests returns how many requests are left today.
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollover()
	return dailyLimit - c.requestsToday
}

// ResetDailyCounter restores the full daily budget.
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestsToday = 0
	c.resetAt = nextMidnightUTC(c.now())
}

// checkRateLimit reserves one request from the daily budget.
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollover()
	if c.requestsToday >= dailyLimit {
		return ErrRateLimitExceeded{}
	}
	c.requestsToday++
	return nil
}

// rollover resets the counter once the UTC day has changed. Callers hold mu.
func (c *Client) rollover() {
	if now := c.now(); !now.Before(c.resetAt) {
		c.requestsToday = 0
		c.resetAt = nextMidnightUTC(now)
	}
}

func nextMidnightUTC(t time.Time) time.Time {
	return domain.TruncateDay(t.UTC()).AddDate(0, 0, 1)
}

func (c *Client) setCache(key string, data interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = cacheEntry{data: data, expiresAt: time.Now().Add(ttl)}
}

func (c *Client) getFromCache(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]cacheEntry)
}

// buildCacheKey renders a stable key from the function and its parameters,
// leaving out the API key.
func buildCacheKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k != "apikey" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(function)
	for _, k := range keys {
		b.WriteString("&")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}

func (c *Client) get(ctx context.Context, function string, params map[string]string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrInvalidAPIKey{}
	}

	key := buildCacheKey(function, params)
	if cached, ok := c.getFromCache(key); ok {
		c.log.Debug().Str("key", key).Msg("Serving response from cache")
		return cached.([]byte), nil
	}

	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("function", function)
	q.Set("apikey", c.apiKey)
	for k, v := range params {
		q.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := checkAPIError(body, params["symbol"]); err != nil {
		return nil, err
	}

	c.setCache(key, body, defaultTTL)
	return body, nil
}

// History fetches bars for a ticker at a daily, weekly or monthly interval,
// trimmed to the trailing period. Bars are returned oldest first.
func (c *Client) History(ctx context.Context, ticker, interval, period string) ([]domain.Bar, error) {
	series, ok := seriesKeys[interval]
	if !ok {
		return nil, fmt.Errorf("alpha vantage does not support interval %q", interval)
	}

	start, err := domain.PeriodStart(period, c.now())
	if err != nil {
		return nil, err
	}

	params := map[string]string{"symbol": ticker}
	if series.function == "TIME_SERIES_DAILY" {
		params["outputsize"] = "full"
	}

	body, err := c.get(ctx, series.function, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s for %s: %w", series.function, ticker, err)
	}

	bars, err := parseTimeSeries(body, series.key)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Bar, 0, len(bars))
	for i := len(bars) - 1; i >= 0; i-- {
		if !bars[i].Date.Before(domain.TruncateDay(start)) {
			out = append(out, bars[i])
		}
	}

	c.log.Debug().
		Str("symbol", ticker).
		Str("interval", interval).
		Str("period", period).
		Int("count", len(out)).
		Int("remaining_requests", c.GetRemainingRequests()).
		Msg("Fetched historical prices")

	return out, nil
}
