// Package openfigi provides a client for Bloomberg's OpenFIGI API.
// OpenFIGI is a free service for mapping securities identifiers like ISINs
// to exchange-specific ticker symbols. It serves as a fallback for ISINs the
// reference listing does not cover.
package openfigi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aristath/hodl/internal/domain"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.openfigi.com/v3"
	// Rate limits: 25 requests/minute without API key, 25,000 with key
)

// MappingRequest represents a request to the OpenFIGI mapping API.
type MappingRequest struct {
	IDType   string `json:"idType"`
	IDValue  string `json:"idValue"`
	ExchCode string `json:"exchCode,omitempty"`
}

// MappingResult represents a single result from the OpenFIGI API.
type MappingResult struct {
	FIGI         string `json:"figi"`
	Ticker       string `json:"ticker"`
	ExchCode     string `json:"exchCode"` // Exchange code (e.g., "US", "LN", "GR")
	Name         string `json:"name"`
	MarketSector string `json:"marketSector"`
	SecurityType string `json:"securityType"`
}

// MappingResponse represents a response item from the OpenFIGI API.
type MappingResponse struct {
	Data    []MappingResult `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Warning string          `json:"warning,omitempty"`
}

// Client is the OpenFIGI API client.
type Client struct {
	baseURL    string
	apiKey     string // Optional - increases rate limits
	exchCode   string
	httpClient *http.Client
	log        zerolog.Logger

	mu    sync.Mutex
	cache map[string][]MappingResult
}

// NewClient creates a new OpenFIGI client.
// apiKey is optional but recommended for higher rate limits. exchCode is
// the preferred Bloomberg exchange code for ticker lookups ("GR" is Xetra).
func NewClient(apiKey, exchCode string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:  defaultBaseURL,
		apiKey:   apiKey,
		exchCode: exchCode,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:   log.With().Str("component", "openfigi").Logger(),
		cache: make(map[string][]MappingResult),
	}
}

// LookupISIN maps an ISIN to ticker symbol(s).
// Returns multiple results if the security trades on multiple exchanges.
func (c *Client) LookupISIN(ctx context.Context, isin string) ([]MappingResult, error) {
	if results, ok := c.getFromCache(isin); ok {
		c.log.Debug().Str("isin", isin).Msg("OpenFIGI cache hit")
		return results, nil
	}

	responses, err := c.doRequest(ctx, []MappingRequest{
		{IDType: "ID_ISIN", IDValue: isin},
	})
	if err != nil {
		return nil, err
	}

	if len(responses) == 0 {
		return nil, nil
	}
	if responses[0].Warning != "" {
		c.log.Debug().Str("isin", isin).Str("warning", responses[0].Warning).Msg("OpenFIGI returned a warning")
	}

	results := responses[0].Data
	c.setCache(isin, results)

	return results, nil
}

// LookupISINForExchange maps an ISIN to ticker for a specific exchange.
// It returns nil when the security is not listed there.
func (c *Client) LookupISINForExchange(ctx context.Context, isin, exchCode string) (*MappingResult, error) {
	results, err := c.LookupISIN(ctx, isin)
	if err != nil {
		return nil, err
	}

	for i := range results {
		if results[i].ExchCode == exchCode {
			return &results[i], nil
		}
	}

	return nil, nil
}

// LookupTicker returns the ticker of an ISIN on the preferred exchange, or
// the first listing when no exchange is preferred. It returns
// domain.ErrNotFound when there is no such listing.
func (c *Client) LookupTicker(ctx context.Context, isin string) (string, error) {
	var result *MappingResult
	if c.exchCode != "" {
		r, err := c.LookupISINForExchange(ctx, isin, c.exchCode)
		if err != nil {
			return "", err
		}
		result = r
	} else {
		results, err := c.LookupISIN(ctx, isin)
		if err != nil {
			return "", err
		}
		if len(results) > 0 {
			result = &results[0]
		}
	}

	if result == nil || result.Ticker == "" {
		return "", fmt.Errorf("openfigi: %s: %w", isin, domain.ErrNotFound)
	}
	return result.Ticker, nil
}

// doRequest performs the HTTP request to the OpenFIGI API.
func (c *Client) doRequest(ctx context.Context, requests []MappingRequest) ([]MappingResponse, error) {
	body, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mapping", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-OPENFIGI-APIKEY", c.apiKey)
	}

	c.log.Debug().Int("count", len(requests)).Msg("Making OpenFIGI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OpenFIGI API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var responses []MappingResponse
	if err := json.NewDecoder(resp.Body).Decode(&responses); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return responses, nil
}

func (c *Client) getFromCache(isin string) ([]MappingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	results, ok := c.cache[isin]
	return results, ok
}

func (c *Client) setCache(isin string, results []MappingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[isin] = results
}
