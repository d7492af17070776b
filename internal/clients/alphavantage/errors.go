package alphavantage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrRateLimitExceeded is returned when the daily request budget is spent,
// locally or as reported by the API.
type ErrRateLimitExceeded struct{}

func (ErrRateLimitExceeded) Error() string {
	return "alpha vantage rate limit exceeded"
}

// ErrInvalidAPIKey is returned when the API rejects the key.
type ErrInvalidAPIKey struct{}

func (ErrInvalidAPIKey) Error() string {
	return "alpha vantage API key is invalid or missing"
}

// ErrSymbolNotFound is returned when the API knows no such symbol.
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("alpha vantage symbol not found: %s", e.Symbol)
}

// checkAPIError inspects a 200 response body for the error envelopes Alpha
// Vantage uses instead of HTTP status codes.
func checkAPIError(body []byte, symbol string) error {
	var envelope struct {
		ErrorMessage string `json:"Error Message"`
		Note         string `json:"Note"`
		Information  string `json:"Information"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if msg := envelope.Note + envelope.Information; msg != "" {
		lower := strings.ToLower(msg)
		switch {
		case strings.Contains(lower, "apikey") && strings.Contains(lower, "invalid"):
			return ErrInvalidAPIKey{}
		case strings.Contains(lower, "thank you"), strings.Contains(lower, "rate limit"),
			strings.Contains(lower, "call frequency"):
			return ErrRateLimitExceeded{}
		}
	}

	if envelope.ErrorMessage != "" {
		lower := strings.ToLower(envelope.ErrorMessage)
		if strings.Contains(lower, "apikey") {
			return ErrInvalidAPIKey{}
		}
		return ErrSymbolNotFound{Symbol: symbol}
	}

	return nil
}
