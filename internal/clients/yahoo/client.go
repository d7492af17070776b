// Package yahoo provides historical prices from Yahoo Finance.
package yahoo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/hodl/internal/domain"
	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// historyFunc fetches bars for a Yahoo symbol.
type historyFunc func(symbol string, params models.HistoryParams) ([]models.Bar, error)

// Client fetches historical OHLCV data using go-yfinance.
type Client struct {
	suffix  string
	history historyFunc
	log     zerolog.Logger
}

// NewClient creates a Yahoo Finance client. suffix is appended to every
// ticker that has no exchange suffix of its own (e.g. ".DE" for Xetra).
func NewClient(suffix string, log zerolog.Logger) *Client {
	return &Client{
		suffix:  suffix,
		history: fetchHistory,
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

func fetchHistory(symbol string, params models.HistoryParams) ([]models.Bar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	return t.History(params)
}

// Symbol returns the Yahoo symbol of a ticker.
func (c *Client) Symbol(tickerSymbol string) string {
	symbol := strings.ToUpper(strings.TrimSpace(tickerSymbol))
	if c.suffix == "" || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + c.suffix
}

// History fetches bars for a ticker over a trailing period.
func (c *Client) History(ctx context.Context, tickerSymbol, interval, period string) ([]domain.Bar, error) {
	symbol := c.Symbol(tickerSymbol)
	params := models.HistoryParams{
		Period:     period,
		Interval:   interval,
		AutoAdjust: false,
	}

	type outcome struct {
		bars []models.Bar
		err  error
	}
	// go-yfinance takes no context; the call is abandoned on cancellation.
	done := make(chan outcome, 1)
	go func() {
		bars, err := c.history(symbol, params)
		done <- outcome{bars: bars, err: err}
	}()

	var res outcome
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("yahoo history for %s: %w", symbol, ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("failed to get historical prices for %s: %w", symbol, res.err)
	}

	bars := make([]domain.Bar, 0, len(res.bars))
	for _, bar := range res.bars {
		bars = append(bars, domain.Bar{
			Date:     bar.Date,
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			AdjClose: bar.AdjClose,
			Volume:   int64(bar.Volume),
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("interval", interval).
		Str("period", period).
		Int("count", len(bars)).
		Msg("Fetched historical prices")

	return bars, nil
}
