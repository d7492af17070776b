package universe

import (
	"context"
	"errors"

	"github.com/aristath/hodl/internal/domain"
	"github.com/rs/zerolog"
)

// TickerLookup resolves an ISIN that the reference table does not list.
// Implementations return domain.ErrNotFound when they have no answer.
type TickerLookup interface {
	LookupTicker(ctx context.Context, isin string) (string, error)
}

// Resolution is the outcome of resolving a set of ISINs.
type Resolution struct {
	Mapping    *TwoWayMapping
	Unresolved []string // in request order
}

// Tickers returns the tickers of isins in the same order, skipping the
// ones that could not be resolved. Each ticker appears once, so no two
// sync jobs ever share a cache file.
func (r *Resolution) Tickers(isins []string) []string {
	tickers := make([]string, 0, len(isins))
	seen := make(map[string]bool, len(isins))
	for _, isin := range isins {
		if ticker, ok := r.Mapping.TickerFor(isin); ok && !seen[ticker] {
			seen[ticker] = true
			tickers = append(tickers, ticker)
		}
	}
	return tickers
}

// Resolver builds ticker mappings from a reference table.
type Resolver struct {
	table    *ReferenceTable
	fallback TickerLookup // Optional
	log      zerolog.Logger
}

// NewResolver creates a resolver backed by table.
func NewResolver(table *ReferenceTable, log zerolog.Logger) *Resolver {
	return &Resolver{
		table: table,
		log:   log.With().Str("component", "resolver").Logger(),
	}
}

// SetFallback sets a lookup consulted for ISINs missing from the table.
func (r *Resolver) SetFallback(fallback TickerLookup) {
	r.fallback = fallback
}

// Build resolves isins. ISINs without a ticker are reported and left out
// of the mapping; this is never an error.
func (r *Resolver) Build(ctx context.Context, isins []string) *Resolution {
	res := &Resolution{Mapping: NewTwoWayMapping()}

	for _, isin := range isins {
		ticker, listed := r.table.Lookup(isin)
		if ticker == "" {
			ticker = r.lookupFallback(ctx, isin)
		}

		if !res.Mapping.Add(ticker, isin) {
			event := r.log.Warn().Str("isin", isin)
			if listed {
				event.Msg("ISIN listed without a ticker")
			} else {
				event.Msg("ISIN not found in reference table")
			}
			res.Unresolved = append(res.Unresolved, isin)
		}
	}

	r.log.Info().
		Int("requested", len(isins)).
		Int("resolved", res.Mapping.Len()).
		Int("unresolved", len(res.Unresolved)).
		Msg("Built ticker mapping")

	return res
}

func (r *Resolver) lookupFallback(ctx context.Context, isin string) string {
	if r.fallback == nil {
		return ""
	}

	ticker, err := r.fallback.LookupTicker(ctx, isin)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.log.Warn().Err(err).Str("isin", isin).Msg("Fallback ticker lookup failed")
		}
		return ""
	}

	r.log.Debug().Str("isin", isin).Str("ticker", ticker).Msg("Resolved ISIN via fallback lookup")
	return ticker
}
