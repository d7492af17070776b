// Package app runs one portfolio pass: load transactions and the reference
// listing, aggregate positions, print the report, then synchronize the
// price history of every held ticker.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aristath/hodl/internal/modules/historical"
	"github.com/aristath/hodl/internal/modules/portfolio"
	"github.com/aristath/hodl/internal/modules/transactions"
	"github.com/aristath/hodl/internal/modules/universe"
	"github.com/aristath/hodl/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options selects the inputs and the synchronization window.
type Options struct {
	TransactionsFile string
	ISINFile         string
	Interval         string
	Period           string
}

// SyncError reports tickers whose synchronization failed after every
// ticker was attempted.
type SyncError struct {
	Failed int
	Total  int
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%d of %d tickers failed to sync: %v", e.Failed, e.Total, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// App wires the portfolio pass together.
type App struct {
	opts     Options
	sync     *historical.Synchronizer
	fallback universe.TickerLookup // Optional
	out      io.Writer
	log      zerolog.Logger
}

// New creates an App. The positions report is written to out.
func New(opts Options, sync *historical.Synchronizer, out io.Writer, log zerolog.Logger) *App {
	return &App{
		opts: opts,
		sync: sync,
		out:  out,
		log:  log.With().Str("component", "app").Logger(),
	}
}

// SetFallback sets the lookup for ISINs the reference listing lacks.
func (a *App) SetFallback(fallback universe.TickerLookup) {
	a.fallback = fallback
}

// Run performs one pass. Loading and aggregation errors abort the pass
// before any ticker is synchronized; ticker failures are collected and
// returned as a *SyncError once all tickers have been attempted.
func (a *App) Run(ctx context.Context) error {
	log := logger.WithRun(a.log, uuid.NewString())
	start := time.Now()
	log.Info().Msg("Starting portfolio pass")

	txs, err := transactions.Load(a.opts.TransactionsFile)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	log.Info().Int("count", len(txs)).Msg("Loaded executed transactions")

	table, err := universe.LoadReferenceTable(a.opts.ISINFile)
	if err != nil {
		return fmt.Errorf("failed to load reference table: %w", err)
	}
	log.Debug().Int("count", table.Len()).Msg("Loaded reference table")

	isins := transactions.UniqueISINs(txs)

	positions, err := portfolio.Aggregate(txs, transactions.Descriptions(txs))
	if err != nil {
		return fmt.Errorf("failed to aggregate positions: %w", err)
	}

	resolver := universe.NewResolver(table, log)
	if a.fallback != nil {
		resolver.SetFallback(a.fallback)
	}
	resolution := resolver.Build(ctx, isins)
	tickers := resolution.Tickers(isins)
	if len(resolution.Unresolved) > 0 {
		log.Warn().
			Strs("isins", resolution.Unresolved).
			Msg("Skipping ISINs without a ticker")
	}

	if err := portfolio.WriteReport(a.out, positions); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	summary, results := a.sync.SyncAll(ctx, tickers, a.opts.Interval, a.opts.Period)

	appended := 0
	for _, r := range results {
		appended += r.Appended
	}
	log.Info().
		Int("positions", len(positions)).
		Int("tickers", len(tickers)).
		Int("synced", summary.Succeeded()).
		Int("rows_written", appended).
		Dur("duration", time.Since(start)).
		Msg("Portfolio pass finished")

	if err := summary.Err(); err != nil {
		return &SyncError{
			Failed: len(summary.Failed()),
			Total:  len(summary.Results),
			Err:    err,
		}
	}
	return nil
}
