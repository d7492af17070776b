package historical

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/hodl/internal/domain"
	"github.com/aristath/hodl/internal/work"
	"github.com/rs/zerolog"
)

// SyncWorkType identifies per-ticker synchronization work items.
const SyncWorkType = "history:sync"

// PriceProvider fetches historical bars for a ticker. period is a trailing
// window such as "1y" or "10y", interval a bar size such as "1d".
type PriceProvider interface {
	History(ctx context.Context, ticker, interval, period string) ([]domain.Bar, error)
}

// SyncState describes what a synchronization did to a cache.
type SyncState string

const (
	// StateCreated means no cache existed and a new one was written.
	StateCreated SyncState = "created"
	// StateAppended means new rows were appended to an existing cache.
	StateAppended SyncState = "appended"
	// StateUpToDate means the cache already covers today; nothing was fetched.
	StateUpToDate SyncState = "up_to_date"
	// StateNoNewData means the provider returned nothing past the cache.
	StateNoNewData SyncState = "no_new_data"
)

// SyncResult is the outcome of synchronizing one ticker.
type SyncResult struct {
	Ticker   string
	Interval string
	State    SyncState
	Period   string
	Fetched  int
	Appended int
}

// Synchronizer keeps per-ticker price caches current.
type Synchronizer struct {
	provider PriceProvider
	store    *Store
	pool     *work.Pool
	now      func() time.Time
	log      zerolog.Logger
}

// NewSynchronizer creates a synchronizer.
func NewSynchronizer(provider PriceProvider, store *Store, pool *work.Pool, log zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		provider: provider,
		store:    store,
		pool:     pool,
		now:      time.Now,
		log:      log.With().Str("service", "historical_sync").Logger(),
	}
}

// Sync brings the cache of one ticker up to date.
//
// Workflow:
// 1. No cache: fetch the full period and write a new cache
// 2. Cache covers today: nothing to do
// 3. Otherwise fetch the smallest period that covers the gap and append
// the rows strictly after the last cached date
func (s *Synchronizer) Sync(ctx context.Context, ticker, interval, period string) (*SyncResult, error) {
	result := &SyncResult{Ticker: ticker, Interval: interval}

	exists, err := s.store.Exists(ticker, interval)
	if err != nil {
		return nil, err
	}

	if !exists {
		s.log.Info().Str("ticker", ticker).Str("period", period).Msg("No cached history, fetching full period")

		bars, err := s.provider.History(ctx, ticker, interval, period)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch history for %s: %w", ticker, err)
		}
		written, err := s.store.Write(ticker, interval, bars)
		if err != nil {
			return nil, fmt.Errorf("failed to write history for %s: %w", ticker, err)
		}

		result.State = StateCreated
		result.Period = period
		result.Fetched = len(bars)
		result.Appended = written
		s.logResult(result)
		return result, nil
	}

	last, ok, err := s.store.LastDate(ticker, interval)
	if err != nil {
		return nil, err
	}

	// An empty cache has no last date; anything fetched is new.
	delta := 0
	today := domain.TruncateDay(s.now())
	if ok {
		delta = int(today.Sub(domain.TruncateDay(last)).Hours() / 24)
	}

	refetch := period
	if ok {
		p, stale := RefetchPeriod(delta)
		if !stale {
			result.State = StateUpToDate
			s.logResult(result)
			return result, nil
		}
		refetch = p
	}

	s.log.Debug().
		Str("ticker", ticker).
		Time("last_date", last).
		Int("delta_days", delta).
		Str("period", refetch).
		Msg("Cached history is stale, refetching")

	bars, err := s.provider.History(ctx, ticker, interval, refetch)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", ticker, err)
	}

	written, err := s.store.Write(ticker, interval, bars)
	if err != nil {
		return nil, fmt.Errorf("failed to append history for %s: %w", ticker, err)
	}

	result.Period = refetch
	result.Fetched = len(bars)
	result.Appended = written
	result.State = StateAppended
	if written == 0 {
		result.State = StateNoNewData
	}
	s.logResult(result)
	return result, nil
}

// SyncAll synchronizes every ticker on the worker pool. A failing ticker
// never stops the others; its error is reported in the summary. The
// returned map holds the results of the tickers that succeeded.
func (s *Synchronizer) SyncAll(ctx context.Context, tickers []string, interval, period string) (*work.Summary, map[string]*SyncResult) {
	results := make([]*SyncResult, len(tickers))
	items := make([]*work.WorkItem, len(tickers))
	for i, ticker := range tickers {
		items[i] = work.NewWorkItem(SyncWorkType, ticker, func(ctx context.Context) error {
			res, err := s.Sync(ctx, ticker, interval, period)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	s.log.Info().
		Int("tickers", len(tickers)).
		Int("workers", s.pool.Size()).
		Str("interval", interval).
		Msg("Starting historical sync")

	summary := s.pool.Run(ctx, items)

	byTicker := make(map[string]*SyncResult, len(tickers))
	for _, res := range results {
		if res != nil {
			byTicker[res.Ticker] = res
		}
	}
	return summary, byTicker
}

func (s *Synchronizer) logResult(r *SyncResult) {
	s.log.Info().
		Str("ticker", r.Ticker).
		Str("interval", r.Interval).
		Str("state", string(r.State)).
		Str("period", r.Period).
		Int("fetched", r.Fetched).
		Int("appended", r.Appended).
		Msg("Historical sync complete")
}
