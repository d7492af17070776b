package di

import (
	"fmt"
	"io"

	"github.com/aristath/hodl/internal/app"
	"github.com/aristath/hodl/internal/clients/alphavantage"
	"github.com/aristath/hodl/internal/clients/openfigi"
	"github.com/aristath/hodl/internal/clients/yahoo"
	"github.com/aristath/hodl/internal/config"
	"github.com/aristath/hodl/internal/modules/historical"
	"github.com/aristath/hodl/internal/work"
	"github.com/rs/zerolog"
)

// Wire builds the container. The positions report is written to out.
func Wire(cfg *config.Config, out io.Writer, log zerolog.Logger) (*Container, error) {
	container := &Container{Config: cfg, Log: log}

	// Step 1: Clients
	provider, err := newPriceProvider(cfg, log)
	if err != nil {
		return nil, err
	}
	container.PriceProvider = provider

	if cfg.OpenFIGIEnabled {
		container.OpenFIGI = openfigi.NewClient(cfg.OpenFIGIAPIKey, cfg.OpenFIGIExchCode, log)
		log.Info().Str("exch_code", cfg.OpenFIGIExchCode).Msg("OpenFIGI fallback enabled")
	}

	// Step 2: Storage and work pool
	container.Store = historical.NewStore(cfg.HistoryDir, log)
	container.Pool = work.NewPool(cfg.SyncWorkers, cfg.SyncJobTimeout, log)
	container.Synchronizer = historical.NewSynchronizer(provider, container.Store, container.Pool, log)

	// Step 3: App
	container.App = app.New(app.Options{
		TransactionsFile: cfg.TransactionsFile,
		ISINFile:         cfg.ISINFile,
		Interval:         cfg.SyncInterval,
		Period:           cfg.SyncPeriod,
	}, container.Synchronizer, out, log)
	if container.OpenFIGI != nil {
		container.App.SetFallback(container.OpenFIGI)
	}

	log.Info().
		Str("provider", cfg.PriceProvider).
		Int("workers", container.Pool.Size()).
		Str("history_dir", cfg.HistoryDir).
		Msg("Dependencies wired")

	return container, nil
}

func newPriceProvider(cfg *config.Config, log zerolog.Logger) (historical.PriceProvider, error) {
	switch cfg.PriceProvider {
	case config.ProviderYahoo:
		return yahoo.NewClient(cfg.YahooSymbolSuffix, log), nil
	case config.ProviderAlphaVantage:
		return alphavantage.NewClient(cfg.AlphaVantageKey, log), nil
	default:
		return nil, fmt.Errorf("unknown price provider %q", cfg.PriceProvider)
	}
}
