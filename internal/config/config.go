package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aristath/hodl/internal/domain"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Supported price providers.
const (
	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alphavantage"
)

// Config holds application configuration
type Config struct {
	DataDir          string
	TransactionsFile string
	ISINFile         string
	HistoryDir       string

	SyncInterval   string
	SyncPeriod     string
	SyncWorkers    int // 0 = logical CPU count
	SyncJobTimeout time.Duration
	SyncSchedule   string // six-field cron spec or descriptor; empty = run once

	PriceProvider     string
	YahooSymbolSuffix string
	AlphaVantageKey   string

	OpenFIGIEnabled  bool
	OpenFIGIAPIKey   string
	OpenFIGIExchCode string

	LogLevel  string
	LogPretty bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("HODL_DATA_DIR", "data")

	cfg := &Config{
		DataDir:           dataDir,
		TransactionsFile:  getEnv("HODL_TRANSACTIONS_FILE", filepath.Join(dataDir, "Transactions.csv")),
		ISINFile:          getEnv("HODL_ISIN_FILE", filepath.Join(dataDir, "ISINdatabase.csv")),
		HistoryDir:        getEnv("HODL_HISTORY_DIR", filepath.Join(dataDir, "historic_data")),
		SyncInterval:      getEnv("SYNC_INTERVAL", "1d"),
		SyncPeriod:        getEnv("SYNC_PERIOD", "10y"),
		SyncWorkers:       getEnvAsInt("SYNC_WORKERS", 0),
		SyncJobTimeout:    getEnvAsDuration("SYNC_JOB_TIMEOUT", 2*time.Minute),
		SyncSchedule:      getEnv("SYNC_SCHEDULE", ""),
		PriceProvider:     getEnv("PRICE_PROVIDER", ProviderYahoo),
		YahooSymbolSuffix: getEnv("YAHOO_SYMBOL_SUFFIX", ""),
		AlphaVantageKey:   getEnv("ALPHA_VANTAGE_KEY", ""),
		OpenFIGIEnabled:   getEnvAsBool("OPENFIGI_ENABLED", false),
		OpenFIGIAPIKey:    getEnv("OPENFIGI_API_KEY", ""),
		OpenFIGIExchCode:  getEnv("OPENFIGI_EXCH_CODE", "GR"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getEnvAsBool("LOG_PRETTY", true),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.TransactionsFile == "" {
		return fmt.Errorf("HODL_TRANSACTIONS_FILE is required")
	}
	if c.ISINFile == "" {
		return fmt.Errorf("HODL_ISIN_FILE is required")
	}
	if c.HistoryDir == "" {
		return fmt.Errorf("HODL_HISTORY_DIR is required")
	}
	if c.SyncInterval == "" {
		return fmt.Errorf("SYNC_INTERVAL is required")
	}
	if _, err := domain.PeriodStart(c.SyncPeriod, time.Now()); err != nil {
		return fmt.Errorf("SYNC_PERIOD: %w", err)
	}
	if c.SyncWorkers < 0 {
		return fmt.Errorf("SYNC_WORKERS must not be negative")
	}

	switch c.PriceProvider {
	case ProviderYahoo:
	case ProviderAlphaVantage:
		if c.AlphaVantageKey == "" {
			return fmt.Errorf("ALPHA_VANTAGE_KEY is required for the %s provider", ProviderAlphaVantage)
		}
	default:
		return fmt.Errorf("unknown PRICE_PROVIDER %q", c.PriceProvider)
	}

	if c.SyncSchedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.SyncSchedule); err != nil {
			return fmt.Errorf("invalid SYNC_SCHEDULE: %w", err)
		}
	}

	return nil
}

// Daemon reports whether synchronization repeats on a schedule.
func (c *Config) Daemon() bool {
	return c.SyncSchedule != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
