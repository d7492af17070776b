/**
 * Package di provides dependency injection for the hodl command.
 *
 * The Container holds every long-lived component of a run. It is created
 * by Wire() from the configuration and handed to the entry point.
 */
package di

import (
	"github.com/aristath/hodl/internal/app"
	"github.com/aristath/hodl/internal/clients/openfigi"
	"github.com/aristath/hodl/internal/config"
	"github.com/aristath/hodl/internal/modules/historical"
	"github.com/aristath/hodl/internal/work"
	"github.com/rs/zerolog"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Clients: price provider (Yahoo or Alpha Vantage), optional OpenFIGI fallback
 * - Storage: flat-file price cache under the history directory
 * - Work: bounded pool running one synchronization per ticker
 * - App: the portfolio pass itself
 */
type Container struct {
	Config *config.Config
	Log    zerolog.Logger

	// Clients - External API integrations
	PriceProvider historical.PriceProvider
	OpenFIGI      *openfigi.Client // nil unless OPENFIGI_ENABLED

	// Storage and execution
	Store        *historical.Store
	Pool         *work.Pool
	Synchronizer *historical.Synchronizer

	App *app.App
}
