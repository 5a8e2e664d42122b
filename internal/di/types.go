// Package di provides dependency injection wiring and initialization.
//
// The Container holds every long-lived dependency and is the single source
// of truth for the server, the scheduler and main.
package di

import (
	"github.com/aristath/riskdash/internal/clientdata"
	"github.com/aristath/riskdash/internal/clients/alphavantage"
	"github.com/aristath/riskdash/internal/clients/binance"
	"github.com/aristath/riskdash/internal/clients/commodity"
	"github.com/aristath/riskdash/internal/clients/fred"
	"github.com/aristath/riskdash/internal/database"
	"github.com/aristath/riskdash/internal/events"
	"github.com/aristath/riskdash/internal/metrics"
	"github.com/aristath/riskdash/internal/modules/alerts"
	"github.com/aristath/riskdash/internal/modules/history"
	"github.com/aristath/riskdash/internal/modules/portfolio"
	"github.com/aristath/riskdash/internal/modules/risk"
	"github.com/aristath/riskdash/internal/reliability"
	"github.com/aristath/riskdash/internal/scheduler"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	PortfolioDB *database.DB // holdings, alert history (ledger profile)
	HistoryDB   *database.DB // persisted market observations
	CacheDB     *database.DB // expiring client data blobs

	// Optional Redis connection backing the history cache
	Redis *redis.Client

	// Cross-cutting
	EventBus *events.Bus
	Metrics  *metrics.Metrics

	// Repositories
	ClientDataRepo *clientdata.Repository
	HoldingsRepo   *portfolio.Repository
	AlertsRepo     *alerts.Repository
	HistoryStore   *history.Store

	// Market data clients
	AlphaVantageClient *alphavantage.Client
	BinanceClient      *binance.Client
	FREDClient         *fred.Client
	CommodityClient    *commodity.Client

	// Services
	HistoryCache    history.Cache
	HistoryProvider *history.Provider
	RiskEngine      *risk.Engine
	RiskService     *risk.Service
	BackupService   *reliability.BackupService // nil when backups are not configured

	Scheduler *scheduler.Scheduler
}

// Databases returns the open databases keyed by name
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 3)
	if c.PortfolioDB != nil {
		dbs[database.NamePortfolio] = c.PortfolioDB
	}
	if c.HistoryDB != nil {
		dbs[database.NameHistory] = c.HistoryDB
	}
	if c.CacheDB != nil {
		dbs[database.NameCache] = c.CacheDB
	}
	return dbs
}

// Close releases the Redis connection and every database
func (c *Container) Close() error {
	var firstErr error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
