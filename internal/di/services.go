package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/riskdash/internal/clients/alphavantage"
	"github.com/aristath/riskdash/internal/clients/binance"
	"github.com/aristath/riskdash/internal/clients/commodity"
	"github.com/aristath/riskdash/internal/clients/fred"
	"github.com/aristath/riskdash/internal/config"
	"github.com/aristath/riskdash/internal/events"
	"github.com/aristath/riskdash/internal/metrics"
	"github.com/aristath/riskdash/internal/modules/history"
	"github.com/aristath/riskdash/internal/modules/risk"
	"github.com/aristath/riskdash/internal/reliability"
	"github.com/aristath/riskdash/internal/scheduler"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisPingTimeout bounds the startup connectivity check
const redisPingTimeout = 3 * time.Second

// InitializeServices creates clients and services. Repositories must exist.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventBus = events.NewBus(log)
	container.Metrics = metrics.New()

	container.AlphaVantageClient = alphavantage.NewClient(cfg.AlphaVantageAPIKey, log)
	container.BinanceClient = binance.NewClient(log)
	container.FREDClient = fred.NewClient(cfg.FREDAPIKey, log)
	container.CommodityClient = commodity.NewClient(cfg.RapidAPIKey, log)

	container.HistoryCache = newHistoryCache(ctx, container, cfg, log)
	container.HistoryProvider = history.NewProvider(history.Sources{
		Equity:    container.AlphaVantageClient,
		Crypto:    container.BinanceClient,
		Yield:     container.FREDClient,
		Commodity: container.CommodityClient,
	}, container.HistoryCache, container.HistoryStore, log)

	container.RiskEngine = risk.NewEngine(container.HistoryProvider, log).WithRecorder(container.Metrics)

	thresholds := cfg.Risk.Thresholds
	container.RiskService = risk.NewService(
		container.RiskEngine,
		container.HoldingsRepo,
		container.AlertsRepo,
		container.EventBus,
		risk.Options{
			LookbackDays:     cfg.Risk.LookbackDays,
			Scenarios:        cfg.Risk.Scenarios,
			Thresholds:       &thresholds,
			FetchConcurrency: cfg.Risk.FetchConcurrency,
		},
		log,
	).WithPricing(container.HistoryProvider)

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Client(ctx, cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			store,
			container.Databases(),
			cfg.DataDir,
			cfg.Backup.Prefix,
			container.EventBus,
			log,
		)
	}

	container.Scheduler = scheduler.New(container.EventBus, log)

	log.Info().
		Bool("redis_cache", container.Redis != nil).
		Bool("backups", container.BackupService != nil).
		Msg("Services initialized")

	return nil
}

// newHistoryCache prefers Redis when configured and reachable.
// An unreachable Redis falls back to the SQLite cache rather than failing startup.
func newHistoryCache(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) history.Cache {
	if cfg.RedisAddr == "" {
		return history.NewSQLiteCache(container.ClientDataRepo)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, using SQLite cache")
		_ = client.Close()
		return history.NewSQLiteCache(container.ClientDataRepo)
	}

	container.Redis = client
	return history.NewRedisCache(client)
}
