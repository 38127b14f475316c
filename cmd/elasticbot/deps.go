package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/elasticbot/internal/api/handler"
	"github.com/kiranshivaraju/elasticbot/internal/cache"
	"github.com/kiranshivaraju/elasticbot/internal/config"
	"github.com/kiranshivaraju/elasticbot/internal/dispatch"
	"github.com/kiranshivaraju/elasticbot/internal/elasticity"
	"github.com/kiranshivaraju/elasticbot/internal/engine"
	"github.com/kiranshivaraju/elasticbot/internal/market"
	"github.com/kiranshivaraju/elasticbot/internal/queue"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/internal/worker"
	"github.com/redis/go-redis/v9"
)

// runtime holds the connections shared by every subcommand.
type runtime struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	store  *store.PostgresStore
	cache  *cache.RedisCache
	broker queue.Broker
}

// connect opens the database and Redis and, when withBroker is set, the
// configured broker.
func connect(ctx context.Context, cfg *config.Config, withBroker bool) (*runtime, error) {
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	slog.Info("database connected")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := redisCache.Ping(ctx); err != nil {
		pool.Close()
		redisCache.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	rt := &runtime{
		cfg:   cfg,
		pool:  pool,
		store: store.NewPostgresStore(pool),
		cache: redisCache,
	}
	if withBroker {
		rt.broker, err = newBroker(cfg.Broker, cfg.Worker, redisCache.Client())
		if err != nil {
			rt.Close()
			return nil, err
		}
		slog.Info("broker configured", "kind", cfg.Broker.Kind)
	}
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.broker != nil {
		if err := rt.broker.Close(); err != nil {
			slog.Warn("close broker", "error", err)
		}
	}
	rt.cache.Close()
	rt.pool.Close()
}

// newBroker builds the broker selected by cfg.Kind. The Redis broker shares
// the cache's client.
func newBroker(cfg config.BrokerConfig, wc config.WorkerConfig, rdb *redis.Client) (queue.Broker, error) {
	switch cfg.Kind {
	case "redis":
		return queue.NewRedisBroker(rdb, cfg.QueuePrefix, wc.ClaimTimeout), nil
	case "rabbitmq":
		return queue.NewRabbitBroker(cfg.AMQPURL, cfg.QueuePrefix, wc.Concurrency), nil
	default:
		return nil, fmt.Errorf("unknown broker %q", cfg.Kind)
	}
}

// newRegistry registers a handler for every task kind.
func newRegistry(cfg *config.Config, s store.Store, c cache.Cache) *worker.Registry {
	registry := worker.NewRegistry()

	exec := elasticity.NewExecutor(s, engine.New(), cfg.Elasticity.MinQualityScore, cfg.Elasticity.ExecutionTimeout)
	registry.Register(queue.KindCalculate, exec.HandleTask)

	collector := market.NewCollector(s, c,
		market.NewBinanceClient(cfg.Market.BinanceURL, cfg.Market.Timeout),
		market.NewBCBClient(cfg.Market.BCBURL, cfg.Market.Timeout),
		market.Options{
			MinInterval: cfg.Market.MinCollectInterval,
			Retention:   cfg.Market.RetentionPeriod,
		},
	)
	for kind, h := range collector.Handlers() {
		registry.Register(kind, h)
	}
	return registry
}

// newStrategy picks the dispatch strategy. The publisher is only consulted
// when async dispatch is enabled.
func newStrategy(cfg config.BrokerConfig, pub queue.Publisher, r dispatch.Runner) dispatch.Strategy {
	if !cfg.AsyncEnabled {
		pub = nil
	}
	return dispatch.New(cfg.AsyncEnabled, pub, r)
}

// healthChecks names the dependencies reported by GET /health. The broker is
// left out when it is not configured.
func healthChecks(db, c handler.Pinger, broker queue.Broker) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{
		"database": db,
		"cache":    c,
	}
	if broker != nil {
		checks["broker"] = broker
	}
	return checks
}
