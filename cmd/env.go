package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/awards-cli/internal/cache"
	"github.com/sells-group/awards-cli/internal/fetcher"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/monitoring"
	"github.com/sells-group/awards-cli/internal/pipeline"
	"github.com/sells-group/awards-cli/internal/registry"
	"github.com/sells-group/awards-cli/internal/resilience"
	"github.com/sells-group/awards-cli/internal/store"
)

// appEnv holds the initialized store, caches and services shared by the
// commands.
type appEnv struct {
	Docs    *store.Cached
	Writer  store.Writer // nil when the store is read-only
	Brands  *registry.Loader
	Service *pipeline.Service
	Metrics *monitoring.Metrics
	redis   *redis.Client
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.Docs != nil {
		_ = e.Docs.Close()
	}
}

// initEnv validates the config for mode and wires the store, fetcher,
// pipeline and caches. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	env := &appEnv{Metrics: monitoring.NewMetrics()}
	env.Writer, _ = st.(store.Writer)
	env.Docs = store.NewCached(st, time.Duration(cfg.Store.CacheTTLHours)*time.Hour, cache.WithObserver(env.Metrics))
	env.Brands = registry.NewLoader(env.Docs, cfg.Brands.Collection, cfg.Brands.Document)

	awardCache, rdb, err := initAwardCache(ctx, env.Metrics)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.redis = rdb

	p := pipeline.New(newFetcher(env.Metrics), pipeline.OptionsFromConfig(cfg))
	env.Service = pipeline.NewService(env.Brands, p, awardCache, env.Metrics, monitoring.NewAlerter(cfg.Monitoring))
	return env, nil
}

func newFetcher(obs fetcher.Observer) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.Fetch.Timeout(),
		MaxRetries:   cfg.Fetch.MaxRetries,
		RatePerHost:  rate.Limit(cfg.Fetch.RatePerHost),
		BurstPerHost: cfg.Fetch.BurstPerHost,
		MaxBodyBytes: int64(cfg.Fetch.MaxBodyKB) << 10,
		Breaker: resilience.BreakerConfig{
			FailureThreshold: cfg.Fetch.BreakerThreshold,
			ResetTimeout:     time.Duration(cfg.Fetch.BreakerResetSecs) * time.Second,
		},
		Observer: obs,
	})
}

// initAwardCache builds the award list cache on the configured backend.
// The redis client is returned so the caller can close it.
func initAwardCache(ctx context.Context, obs cache.Observer) (*cache.Cache[[]model.Award], *redis.Client, error) {
	opts := []cache.Option{cache.WithTTL(cfg.Cache.TTL()), cache.WithObserver(obs)}

	switch cfg.Cache.Backend {
	case "redis":
		rdb, err := cache.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return nil, nil, eris.Wrap(err, "init award cache")
		}
		backend := cache.NewRedisBackend[[]model.Award](rdb, cfg.Cache.KeyPrefix)
		return cache.New[[]model.Award]("awards", backend, opts...), rdb, nil
	default:
		return cache.New[[]model.Award]("awards", cache.NewMemoryBackend[[]model.Award](), opts...), nil, nil
	}
}
