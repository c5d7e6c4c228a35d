package commands

import (
	"fmt"
	"time"

	"github.com/briefkit/econdata/backend/internal/briefing"
	"github.com/briefkit/econdata/backend/internal/datapack"
	"github.com/briefkit/econdata/backend/internal/external/oecd"
	"github.com/briefkit/econdata/backend/internal/external/ons"
	"github.com/briefkit/econdata/backend/internal/ingest"
	"github.com/briefkit/econdata/backend/internal/registry"
	"github.com/briefkit/econdata/backend/internal/store"
	"github.com/briefkit/econdata/backend/pkg/config"
	"github.com/briefkit/econdata/backend/pkg/database"
	"github.com/briefkit/econdata/backend/pkg/httputil"
	"github.com/briefkit/econdata/backend/pkg/logger"
	"github.com/briefkit/econdata/backend/pkg/redis"
)

// app bundles the wired application components shared by commands.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client

	registry  *registry.Repository
	obsStore  *store.Repository
	writer    *store.Writer
	briefings *briefing.Repository

	builder   *datapack.Builder
	collector *ingest.Collector
	cache     *redis.Cache
}

// newApp loads config and wires every component. The caller owns the
// returned app and must Close it.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	limiter := redis.NewRateLimiter(redisClient, "econdata")

	onsHTTP := httputil.New(log).
		WithLocalRateLimit(cfg.ONS.RequestsPerMin).
		WithRateLimiter(limiter, redis.RateLimitConfig{
			Key:    "ons",
			Limit:  cfg.ONS.RequestsPerMin,
			Window: time.Minute,
		})
	oecdHTTP := httputil.New(log).
		WithLocalRateLimit(cfg.OECD.RequestsPerMin).
		WithRateLimiter(limiter, redis.RateLimitConfig{
			Key:    "oecd",
			Limit:  cfg.OECD.RequestsPerMin,
			Window: time.Minute,
		})

	onsClient := ons.NewClient(onsHTTP, cfg.ONS.BaseURL, log)
	oecdClient := oecd.NewClient(oecdHTTP, cfg.OECD.BaseURL, log)

	registryRepo := registry.NewRepository(db.Pool)
	obsStore := store.NewRepository(db.Pool)
	writer := store.NewWriter(db.Pool)
	briefingRepo := briefing.NewRepository(db.Pool)

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     redisClient,
		registry:  registryRepo,
		obsStore:  obsStore,
		writer:    writer,
		briefings: briefingRepo,
		builder:   datapack.NewBuilder(registryRepo, obsStore, log),
		collector: ingest.NewCollector(registryRepo, onsClient, oecdClient, writer, log, cfg.Pack.Workers),
		cache:     redis.NewCache(redisClient, "econdata"),
	}, nil
}

// Close releases database and redis connections.
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
