package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/membership/pkg/billing"
	"github.com/dmitrymomot/membership/pkg/billingapi"
	"github.com/dmitrymomot/membership/pkg/config"
	"github.com/dmitrymomot/membership/pkg/httpserver"
	"github.com/dmitrymomot/membership/pkg/logger"
	"github.com/dmitrymomot/membership/pkg/mongo"
	"github.com/dmitrymomot/membership/pkg/redis"
)

type appConfig struct {
	Log     logger.Config
	HTTP    httpserver.Config
	Mongo   mongo.Config
	Redis   redis.Config
	Billing billing.Config
	Stripe  billing.StripeConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("billingd stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := config.LoadEnv(".env"); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Billing.Location()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithConfig(cfg.Log),
		logger.WithContextExtractors(requestIDFromContext),
	)
	logger.SetAsDefault(log)

	mongoClient, db, err := mongo.ConnectDatabase(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Error("mongodb disconnect failed", logger.Error(err))
		}
	}()

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("redis close failed", logger.Error(err))
		}
	}()

	store := billing.NewMongoStore(db.Collection(cfg.Billing.Collection))
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	catalog, err := newCatalog(cfg.Billing.Catalog, cfg.Stripe)
	if err != nil {
		return err
	}
	verifier, err := billing.NewStripeVerifier(cfg.Stripe.WebhookSecret)
	if err != nil {
		return err
	}
	resolver := billing.NewMongoUserResolver(db.Collection(cfg.Billing.UsersCollection), cfg.Billing.CustomerIDField)

	svc := billing.NewService(store,
		billing.WithConfig(cfg.Billing),
		billing.WithLocation(loc),
		billing.WithLogger(log.With(logger.Component("billing"))),
		billing.WithEventVerifier(verifier),
		billing.WithNormalizer(billing.NewNormalizer(resolver,
			billing.NewCachedCatalog(catalog, cfg.Billing.ProductCacheSize, cfg.Billing.ProductCacheTTL),
		)),
		billing.WithLocker(billing.NewRedisLocker(rdb,
			billing.WithLockTTL(cfg.Billing.LockTTL),
			billing.WithLockLogger(log),
		)),
		billing.WithDeduplicator(billing.NewRedisDeduplicator(rdb, cfg.Billing.EventDedupTTL)),
	)

	api := billingapi.NewHandler(svc, billingapi.WithLogger(log))
	root := httpserver.NewRouter(api.Handle(), log, cfg.HTTP.ProbeTimeout,
		httpserver.Check{Name: "mongodb", Fn: mongo.Healthcheck(mongoClient)},
		httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)},
	)

	return httpserver.New(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, root)
}

// requestIDFromContext tags records with the id set by the router middleware.
func requestIDFromContext(ctx context.Context) (slog.Attr, bool) {
	id := middleware.GetReqID(ctx)
	return logger.RequestID(id), id != ""
}

func loadConfig() (appConfig, error) {
	var cfg appConfig
	err := errors.Join(
		config.Load(&cfg.Log),
		config.Load(&cfg.HTTP),
		config.Load(&cfg.Mongo),
		config.Load(&cfg.Redis),
		config.Load(&cfg.Billing),
		config.Load(&cfg.Stripe),
	)
	return cfg, err
}

// newCatalog builds the product metadata source named by kind.
func newCatalog(kind string, stripeCfg billing.StripeConfig) (billing.ProductCatalog, error) {
	switch strings.ToLower(kind) {
	case "stripe", "":
		c, err := billing.NewStripeCatalog(stripeCfg.APIKey)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "paddle":
		var paddleCfg billing.PaddleConfig
		if err := config.Load(&paddleCfg); err != nil {
			return nil, err
		}
		c, err := billing.NewPaddleCatalog(paddleCfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown product catalog %q: must be \"stripe\" or \"paddle\"", kind)
	}
}
