package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"courier-engine/internal/aggregator"
	"courier-engine/internal/config"
	"courier-engine/internal/dispatch"
	"courier-engine/internal/events"
	"courier-engine/internal/identity"
	"courier-engine/internal/metrics"
	"courier-engine/internal/processor"
	"courier-engine/internal/recipients"
	"courier-engine/internal/render"
	"courier-engine/internal/repository"
	"courier-engine/internal/server"
	"courier-engine/internal/workers"
	"courier-engine/pkg/database"
	courier_errors "courier-engine/pkg/errors"
	"courier-engine/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(log)
	defer log.Logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Errorf("failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyRawMigrations(db, "migrations"); err != nil {
		log.Errorf("failed to apply migrations: %v", err)
		os.Exit(1)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	metrics.Register()

	source, err := buildSource(cfg)
	if err != nil {
		log.Errorf("failed to build identity source: %v", err)
		os.Exit(1)
	}
	cache := identity.NewCache(cfg.Identity.CacheTTL, time.Now)
	cachedSource := identity.NewCachedSource(source, cache)
	resolver := recipients.NewResolver(cachedSource, log)

	aggregationRepo := repository.NewAggregationRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	registry := aggregator.NewRegistry()
	registry.Register("rhel", "policies", aggregator.NewPoliciesAggregator)

	agg := aggregator.NewAggregator(aggregationRepo, subscriptionRepo, resolver, registry, cfg.Aggregation.PageSize, log)

	renderer := render.NewHTTPRenderer(cfg.Email.RenderURL, cfg.Email.Timeout)
	dispatcher := dispatch.NewHTTPDispatcher(cfg.Email.DispatchURL, cfg.Email.Timeout)

	proc := processor.NewProcessor(agg, aggregationRepo, renderer, dispatcher, processor.Config{
		Sender:           cfg.Email.Sender,
		PrimaryTemplate:  cfg.Email.PrimaryTemplate,
		FallbackTemplate: cfg.Email.FallbackTemplate,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := workers.NewPool(cfg.Aggregation.Workers, cfg.Aggregation.QueueSize)
	pool.Start(ctx)

	bus := events.NewBus(rdb, cfg.Redis.Channel, log)
	err = bus.Subscribe(ctx, func(ctx context.Context, payload []byte) {
		pool.Submit(func(ctx context.Context) {
			proc.ProcessBatch(ctx, payload)
		})
	})
	if err != nil {
		log.Errorf("failed to subscribe to %s: %v", cfg.Redis.Channel, err)
		os.Exit(1)
	}

	admin := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.New(cfg.Server.Environment, db, rdb, aggregationRepo),
	}
	go func() {
		log.Infof("admin server listening on :%s", cfg.Server.Port)
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("admin server: %v", err)
		}
	}()

	log.Infof("aggregation engine started, consuming %s", cfg.Redis.Channel)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infof("shutting down")
	// Stop before cancelling so the workers drain the queue instead of
	// exiting out from under it.
	pool.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		log.Errorf("admin shutdown: %v", err)
	}
}

func buildSource(cfg *config.Config) (identity.Source, error) {
	groups := identity.NewGroupClient(cfg.Identity.GroupBaseURL, cfg.Identity.Token, cfg.Identity.PageSize, cfg.Identity.Timeout)

	var users identity.AllUsersBackend
	switch cfg.Identity.Backend {
	case "directory":
		users = identity.NewDirectoryClient(cfg.Identity.UsersBaseURL, cfg.Identity.Token, cfg.Identity.PageSize, cfg.Identity.Timeout)
	case "bulk":
		users = identity.NewBulkClient(cfg.Identity.UsersBaseURL, cfg.Identity.Token, cfg.Identity.PageSize, cfg.Identity.Timeout)
	default:
		return nil, fmt.Errorf("%w: %q", courier_errors.ErrUnknownBackend, cfg.Identity.Backend)
	}
	return identity.NewRESTSource(groups, users), nil
}
