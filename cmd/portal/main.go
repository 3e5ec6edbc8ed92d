// Command portal runs the services portal HTTP API.
//
// @title                       Services Portal API
// @version                     1.0
// @description                 Multi-tenant services portal: clients, tariffs, subscriptions, user assignments and usage.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/gendalf/services-portal/internal/api"
	"github.com/gendalf/services-portal/internal/api/handler"
	"github.com/gendalf/services-portal/internal/core/policy"
	"github.com/gendalf/services-portal/internal/core/service"
	mongorepo "github.com/gendalf/services-portal/internal/infrastructure/db/mongo"
	redisstore "github.com/gendalf/services-portal/internal/infrastructure/db/redis"
	"github.com/gendalf/services-portal/internal/infrastructure/queue"
	"github.com/gendalf/services-portal/internal/pkg/config"
	"github.com/gendalf/services-portal/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "services-portal",
		Version: version,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("portal stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongorepo.Connect(ctx, mongorepo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	repos := mongorepo.NewRepositories(db)
	engine := policy.NewEngine()
	limits := service.NewLimitChecker(repos)
	locker := redisstore.NewLocker(rdb, cfg.Redis.LockTTL, cfg.Redis.LockWait, log)
	dedup := redisstore.NewUsageDedup(rdb)

	auth := service.NewAuthService(repos.Users, cfg.JWTSecret, cfg.TokenTTL, log)
	usage := service.NewUsageService(repos, engine, dedup, log)

	if cfg.Bootstrap.Username != "" {
		created, err := auth.EnsureAdmin(ctx, cfg.Bootstrap.Username, cfg.Bootstrap.Password, cfg.Bootstrap.Email)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("username", cfg.Bootstrap.Username).Msg("bootstrap portal admin created")
		}
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Usage.Workers, usage, log)
	dispatcher.Start(workerCtx)

	e := api.NewRouter(api.Deps{
		Log:           log,
		Engine:        engine,
		Authn:         auth,
		Auth:          auth,
		Tenants:       service.NewTenantService(repos, engine, log),
		Catalog:       service.NewCatalogService(repos, engine, log),
		Tariffs:       service.NewTariffService(repos, engine, log),
		Subscriptions: service.NewSubscriptionService(repos, engine, limits, locker, log),
		Accounts:      service.NewAccountService(repos, auth, engine, limits, locker, log),
		Assignments:   service.NewAssignmentService(repos, engine, limits, locker, log),
		Usage:         usage,
		UsageQueue:    dispatcher,
		Health: map[string]handler.Pinger{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("portal listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stopWorkers()
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	dispatcher.Close()
	drained := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		log.Warn().Msg("usage queue not drained before shutdown timeout")
	}
	stopWorkers()
	dispatcher.Wait()
	return nil
}
