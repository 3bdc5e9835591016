package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/bikers/internal/api"
	"github.com/lalith-99/bikers/internal/auth"
	"github.com/lalith-99/bikers/internal/config"
	"github.com/lalith-99/bikers/internal/db"
	"github.com/lalith-99/bikers/internal/observ"
	"github.com/lalith-99/bikers/internal/ratelimit"
	"github.com/lalith-99/bikers/internal/realtime"
	"github.com/lalith-99/bikers/internal/repository"
	"github.com/lalith-99/bikers/internal/repository/memory"
	"github.com/lalith-99/bikers/internal/repository/postgres"
	"github.com/lalith-99/bikers/internal/service"
	"github.com/lalith-99/bikers/internal/settings"
	"github.com/lalith-99/bikers/internal/validate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const serviceName = "bikers-api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Config and logger
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 2. Tracing
	// ---------------------------------------------------------------
	shutdownTracing, err := observ.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	// ---------------------------------------------------------------
	// 3. Storage
	//
	// ctx is the signal context: a SIGTERM during a slow connect or a
	// long migration aborts startup instead of hanging until the
	// orchestrator kills the process. closeStore is deferred right away
	// so the pool is drained however run() returns.
	// ---------------------------------------------------------------
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ---------------------------------------------------------------
	// 4. Redis (optional): rate limits and announcement fan-out
	//
	// Without REDIS_URL the limiters are no-ops and announcements only
	// reach websocket clients of this instance. A configured but
	// unreachable redis fails startup: the operator asked for it.
	// ---------------------------------------------------------------
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("redis connected", zap.String("addr", opts.Addr))
	} else {
		logger.Info("redis not configured: rate limiting off, announcements stay on this instance")
	}

	// ---------------------------------------------------------------
	// 5. Metrics, realtime hub, settings
	//
	// A private registry rather than prometheus.DefaultRegisterer, so
	// /metrics shows exactly what is registered here and tests can build
	// their own. The hub's relay loop stops when ctx is cancelled.
	// ---------------------------------------------------------------
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observ.NewMetrics(registry)

	hub := realtime.NewHub(rdb, logger, metrics, cfg.CORSOrigins)
	go func() {
		if err := hub.Run(ctx); err != nil {
			logger.Error("announcement relay stopped", zap.Error(err))
		}
	}()

	flags := settings.New(cfg.MaxFileSizeMB)

	// ---------------------------------------------------------------
	// 6. Services
	//
	// Bootstrap creates the superadmin from SUPERADMIN_EMAIL and
	// SUPERADMIN_PASSWORD when no superadmin exists yet, and does
	// nothing on later starts.
	// ---------------------------------------------------------------
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	services := service.New(service.Deps{
		Store:                   store,
		Issuer:                  issuer,
		Validator:               validate.New(),
		Logger:                  logger,
		Metrics:                 metrics,
		Publisher:               hub,
		ImpersonationTTL:        cfg.ImpersonationTTL,
		BlockSuspendedCompanies: cfg.BlockSuspendedCompanies,
	})

	if err := services.Auth.Bootstrap(ctx, cfg.SuperadminEmail, cfg.SuperadminPassword); err != nil {
		return fmt.Errorf("bootstrap superadmin: %w", err)
	}

	// ---------------------------------------------------------------
	// 7. HTTP server
	//
	// otelhttp wraps the whole router, so every request gets a server
	// span and service spans (inventory.MarkSold, ...) nest under it.
	// ReadHeaderTimeout bounds slow-loris clients; bodies are small JSON.
	// ---------------------------------------------------------------
	router := api.NewRouter(cfg, api.Deps{
		Services:  services,
		Companies: store.Companies,
		Issuer:    issuer,
		Settings:  flags,
		Hub:       hub,
		Limiter:   ratelimit.New(rdb),
		Metrics:   metrics,
		Gatherer:  registry,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting bikers API",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("storage", cfg.Storage),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// ---------------------------------------------------------------
	// 8. Graceful shutdown
	//
	// Shutdown stops accepting connections and waits for in-flight
	// requests, up to SHUTDOWN_TIMEOUT. A sale in progress finishes its
	// transaction. Hijacked websocket connections are not tracked by
	// Shutdown; they close when the process exits.
	// ---------------------------------------------------------------
	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStore connects the configured backend. The memory backend is for
// local runs and demos; nothing survives a restart.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Store, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage")
		return memory.New(), func() {}, nil
	}

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if cfg.RunMigrations {
		if err := database.Migrate(cfg.MigrationsDir); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return postgres.NewStore(database), database.Close, nil
}
