// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hotdog/elotto/internal/admin"
	"github.com/hotdog/elotto/internal/auth"
	"github.com/hotdog/elotto/internal/config"
	"github.com/hotdog/elotto/internal/core"
	"github.com/hotdog/elotto/internal/docstore"
	"github.com/hotdog/elotto/internal/events"
	"github.com/hotdog/elotto/internal/health"
	"github.com/hotdog/elotto/internal/middleware"
	"github.com/hotdog/elotto/internal/notification"
	"github.com/hotdog/elotto/internal/qr"
	"github.com/hotdog/elotto/internal/server"
	"github.com/hotdog/elotto/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"store", cfg.Store.Backend,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	store, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		if redis == nil || cfg.IsProduction() {
			return err
		}
		logger.Warn("redis unavailable, cache and rate limits degraded", "error", err)
	} else {
		logger.Info("redis connected", "pool_size", cfg.Redis.PoolSize)
	}

	if cfg.Cache.Enabled {
		store = docstore.NewCachedStore(store, redis.Client, docstore.CacheOptions{
			TTL:          cfg.Cache.TTL,
			FetchTimeout: cfg.Cache.FetchTimeout,
			Prefix:       cfg.Cache.Prefix,
			Logger:       logger,
		})
	}
	if cfg.Store.Tracing && telemetry != nil {
		store = docstore.NewTracedStore(store, telemetry.Tracer)
	}

	bus, busPing, err := openBus(cfg, logger)
	if err != nil {
		return err
	}

	notificationSvc := notification.NewService(store, logger)
	if err := notification.NewSubscriber(notificationSvc, logger).
		Start(bus, cfg.NATS.Queue); err != nil {
		return err
	}

	userRepo := user.NewRepository(store)
	writer := user.NewWriter(userRepo, user.WriterOptions{
		QueueSize:    cfg.Writer.QueueSize,
		WriteTimeout: cfg.Writer.WriteTimeout,
		Logger:       logger,
	})
	resolver := user.NewResolver(userRepo, user.ResolverOptions{
		Timeout:   cfg.Resolver.Timeout,
		Persister: writer,
		Logger:    logger,
	})
	userSvc := user.NewService(user.ServiceConfig{
		Resolver: resolver,
		Repo:     userRepo,
		Writer:   writer,
		Events:   bus,
		Inbox:    notificationSvc,
		Logger:   logger,
	})

	if err := ensureKeys(cfg, logger); err != nil {
		return err
	}

	revocations := auth.NewRedisRevocations(redis.Client)
	jwtManager, err := auth.NewJWTManager(cfg.JWT, revocations, logger)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized", "algorithm", "ES256")

	authSvc := auth.NewService(
		auth.NewDeviceRepository(store),
		jwtManager,
		userSvc,
		revocations,
		logger,
	)

	deps := []health.Dependency{
		{Name: "store", Checker: store},
		{Name: "redis", Checker: redis, Optional: true},
	}
	if busPing != nil {
		deps = append(deps, health.Dependency{Name: "nats", Checker: busPing, Optional: true})
	}
	healthHandler := health.NewHandler(deps...)

	var dbStats func() sql.DBStats
	if db != nil {
		dbStats = db.Stats
	}
	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Platform:   userSvc,
		StoreName:  cfg.Store.Backend,
		StorePing:  store.Ping,
		DBStats:    dbStats,
		RedisStats: redis.PoolStats,
		RedisPing:  redis.Ping,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(chimw.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			FailOpen: true,
			Logger:   logger,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders)
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.JWKSHandler())

	authenticator := middleware.Authenticator(jwtManager)
	organizerOnly := middleware.RequireOrganizer
	adminOnly := middleware.RequireAdmin

	userHandler := user.NewHandler(userSvc)

	router.Route("/v1", func(r chi.Router) {
		auth.NewHandler(authSvc).RegisterRoutes(r, authenticator)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterOrganizerRoutes(r, authenticator, organizerOnly)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		notification.NewHandler(notificationSvc).RegisterRoutes(r, authenticator)
		qr.NewHandler(qr.NewGenerator(cfg.QR.Size)).
			RegisterRoutes(r, authenticator, organizerOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := writer.Close(shutdownCtx); err != nil {
		logger.Error("user writer close error", "error", err)
	}

	if err := bus.Close(); err != nil {
		logger.Error("event bus close error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}

	logger.Info("application stopped")
	return nil
}

// openStore returns the configured document store. db is nil unless the
// backend is Postgres.
func openStore(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (docstore.Store, *core.Database, error) {
	if cfg.Store.Backend == config.StoreBackendMemory {
		store, err := docstore.NewMemoryStore()
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("using in-memory document store, data is lost on restart")
		return store, nil, nil
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	store := docstore.NewPostgresStore(db.DB)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// openBus connects to NATS when enabled and falls back to in-process
// delivery otherwise. The returned checker is nil for the local bus.
func openBus(cfg *config.Config, logger *slog.Logger) (events.Bus, health.Checker, error) {
	if !cfg.NATS.Enabled {
		logger.Info("nats disabled, delivering events in process")
		return events.NewLocalBus(logger), nil, nil
	}

	bus, err := events.NewNATSBus(cfg.NATS.URL, cfg.App.Name, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("nats connected", "url", cfg.NATS.URL)
	return bus, bus, nil
}

// ensureKeys creates a signing key pair for local development when none
// exists yet.
func ensureKeys(cfg *config.Config, logger *slog.Logger) error {
	_, err := os.Stat(cfg.JWT.PrivateKeyPath)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) || !cfg.IsDevelopment() {
		return err
	}

	logger.Warn("generating development signing keys",
		"private_key", cfg.JWT.PrivateKeyPath,
	)
	return auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
