package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legalsearch_backend/internal/directory"
	"legalsearch_backend/internal/events"
	apphttp "legalsearch_backend/internal/http"
	"legalsearch_backend/internal/http/router"
	"legalsearch_backend/internal/notification"
	"legalsearch_backend/internal/notification/outbox"
	"legalsearch_backend/internal/notification/sse"
	"legalsearch_backend/internal/requests"
	requestsrepo "legalsearch_backend/internal/requests/repository"
	"legalsearch_backend/internal/rotation"
	"legalsearch_backend/platform/config"
	"legalsearch_backend/platform/db"
	"legalsearch_backend/platform/logger"
	"legalsearch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events and serves the
	// in-app feed plus the SSE stream.
	notificationModule := notification.New(pool, cfg, log)
	notificationModule.SetSSE(sse.New())
	notificationModule.SetOutbox(outbox.New(pool))
	notificationModule.RegisterHandlers(eventBus)

	directoryModule := directory.NewModule(pool)

	// The rotation engine is built against the requests repository and the
	// directory; the requests module receives it afterwards so request
	// registration can seed and advance rotations synchronously.
	engineStore := requestsrepo.New(pool)
	sched := rotation.NewScheduler(engineStore, directoryModule.Repository(), notificationModule, eventBus, cfg, log)
	orch := rotation.NewOrchestrator(engineStore, directoryModule.Repository(), sched, log)

	requestsModule := requests.NewModule(pool, orch, sched, eventBus, cfg, log, val)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			requestsModule,
			directoryModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
