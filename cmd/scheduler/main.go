package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legalsearch_backend/internal/directory"
	"legalsearch_backend/internal/email"
	"legalsearch_backend/internal/events"
	"legalsearch_backend/internal/notification"
	"legalsearch_backend/internal/notification/outbox"
	requestsrepo "legalsearch_backend/internal/requests/repository"
	"legalsearch_backend/internal/rotation"
	"legalsearch_backend/internal/scheduler"
	"legalsearch_backend/platform/config"
	"legalsearch_backend/platform/db"
	"legalsearch_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	// The notification module runs handler-side here: reminder sweep events
	// land in the outbox, mirror broadcasts go to the in-app feed. No SSE in
	// this process; there are no connected clients.
	notificationModule := notification.New(pool, cfg, log)
	notificationModule.SetOutbox(outbox.New(pool))
	notificationModule.RegisterHandlers(eventBus)

	engineStore := requestsrepo.New(pool)
	directoryRepo := directory.New(pool)
	sched := rotation.NewScheduler(engineStore, directoryRepo, notificationModule, eventBus, cfg, log)
	sweeper := rotation.NewSweeper(engineStore, sched, eventBus, cfg, log)

	sender := email.NewFromConfig(cfg)

	dispatcher, err := scheduler.NewOutboxDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()
	go scheduler.NewSweepEnqueuer(client, cfg, log).Run(ctx)

	worker, err := scheduler.NewWorker(cfg, pool, sweeper, sender, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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
