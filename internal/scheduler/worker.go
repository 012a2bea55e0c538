package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"legalsearch_backend/internal/email"
	"legalsearch_backend/internal/notification/outbox"
	"legalsearch_backend/internal/requests/repository"
	"legalsearch_backend/internal/rotation"
	"legalsearch_backend/platform/config"
	"legalsearch_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxEmailAttempts = 5

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sweeper *rotation.Sweeper
	outbox  *outbox.Repository
	repo    *repository.Repository
	sender  email.Sender
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, sweeper *rotation.Sweeper, sender email.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		sweeper: sweeper,
		outbox:  outbox.New(pool),
		repo:    repository.New(pool),
		sender:  sender,
		log:     log,
	}

	mux.HandleFunc(TaskRerouteSweep, w.handleRerouteSweep)
	mux.HandleFunc(TaskReminderSweep, w.handleReminderSweep)
	mux.HandleFunc(TaskSLASweep, w.handleSLASweep)
	mux.HandleFunc(TaskOutboxEmailDue, w.handleOutboxEmailDue)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleRerouteSweep(ctx context.Context, task *asynq.Task) error {
	return w.sweeper.RerouteStale(ctx)
}

func (w *Worker) handleReminderSweep(ctx context.Context, task *asynq.Task) error {
	return w.sweeper.RemindAccepted(ctx)
}

func (w *Worker) handleSLASweep(ctx context.Context, task *asynq.Task) error {
	return w.sweeper.RerouteSLAElapsed(ctx)
}

// handleOutboxEmailDue delivers one queued email. Retries go through the
// outbox, not asynq: a transient failure flips the row back to pending and
// the dispatcher requeues it on its next tick.
func (w *Worker) handleOutboxEmailDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOutboxEmailDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	rec, err := w.outbox.GetByID(ctx, outboxID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		return nil
	}

	if err := w.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	if sendErr := w.deliver(ctx, rec); sendErr != nil {
		msg := sendErr.Error()
		if rec.Attempts+1 >= maxEmailAttempts {
			w.log.Error("email delivery abandoned", "outboxId", rec.ID, "kind", rec.Kind, "error", sendErr)
			return w.outbox.MarkFailed(ctx, rec.ID, msg)
		}
		w.log.DeliveryError("email", sendErr, "outboxId", rec.ID, "kind", rec.Kind, "attempts", rec.Attempts+1)
		return w.outbox.MarkPending(ctx, rec.ID, &msg)
	}

	return w.outbox.MarkSucceeded(ctx, rec.ID)
}

func (w *Worker) deliver(ctx context.Context, rec outbox.Record) error {
	switch rec.Kind {
	case outbox.KindSolicitorReminder:
		return w.deliverReminder(ctx, rec)
	case outbox.KindEscalationAlert:
		return w.deliverEscalation(ctx, rec)
	default:
		w.log.Warn("unknown outbox kind, dropping", "outboxId", rec.ID, "kind", rec.Kind)
		return nil
	}
}

func (w *Worker) deliverReminder(ctx context.Context, rec outbox.Record) error {
	var payload ReminderEmailPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return fmt.Errorf("decode reminder payload: %w", err)
	}
	if payload.Email == "" {
		return nil
	}

	return w.sender.SendSolicitorReminderEmail(ctx, payload.Email, email.ReminderData{
		CaseNumbers: w.caseNumbers(ctx, payload.RequestIDs),
		OldestSince: payload.OldestSince,
	})
}

func (w *Worker) deliverEscalation(ctx context.Context, rec outbox.Record) error {
	var payload EscalationEmailPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return fmt.Errorf("decode escalation payload: %w", err)
	}

	caseNumber := ""
	if raw, ok := payload.Metadata["caseNumber"].(string); ok {
		caseNumber = raw
	}

	var firstErr error
	for _, recipient := range payload.Recipients {
		err := w.sender.SendEscalationAlertEmail(ctx, recipient, email.EscalationData{
			Title:      payload.Title,
			Message:    payload.Message,
			CaseNumber: caseNumber,
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// caseNumbers resolves request ids to their case numbers for the email body.
// A request that cannot be resolved falls back to its raw id so the reminder
// still lists it.
func (w *Worker) caseNumbers(ctx context.Context, requestIDs []string) []string {
	numbers := make([]string, 0, len(requestIDs))
	for _, raw := range requestIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		req, err := w.repo.GetByID(ctx, id)
		if err != nil {
			numbers = append(numbers, raw)
			continue
		}
		numbers = append(numbers, req.CaseNumber)
	}
	return numbers
}
