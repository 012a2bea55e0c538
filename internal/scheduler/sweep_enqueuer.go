package scheduler

import (
	"context"
	"time"

	"legalsearch_backend/platform/config"
	"legalsearch_backend/platform/logger"
)

const (
	defaultRerouteSweepInterval  = time.Hour
	defaultReminderSweepInterval = time.Minute
	defaultSLASweepInterval      = time.Hour
)

// SweepEnqueuer queues one run of each rotation sweep on its own cadence.
// The sweeps themselves execute on the worker; the enqueuer only keeps time.
type SweepEnqueuer struct {
	client           *Client
	log              *logger.Logger
	rerouteInterval  time.Duration
	reminderInterval time.Duration
	slaInterval      time.Duration
}

func NewSweepEnqueuer(client *Client, cfg config.SchedulerConfig, log *logger.Logger) *SweepEnqueuer {
	reroute := cfg.GetRerouteSweepInterval()
	if reroute <= 0 {
		reroute = defaultRerouteSweepInterval
	}
	reminder := cfg.GetReminderSweepInterval()
	if reminder <= 0 {
		reminder = defaultReminderSweepInterval
	}
	sla := cfg.GetSLASweepInterval()
	if sla <= 0 {
		sla = defaultSLASweepInterval
	}

	return &SweepEnqueuer{
		client:           client,
		log:              log,
		rerouteInterval:  reroute,
		reminderInterval: reminder,
		slaInterval:      sla,
	}
}

// Run blocks until the context is cancelled.
func (e *SweepEnqueuer) Run(ctx context.Context) {
	if e == nil || e.client == nil {
		return
	}

	rerouteTicker := time.NewTicker(e.rerouteInterval)
	defer rerouteTicker.Stop()
	reminderTicker := time.NewTicker(e.reminderInterval)
	defer reminderTicker.Stop()
	slaTicker := time.NewTicker(e.slaInterval)
	defer slaTicker.Stop()

	// Catch up immediately on start; a restart must not wait a full
	// interval before resuming overdue work.
	e.enqueue(ctx, TaskRerouteSweep)
	e.enqueue(ctx, TaskReminderSweep)
	e.enqueue(ctx, TaskSLASweep)

	for {
		select {
		case <-ctx.Done():
			return
		case <-rerouteTicker.C:
			e.enqueue(ctx, TaskRerouteSweep)
		case <-reminderTicker.C:
			e.enqueue(ctx, TaskReminderSweep)
		case <-slaTicker.C:
			e.enqueue(ctx, TaskSLASweep)
		}
	}
}

func (e *SweepEnqueuer) enqueue(ctx context.Context, taskType string) {
	if err := e.client.EnqueueSweep(ctx, taskType); err != nil {
		e.log.Warn("failed to enqueue sweep", "task", taskType, "error", err)
	}
}
