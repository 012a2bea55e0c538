package rotation

import (
	"context"
	"sync/atomic"
	"time"

	"legalsearch_backend/internal/events"
	"legalsearch_backend/platform/config"
	"legalsearch_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Sweeper holds the three periodic SLA sweeps. Each is idempotent: a sweep
// that finds nothing to do is a no-op, and a failure on one item never
// aborts the rest of the sweep.
type Sweeper struct {
	store Store
	sched *Scheduler
	bus   events.Bus
	cfg   config.EngineConfig
	log   *logger.Logger
	now   func() time.Time
}

// NewSweeper creates a new sweep service.
func NewSweeper(store Store, sched *Scheduler, bus events.Bus, cfg config.EngineConfig, log *logger.Logger) *Sweeper {
	return &Sweeper{
		store: store,
		sched: sched,
		bus:   bus,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// RerouteStale is the hourly sweep: requests whose current rotation entry
// has been outstanding past the inactivity threshold move to the next
// candidate.
func (s *Sweeper) RerouteStale(ctx context.Context) error {
	return s.reroute(ctx, "reroute_stale", s.cfg.GetRotationInactivity())
}

// RerouteSLAElapsed is the long-threshold sweep over the same advance
// operation as RerouteStale but a different population (72h in the
// reference policy).
func (s *Sweeper) RerouteSLAElapsed(ctx context.Context) error {
	return s.reroute(ctx, "reroute_sla_elapsed", s.cfg.GetSLAElapsed())
}

// reroute advances every request stuck past the threshold. Candidates are
// processed strictly sequentially: two sweeps must never mutate the same
// rotation row concurrently, and the stale-order guard in the claim makes
// an overlapping invocation a no-op per item.
func (s *Sweeper) reroute(ctx context.Context, name string, threshold time.Duration) error {
	cutoff := s.now().UTC().Add(-threshold)

	candidates, err := s.store.DueForReroute(ctx, cutoff)
	if err != nil {
		return err
	}

	failed := 0
	for _, c := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.sched.AdvanceToNext(ctx, c.RequestID, c.CurrentOrder); err != nil {
			failed++
			s.log.Error("sweep advance failed", "sweep", name, "requestId", c.RequestID, "error", err)
		}
	}

	s.log.SweepResult(name, len(candidates), failed)
	return nil
}

// RemindAccepted is the minutely sweep: solicitors holding accepted requests
// idle past the reminder threshold each get one batched reminder. Targets
// are independent solicitors, so the fan-out runs with bounded parallelism;
// no request is touched by more than one goroutine per invocation because
// the candidates are grouped per solicitor.
func (s *Sweeper) RemindAccepted(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.cfg.GetReminderAfter())

	candidates, err := s.store.AcceptedIdle(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		s.log.SweepResult("remind_accepted", 0, 0)
		return nil
	}

	parallelism := s.cfg.GetReminderParallelism()
	if parallelism < 1 {
		parallelism = 1
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for _, candidate := range candidates {
		g.Go(func() error {
			err := s.bus.PublishSync(gctx, events.SolicitorReminderDue{
				BaseEvent:      events.NewBaseEvent(),
				SolicitorID:    candidate.SolicitorID,
				SolicitorEmail: candidate.SolicitorEmail,
				RequestIDs:     candidate.RequestIDs,
				OldestSince:    candidate.OldestSince,
			})
			if err != nil {
				failed.Add(1)
				s.log.Error("reminder dispatch failed", "solicitorId", candidate.SolicitorID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.SweepResult("remind_accepted", len(candidates), int(failed.Load()))
	return nil
}
