package rotation

import (
	"context"
	"errors"
	"time"

	"legalsearch_backend/internal/events"
	"legalsearch_backend/internal/notification"
	"legalsearch_backend/internal/requests/repository"
	"legalsearch_backend/platform/config"
	"legalsearch_backend/platform/logger"

	"github.com/google/uuid"
)

// Scheduler decides the next candidate to receive a request, advances the
// rotation state, and triggers the resulting notifications.
type Scheduler struct {
	store    Store
	dir      Directory
	notifier Notifier
	bus      events.Bus
	cfg      config.EngineConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewScheduler creates a new rotation scheduler.
func NewScheduler(store Store, dir Directory, notifier Notifier, bus events.Bus, cfg config.EngineConfig, log *logger.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		dir:      dir,
		notifier: notifier,
		bus:      bus,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// AdvanceToNext hands the request to the rotation entry with the smallest
// order strictly greater than currentOrder; currentOrder 0 means the first
// entry. An exhausted rotation escalates to the fallback role, which is a
// normal outcome.
//
// The underlying claim is conditional on currentOrder still being the
// stamped high-water mark, so two callers racing on the same stale order
// apply exactly one advance; the loser sees the stale result and stops.
func (s *Scheduler) AdvanceToNext(ctx context.Context, requestID uuid.UUID, currentOrder int) error {
	adv, err := s.store.ClaimNextEntry(ctx, requestID, currentOrder, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// The request vanished between enqueue and processing; treat as
		// already handled.
		s.log.Info("advance skipped, request gone", "requestId", requestID)
		return nil
	case errors.Is(err, repository.ErrStaleOrder):
		s.log.Debug("advance skipped, rotation already moved", "requestId", requestID, "afterOrder", currentOrder)
		return nil
	case errors.Is(err, repository.ErrTerminalStatus):
		s.log.Debug("advance skipped, request terminal", "requestId", requestID)
		return nil
	case err != nil:
		return err
	}

	if adv.Exhausted {
		return s.escalate(ctx, adv.Request)
	}
	return s.notifyAssignment(ctx, adv)
}

// notifyAssignment tells the newly current solicitor about the request and
// lets the dispatcher mirror the routing to the originating branch. The
// advance is already committed; a delivery problem here is logged, never
// rolled back.
func (s *Scheduler) notifyAssignment(ctx context.Context, adv repository.Advance) error {
	req := adv.Request

	solicitorEmail := ""
	solicitorName := ""
	if sol, err := s.dir.GetSolicitor(ctx, adv.Entry.SolicitorID); err == nil {
		solicitorEmail = sol.Email
		solicitorName = sol.FullName
	} else {
		s.log.Warn("failed to resolve solicitor for notification", "solicitorId", adv.Entry.SolicitorID, "error", err)
	}

	msg := notification.Message{
		Title:    "New legal search request",
		Category: notification.CategoryAssignment,
		Body:     "A legal search request has been routed to you for verification. Case " + req.CaseNumber + ".",
		Metadata: requestSnapshot(req, map[string]any{
			"rotationOrder": adv.Entry.Order,
			"solicitorName": solicitorName,
		}),
		BranchID: req.BranchID,
	}

	if err := s.notifier.NotifyUser(ctx, adv.Entry.SolicitorID, solicitorEmail, msg); err != nil {
		s.log.Error("failed to notify assigned solicitor", "requestId", req.ID, "solicitorId", adv.Entry.SolicitorID, "error", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.RequestRouted{
			BaseEvent:     events.NewBaseEvent(),
			RequestID:     req.ID,
			BranchID:      req.BranchID,
			SolicitorID:   adv.Entry.SolicitorID,
			RotationOrder: adv.Entry.Order,
		})
	}

	return nil
}

// NotifyResubmitted tells the current assignee that the originator supplied
// the requested information and the request is pending with them again. The
// dispatch mirrors to the branch role like a fresh assignment.
func (s *Scheduler) NotifyResubmitted(ctx context.Context, req repository.Request, entryOrder int) error {
	if req.AssignedSolicitorID == nil {
		return nil
	}
	solicitorID := *req.AssignedSolicitorID

	solicitorEmail := ""
	solicitorName := ""
	if sol, err := s.dir.GetSolicitor(ctx, solicitorID); err == nil {
		solicitorEmail = sol.Email
		solicitorName = sol.FullName
	} else {
		s.log.Warn("failed to resolve solicitor for notification", "solicitorId", solicitorID, "error", err)
	}

	msg := notification.Message{
		Title:    "Request resubmitted",
		Category: notification.CategoryAssignment,
		Body:     "The requested information for legal search request " + req.CaseNumber + " has been supplied. The request is pending with you again.",
		Metadata: requestSnapshot(req, map[string]any{
			"rotationOrder": entryOrder,
			"solicitorName": solicitorName,
		}),
		BranchID: req.BranchID,
	}

	if err := s.notifier.NotifyUser(ctx, solicitorID, solicitorEmail, msg); err != nil {
		s.log.Error("failed to notify solicitor of resubmission", "requestId", req.ID, "solicitorId", solicitorID, "error", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.RequestRouted{
			BaseEvent:     events.NewBaseEvent(),
			RequestID:     req.ID,
			BranchID:      req.BranchID,
			SolicitorID:   solicitorID,
			RotationOrder: entryOrder,
		})
	}

	return nil
}

// escalate broadcasts an exhausted rotation to the fallback team.
func (s *Scheduler) escalate(ctx context.Context, req repository.Request) error {
	msg := notification.Message{
		Title:    "Legal search request unassigned",
		Category: notification.CategoryEscalation,
		Body:     "No solicitor is available for legal search request " + req.CaseNumber + ". Manual assignment is required.",
		Metadata: requestSnapshot(req, nil),
		BranchID: req.BranchID,
	}

	if err := s.notifier.NotifyRole(ctx, s.cfg.GetFallbackRole(), msg, s.cfg.GetFallbackEmails()); err != nil {
		s.log.Error("failed to broadcast escalation", "requestId", req.ID, "error", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.RotationExhausted{
			BaseEvent:  events.NewBaseEvent(),
			RequestID:  req.ID,
			BranchID:   req.BranchID,
			CaseNumber: req.CaseNumber,
		})
	}

	return nil
}

// requestSnapshot builds the structured request snapshot embedded in
// notification metadata.
func requestSnapshot(req repository.Request, extra map[string]any) map[string]any {
	snapshot := map[string]any{
		"requestId":    req.ID.String(),
		"caseNumber":   req.CaseNumber,
		"branchId":     req.BranchID.String(),
		"status":       string(req.Status),
		"registeredAt": req.RegisteredAt,
	}
	if req.AssignedSolicitorID != nil {
		snapshot["solicitorId"] = req.AssignedSolicitorID.String()
	}
	for k, v := range extra {
		snapshot[k] = v
	}
	return snapshot
}
