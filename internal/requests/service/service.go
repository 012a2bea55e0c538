// Package service implements the request lifecycle: registration, the
// accept/reject/return/complete actions, and the views branch staff and
// solicitors get of their own requests.
package service

import (
	"context"
	"errors"
	"time"

	"legalsearch_backend/internal/events"
	"legalsearch_backend/internal/requests/repository"
	"legalsearch_backend/internal/requests/transport"
	"legalsearch_backend/internal/rotation"
	"legalsearch_backend/platform/apperr"
	"legalsearch_backend/platform/config"
	"legalsearch_backend/platform/logger"
	"legalsearch_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Viewer describes who is asking, extracted from the access token.
type Viewer struct {
	UserID   uuid.UUID
	BranchID *uuid.UUID
	Roles    []string
}

func (v Viewer) hasRole(role string) bool {
	for _, r := range v.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Service provides business logic for legal search requests.
type Service struct {
	repo  *repository.Repository
	orch  *rotation.Orchestrator
	sched *rotation.Scheduler
	bus   events.Bus
	cfg   config.EngineConfig
	log   *logger.Logger
	now   func() time.Time
}

// New creates a new requests service.
func New(repo *repository.Repository, orch *rotation.Orchestrator, sched *rotation.Scheduler, bus events.Bus, cfg config.EngineConfig, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		orch:  orch,
		sched: sched,
		bus:   bus,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// Create registers a new request and routes it to the first candidate in one
// synchronous flow. The registration commits before routing starts, so a
// routing failure leaves the request registered but unrouted.
func (s *Service) Create(ctx context.Context, viewer Viewer, in transport.CreateRequestRequest) (*transport.RequestResponse, error) {
	if viewer.BranchID == nil {
		return nil, apperr.Forbidden("a branch is required to register requests")
	}

	registeredAt := s.now().UTC()
	if in.RegisteredAt != nil {
		registeredAt = in.RegisteredAt.UTC()
	}

	req, err := s.repo.Create(ctx, repository.CreateParams{
		CaseNumber:           in.CaseNumber,
		BranchID:             *viewer.BranchID,
		OfficerID:            viewer.UserID,
		BusinessRegionID:     in.BusinessRegionID,
		RegistrationRegionID: in.RegistrationRegionID,
		RegisteredAt:         registeredAt,
	})
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.Create")
	}

	s.bus.Publish(ctx, events.RequestCreated{
		BaseEvent:  events.NewBaseEvent(),
		RequestID:  req.ID,
		BranchID:   req.BranchID,
		OfficerID:  req.OfficerID,
		CaseNumber: req.CaseNumber,
	})

	if err := s.orch.AssignRequest(ctx, req.ID); err != nil {
		// The request row is committed; the failure is operational, not
		// the officer's problem.
		s.log.Error("initial assignment failed", "requestId", req.ID, "error", err)
	}

	// Re-read so the response reflects the routed state.
	routed, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		routed = req
	}

	resp := transport.ToRequestResponse(routed)
	return &resp, nil
}

// GetByID returns one request if the viewer is allowed to see it.
func (s *Service) GetByID(ctx context.Context, viewer Viewer, id uuid.UUID) (*transport.RequestResponse, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.GetByID")
	}
	if !s.canView(viewer, req) {
		return nil, apperr.Forbidden("not allowed to view this request")
	}

	resp := transport.ToRequestResponse(req)
	return &resp, nil
}

// ListForBranch returns the viewer's branch requests, newest first.
func (s *Service) ListForBranch(ctx context.Context, viewer Viewer, q transport.ListQuery) (*transport.ListRequestsResponse, error) {
	if viewer.BranchID == nil {
		return nil, apperr.Forbidden("a branch is required to list branch requests")
	}

	limit, offset := clampPage(q)
	rows, err := s.repo.ListByBranch(ctx, *viewer.BranchID, limit, offset)
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.ListForBranch")
	}
	return &transport.ListRequestsResponse{Items: transport.ToRequestResponses(rows)}, nil
}

// ListForSolicitor returns the requests currently with the viewing solicitor.
func (s *Service) ListForSolicitor(ctx context.Context, viewer Viewer, q transport.ListQuery) (*transport.ListRequestsResponse, error) {
	limit, offset := clampPage(q)
	rows, err := s.repo.ListBySolicitor(ctx, viewer.UserID, limit, offset)
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.ListForSolicitor")
	}
	return &transport.ListRequestsResponse{Items: transport.ToRequestResponses(rows)}, nil
}

// Rotation returns the rotation history of a request.
func (s *Service) Rotation(ctx context.Context, viewer Viewer, id uuid.UUID) ([]transport.RotationEntryResponse, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.Rotation")
	}
	if !s.canView(viewer, req) {
		return nil, apperr.Forbidden("not allowed to view this request")
	}

	entries, err := s.repo.ListRotation(ctx, id)
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.Rotation")
	}
	return transport.ToRotationResponses(entries), nil
}

// Accept records the assigned solicitor's acceptance.
func (s *Service) Accept(ctx context.Context, solicitorID, requestID uuid.UUID) (*transport.RequestResponse, error) {
	req, err := s.repo.AcceptAssignment(ctx, requestID, solicitorID, s.now().UTC())
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.Accept")
	}

	s.bus.Publish(ctx, events.SolicitorAccepted{
		BaseEvent:   events.NewBaseEvent(),
		RequestID:   req.ID,
		BranchID:    req.BranchID,
		OfficerID:   req.OfficerID,
		SolicitorID: solicitorID,
		CaseNumber:  req.CaseNumber,
	})

	resp := transport.ToRequestResponse(req)
	return &resp, nil
}

// Reject records the rejection and immediately hands the request to the next
// candidate. The rejection commits first; the advance is a separate step so
// a routing hiccup never undoes the solicitor's answer.
func (s *Service) Reject(ctx context.Context, solicitorID, requestID uuid.UUID, in transport.RejectRequest) (*transport.RequestResponse, error) {
	req, rejectedOrder, err := s.repo.RejectAssignment(ctx, requestID, solicitorID, s.now().UTC())
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.Reject")
	}

	s.bus.Publish(ctx, events.SolicitorRejected{
		BaseEvent:     events.NewBaseEvent(),
		RequestID:     req.ID,
		BranchID:      req.BranchID,
		OfficerID:     req.OfficerID,
		SolicitorID:   solicitorID,
		CaseNumber:    req.CaseNumber,
		RotationOrder: rejectedOrder,
		Reason:        sanitize.Text(in.Reason),
	})

	if err := s.sched.AdvanceToNext(ctx, requestID, rejectedOrder); err != nil {
		s.log.Error("advance after rejection failed", "requestId", requestID, "error", err)
	}

	routed, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		routed = req
	}

	resp := transport.ToRequestResponse(routed)
	return &resp, nil
}

// Return sends the request back to the originating officer for more
// information.
func (s *Service) Return(ctx context.Context, solicitorID, requestID uuid.UUID, in transport.ReturnRequest) (*transport.RequestResponse, error) {
	req, err := s.repo.ReturnToOriginator(ctx, requestID, solicitorID, s.now().UTC())
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.Return")
	}

	s.bus.Publish(ctx, events.RequestReturned{
		BaseEvent:   events.NewBaseEvent(),
		RequestID:   req.ID,
		BranchID:    req.BranchID,
		OfficerID:   req.OfficerID,
		SolicitorID: solicitorID,
		CaseNumber:  req.CaseNumber,
		Remarks:     sanitize.Text(in.Remarks),
	})

	resp := transport.ToRequestResponse(req)
	return &resp, nil
}

// Resubmit sends a Returned request back to its solicitor once the branch
// has supplied the requested information.
func (s *Service) Resubmit(ctx context.Context, viewer Viewer, id uuid.UUID) (*transport.RequestResponse, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.Resubmit")
	}
	if viewer.BranchID == nil || *viewer.BranchID != req.BranchID {
		return nil, apperr.Forbidden("not allowed to resubmit this request")
	}

	updated, entryOrder, err := s.repo.Resubmit(ctx, id, s.now().UTC())
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.Resubmit")
	}

	if err := s.sched.NotifyResubmitted(ctx, updated, entryOrder); err != nil {
		s.log.Error("resubmission notification failed", "requestId", id, "error", err)
	}

	resp := transport.ToRequestResponse(updated)
	return &resp, nil
}

// Complete records the verification report and closes the request.
func (s *Service) Complete(ctx context.Context, solicitorID, requestID uuid.UUID, in transport.CompleteRequest) (*transport.RequestResponse, error) {
	req, err := s.repo.Complete(ctx, requestID, solicitorID, in.ReportRef, s.now().UTC())
	if err != nil {
		return nil, s.mapRepoErr(err, "requests.Complete")
	}

	s.bus.Publish(ctx, events.RequestCompleted{
		BaseEvent:   events.NewBaseEvent(),
		RequestID:   req.ID,
		BranchID:    req.BranchID,
		OfficerID:   req.OfficerID,
		SolicitorID: solicitorID,
		CaseNumber:  req.CaseNumber,
		ReportRef:   in.ReportRef,
	})

	resp := transport.ToRequestResponse(req)
	return &resp, nil
}

// Delete soft-marks a request. Only its own branch can remove it.
func (s *Service) Delete(ctx context.Context, viewer Viewer, id uuid.UUID) error {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.mapRepoErr(err, "requests.Delete")
	}
	if viewer.BranchID == nil || *viewer.BranchID != req.BranchID {
		return apperr.Forbidden("not allowed to delete this request")
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return s.mapRepoErr(err, "requests.Delete")
	}
	return nil
}

func (s *Service) canView(viewer Viewer, req repository.Request) bool {
	if viewer.BranchID != nil && *viewer.BranchID == req.BranchID {
		return true
	}
	if req.AssignedSolicitorID != nil && *req.AssignedSolicitorID == viewer.UserID {
		return true
	}
	return viewer.hasRole(s.cfg.GetFallbackRole())
}

func (s *Service) mapRepoErr(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("request not found").WithOp(op)
	case errors.Is(err, repository.ErrNotAssignee):
		return apperr.Forbidden("request is not assigned to you").WithOp(op)
	case errors.Is(err, repository.ErrTerminalStatus):
		return apperr.Conflict("request is already closed").WithOp(op)
	case errors.Is(err, repository.ErrInvalidTransition):
		return apperr.Conflict("action is not valid in the current status").WithOp(op)
	case errors.Is(err, repository.ErrStaleOrder):
		return apperr.Conflict("rotation has already moved on").WithOp(op)
	case errors.Is(err, repository.ErrDuplicateCase):
		return apperr.Conflict("case number already registered").WithOp(op)
	default:
		s.log.DatabaseError(op, err)
		return apperr.Wrap(apperr.KindInternal, "internal error", err).WithOp(op)
	}
}

func clampPage(q transport.ListQuery) (int, int) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
