package rotation

import (
	"context"
	"testing"
	"time"

	"legalsearch_backend/internal/directory"
	"legalsearch_backend/internal/requests/domain"
	"legalsearch_backend/internal/requests/repository"

	"github.com/google/uuid"
)

func solicitorPool(regionID uuid.UUID, n int) []directory.Solicitor {
	pool := make([]directory.Solicitor, n)
	for i := range pool {
		pool[i] = directory.Solicitor{
			ID:       uuid.New(),
			FullName: "Solicitor",
			Email:    "solicitor@example.com",
			RegionID: regionID,
			Active:   true,
		}
	}
	return pool
}

func newTestOrchestrator(store *fakeStore, dir *fakeDirectory, notifier *fakeNotifier) *Orchestrator {
	log := testLogger()
	sched := NewScheduler(store, dir, notifier, nil, defaultEngineConfig(), log)
	return NewOrchestrator(store, dir, sched, log)
}

func TestAssignRequestSeedsFullRegionPool(t *testing.T) {
	req := testRequest(domain.StatusInitiated)
	pool := solicitorPool(req.RegistrationRegionID, 3)

	var seeded []uuid.UUID
	store := &fakeStore{
		getByID: func(ctx context.Context, id uuid.UUID) (repository.Request, error) {
			return req, nil
		},
		seedRotation: func(ctx context.Context, requestID uuid.UUID, solicitorIDs []uuid.UUID, now time.Time) (repository.Advance, error) {
			seeded = solicitorIDs
			routed := req
			routed.Status = domain.StatusLawyer
			return repository.Advance{
				Request: routed,
				Entry:   repository.RotationEntry{RequestID: req.ID, SolicitorID: solicitorIDs[0], Order: 1},
			}, nil
		},
	}
	dir := &fakeDirectory{
		solicitorsInRegion: func(ctx context.Context, regionID uuid.UUID) ([]directory.Solicitor, error) {
			if regionID != req.RegistrationRegionID {
				t.Fatalf("queried region %s, want registration region %s", regionID, req.RegistrationRegionID)
			}
			return pool, nil
		},
	}
	notifier := &fakeNotifier{}

	orch := newTestOrchestrator(store, dir, notifier)
	if err := orch.AssignRequest(context.Background(), req.ID); err != nil {
		t.Fatalf("AssignRequest() error = %v", err)
	}

	if len(seeded) != len(pool) {
		t.Fatalf("seeded %d entries, want %d", len(seeded), len(pool))
	}
	want := make(map[uuid.UUID]bool, len(pool))
	for _, s := range pool {
		want[s.ID] = true
	}
	for _, id := range seeded {
		if !want[id] {
			t.Fatalf("seeded unknown solicitor %s", id)
		}
		delete(want, id)
	}

	if len(notifier.users) != 1 {
		t.Fatalf("got %d user notifications, want 1", len(notifier.users))
	}
	if notifier.users[0].recipientID != seeded[0] {
		t.Errorf("notified %s, want first entry %s", notifier.users[0].recipientID, seeded[0])
	}
}

func TestAssignRequestBroadensToParentRegion(t *testing.T) {
	req := testRequest(domain.StatusInitiated)
	parentRegion := uuid.New()
	pool := solicitorPool(parentRegion, 2)

	var seeded []uuid.UUID
	store := &fakeStore{
		getByID: func(ctx context.Context, id uuid.UUID) (repository.Request, error) {
			return req, nil
		},
		seedRotation: func(ctx context.Context, requestID uuid.UUID, solicitorIDs []uuid.UUID, now time.Time) (repository.Advance, error) {
			seeded = solicitorIDs
			return repository.Advance{
				Request: req,
				Entry:   repository.RotationEntry{RequestID: req.ID, SolicitorID: solicitorIDs[0], Order: 1},
			}, nil
		},
	}
	var treeQueried uuid.UUID
	dir := &fakeDirectory{
		solicitorsInRegion: func(ctx context.Context, regionID uuid.UUID) ([]directory.Solicitor, error) {
			return nil, nil
		},
		parentRegionOf: func(ctx context.Context, regionID uuid.UUID) (uuid.UUID, error) {
			return parentRegion, nil
		},
		solicitorsInRegionTree: func(ctx context.Context, regionID uuid.UUID) ([]directory.Solicitor, error) {
			treeQueried = regionID
			return pool, nil
		},
	}
	notifier := &fakeNotifier{}

	orch := newTestOrchestrator(store, dir, notifier)
	if err := orch.AssignRequest(context.Background(), req.ID); err != nil {
		t.Fatalf("AssignRequest() error = %v", err)
	}

	if treeQueried != parentRegion {
		t.Errorf("broadened to region %s, want parent %s", treeQueried, parentRegion)
	}
	if len(seeded) != len(pool) {
		t.Fatalf("seeded %d entries, want %d", len(seeded), len(pool))
	}
}

func TestAssignRequestWithoutCandidatesEscalates(t *testing.T) {
	req := testRequest(domain.StatusInitiated)
	unassigned := req
	unassigned.Status = domain.StatusUnAssigned

	seedCalled := false
	var claimedAfter = -1
	store := &fakeStore{
		getByID: func(ctx context.Context, id uuid.UUID) (repository.Request, error) {
			return req, nil
		},
		seedRotation: func(ctx context.Context, requestID uuid.UUID, solicitorIDs []uuid.UUID, now time.Time) (repository.Advance, error) {
			seedCalled = true
			return repository.Advance{}, nil
		},
		claimNextEntry: func(ctx context.Context, requestID uuid.UUID, afterOrder int, now time.Time) (repository.Advance, error) {
			claimedAfter = afterOrder
			return repository.Advance{Request: unassigned, Exhausted: true}, nil
		},
	}
	dir := &fakeDirectory{
		solicitorsInRegion: func(ctx context.Context, regionID uuid.UUID) ([]directory.Solicitor, error) {
			return nil, nil
		},
		parentRegionOf: func(ctx context.Context, regionID uuid.UUID) (uuid.UUID, error) {
			return uuid.Nil, directory.ErrNoParentRegion
		},
	}
	notifier := &fakeNotifier{}

	orch := newTestOrchestrator(store, dir, notifier)
	if err := orch.AssignRequest(context.Background(), req.ID); err != nil {
		t.Fatalf("AssignRequest() error = %v", err)
	}

	if seedCalled {
		t.Fatal("rotation seeded despite empty pool")
	}
	if claimedAfter != 0 {
		t.Fatalf("claimed after order %d, want 0", claimedAfter)
	}
	if len(notifier.roles) != 1 {
		t.Fatalf("got %d role notifications, want 1", len(notifier.roles))
	}
	if notifier.roles[0].role != "legal_services" {
		t.Errorf("escalated to role %q, want legal_services", notifier.roles[0].role)
	}
	if len(notifier.users) != 0 {
		t.Errorf("got %d user notifications, want 0", len(notifier.users))
	}
}

func TestAssignRequestMissingRequestIsNoOp(t *testing.T) {
	store := &fakeStore{
		getByID: func(ctx context.Context, id uuid.UUID) (repository.Request, error) {
			return repository.Request{}, repository.ErrNotFound
		},
	}
	notifier := &fakeNotifier{}

	orch := newTestOrchestrator(store, &fakeDirectory{}, notifier)
	if err := orch.AssignRequest(context.Background(), uuid.New()); err != nil {
		t.Fatalf("AssignRequest() error = %v, want nil", err)
	}
	if len(notifier.users) != 0 || len(notifier.roles) != 0 {
		t.Fatalf("no notifications expected, got %d user / %d role", len(notifier.users), len(notifier.roles))
	}
}
