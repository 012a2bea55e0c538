package rotation

import (
	"context"
	"sync"
	"testing"
	"time"

	"legalsearch_backend/internal/notification"
	"legalsearch_backend/internal/requests/domain"
	"legalsearch_backend/internal/requests/repository"

	"github.com/google/uuid"
)

func testRequest(status domain.Status) repository.Request {
	return repository.Request{
		ID:                   uuid.New(),
		CaseNumber:           "LSR-2026-0042",
		BranchID:             uuid.New(),
		OfficerID:            uuid.New(),
		BusinessRegionID:     uuid.New(),
		RegistrationRegionID: uuid.New(),
		Status:               status,
		RegisteredAt:         time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestAdvanceToNextNotifiesClaimedSolicitor(t *testing.T) {
	req := testRequest(domain.StatusLawyer)
	solicitorID := uuid.New()

	var claimedAfter int
	store := &fakeStore{
		claimNextEntry: func(ctx context.Context, requestID uuid.UUID, afterOrder int, now time.Time) (repository.Advance, error) {
			claimedAfter = afterOrder
			return repository.Advance{
				Request: req,
				Entry:   repository.RotationEntry{RequestID: req.ID, SolicitorID: solicitorID, Order: afterOrder + 1},
			}, nil
		},
	}
	notifier := &fakeNotifier{}
	sched := NewScheduler(store, &fakeDirectory{}, notifier, nil, defaultEngineConfig(), testLogger())

	if err := sched.AdvanceToNext(context.Background(), req.ID, 2); err != nil {
		t.Fatalf("AdvanceToNext() error = %v", err)
	}

	if claimedAfter != 2 {
		t.Fatalf("claimed after order %d, want 2", claimedAfter)
	}
	if len(notifier.users) != 1 {
		t.Fatalf("got %d user notifications, want 1", len(notifier.users))
	}
	got := notifier.users[0]
	if got.recipientID != solicitorID {
		t.Errorf("notified %s, want %s", got.recipientID, solicitorID)
	}
	if got.msg.Category != notification.CategoryAssignment {
		t.Errorf("category = %q, want %q", got.msg.Category, notification.CategoryAssignment)
	}
	if got.msg.Metadata["rotationOrder"] != 3 {
		t.Errorf("metadata rotationOrder = %v, want 3", got.msg.Metadata["rotationOrder"])
	}
	if len(notifier.roles) != 0 {
		t.Errorf("got %d role notifications, want 0", len(notifier.roles))
	}
}

func TestNotifyResubmittedNotifiesCurrentAssignee(t *testing.T) {
	solicitorID := uuid.New()
	req := testRequest(domain.StatusLawyer)
	req.AssignedSolicitorID = &solicitorID

	notifier := &fakeNotifier{}
	sched := NewScheduler(&fakeStore{}, &fakeDirectory{}, notifier, nil, defaultEngineConfig(), testLogger())

	if err := sched.NotifyResubmitted(context.Background(), req, 2); err != nil {
		t.Fatalf("NotifyResubmitted() error = %v", err)
	}

	if len(notifier.users) != 1 {
		t.Fatalf("got %d user notifications, want 1", len(notifier.users))
	}
	got := notifier.users[0]
	if got.recipientID != solicitorID {
		t.Errorf("notified %s, want %s", got.recipientID, solicitorID)
	}
	if got.email != "solicitor@example.com" {
		t.Errorf("email = %q, want the resolved solicitor address", got.email)
	}
	if got.msg.Category != notification.CategoryAssignment {
		t.Errorf("category = %q, want %q", got.msg.Category, notification.CategoryAssignment)
	}
	if got.msg.Metadata["rotationOrder"] != 2 {
		t.Errorf("metadata rotationOrder = %v, want 2", got.msg.Metadata["rotationOrder"])
	}
	if got.msg.Metadata["solicitorName"] != "Test Solicitor" {
		t.Errorf("metadata solicitorName = %v, want Test Solicitor", got.msg.Metadata["solicitorName"])
	}
}

func TestNotifyResubmittedWithoutAssigneeIsNoOp(t *testing.T) {
	req := testRequest(domain.StatusLawyer)

	notifier := &fakeNotifier{}
	sched := NewScheduler(&fakeStore{}, &fakeDirectory{}, notifier, nil, defaultEngineConfig(), testLogger())

	if err := sched.NotifyResubmitted(context.Background(), req, 1); err != nil {
		t.Fatalf("NotifyResubmitted() error = %v", err)
	}
	if len(notifier.users) != 0 || len(notifier.roles) != 0 {
		t.Fatalf("got %d user and %d role notifications, want none", len(notifier.users), len(notifier.roles))
	}
}

func TestAdvanceToNextExhaustedEscalatesToFallbackRole(t *testing.T) {
	req := testRequest(domain.StatusUnAssigned)

	store := &fakeStore{
		claimNextEntry: func(ctx context.Context, requestID uuid.UUID, afterOrder int, now time.Time) (repository.Advance, error) {
			return repository.Advance{Request: req, Exhausted: true}, nil
		},
	}
	notifier := &fakeNotifier{}
	sched := NewScheduler(store, &fakeDirectory{}, notifier, nil, defaultEngineConfig(), testLogger())

	if err := sched.AdvanceToNext(context.Background(), req.ID, 3); err != nil {
		t.Fatalf("AdvanceToNext() error = %v", err)
	}

	if len(notifier.users) != 0 {
		t.Fatalf("got %d user notifications, want 0", len(notifier.users))
	}
	if len(notifier.roles) != 1 {
		t.Fatalf("got %d role notifications, want 1", len(notifier.roles))
	}
	if notifier.roles[0].role != "legal_services" {
		t.Errorf("escalated to role %q, want legal_services", notifier.roles[0].role)
	}
	if notifier.roles[0].msg.Category != notification.CategoryEscalation {
		t.Errorf("category = %q, want %q", notifier.roles[0].msg.Category, notification.CategoryEscalation)
	}
	if len(notifier.roles[0].emails) != 1 || notifier.roles[0].emails[0] != "legal-team@example.com" {
		t.Errorf("escalation emails = %v, want the configured fallback address", notifier.roles[0].emails)
	}
}

func TestAdvanceToNextSkipsBenignClaimFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"request gone", repository.ErrNotFound},
		{"rotation already moved", repository.ErrStaleOrder},
		{"request terminal", repository.ErrTerminalStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{
				claimNextEntry: func(ctx context.Context, requestID uuid.UUID, afterOrder int, now time.Time) (repository.Advance, error) {
					return repository.Advance{}, tc.err
				},
			}
			notifier := &fakeNotifier{}
			sched := NewScheduler(store, &fakeDirectory{}, notifier, nil, defaultEngineConfig(), testLogger())

			if err := sched.AdvanceToNext(context.Background(), uuid.New(), 1); err != nil {
				t.Fatalf("AdvanceToNext() error = %v, want nil", err)
			}
			if len(notifier.users) != 0 || len(notifier.roles) != 0 {
				t.Fatalf("no notifications expected, got %d user / %d role", len(notifier.users), len(notifier.roles))
			}
		})
	}
}

// Two sweeps racing on the same stale order must apply exactly one advance.
// The fake mirrors the repository's conditional claim: the first caller whose
// afterOrder matches the current high-water mark wins, every other caller
// observes a stale order.
func TestAdvanceToNextConcurrentCallersAdvanceOnce(t *testing.T) {
	req := testRequest(domain.StatusLawyer)
	solicitorID := uuid.New()

	var mu sync.Mutex
	currentOrder := 1
	store := &fakeStore{
		claimNextEntry: func(ctx context.Context, requestID uuid.UUID, afterOrder int, now time.Time) (repository.Advance, error) {
			mu.Lock()
			defer mu.Unlock()
			if afterOrder != currentOrder {
				return repository.Advance{}, repository.ErrStaleOrder
			}
			currentOrder++
			return repository.Advance{
				Request: req,
				Entry:   repository.RotationEntry{RequestID: req.ID, SolicitorID: solicitorID, Order: currentOrder},
			}, nil
		},
	}
	notifier := &fakeNotifier{}
	sched := NewScheduler(store, &fakeDirectory{}, notifier, nil, defaultEngineConfig(), testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sched.AdvanceToNext(context.Background(), req.ID, 1); err != nil {
				t.Errorf("AdvanceToNext() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := notifier.userCount(); got != 1 {
		t.Fatalf("got %d assignment notifications, want exactly 1", got)
	}
	if currentOrder != 2 {
		t.Fatalf("rotation advanced to order %d, want 2", currentOrder)
	}
}
