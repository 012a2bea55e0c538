package rotation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"legalsearch_backend/internal/events"
	"legalsearch_backend/internal/requests/repository"

	"github.com/google/uuid"
)

func newTestSweeper(store *fakeStore, notifier *fakeNotifier, bus events.Bus, now time.Time) *Sweeper {
	log := testLogger()
	sched := NewScheduler(store, &fakeDirectory{}, notifier, nil, defaultEngineConfig(), log)
	sweeper := NewSweeper(store, sched, bus, defaultEngineConfig(), log)
	sweeper.now = func() time.Time { return now }
	return sweeper
}

func TestRerouteStaleAdvancesEachCandidate(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	first := repository.RerouteCandidate{RequestID: uuid.New(), CurrentOrder: 1}
	second := repository.RerouteCandidate{RequestID: uuid.New(), CurrentOrder: 2}

	var gotCutoff time.Time
	var claims []repository.RerouteCandidate
	store := &fakeStore{
		dueForReroute: func(ctx context.Context, cutoff time.Time) ([]repository.RerouteCandidate, error) {
			gotCutoff = cutoff
			return []repository.RerouteCandidate{first, second}, nil
		},
		claimNextEntry: func(ctx context.Context, requestID uuid.UUID, afterOrder int, claimNow time.Time) (repository.Advance, error) {
			claims = append(claims, repository.RerouteCandidate{RequestID: requestID, CurrentOrder: afterOrder})
			return repository.Advance{}, repository.ErrStaleOrder
		},
	}

	sweeper := newTestSweeper(store, &fakeNotifier{}, nil, now)
	if err := sweeper.RerouteStale(context.Background()); err != nil {
		t.Fatalf("RerouteStale() error = %v", err)
	}

	wantCutoff := now.Add(-20 * time.Minute)
	if !gotCutoff.Equal(wantCutoff) {
		t.Errorf("cutoff = %v, want %v", gotCutoff, wantCutoff)
	}
	if len(claims) != 2 {
		t.Fatalf("got %d claims, want 2", len(claims))
	}
	if claims[0].RequestID != first.RequestID || claims[0].CurrentOrder != 1 {
		t.Errorf("first claim = %+v, want request %s after order 1", claims[0], first.RequestID)
	}
	if claims[1].RequestID != second.RequestID || claims[1].CurrentOrder != 2 {
		t.Errorf("second claim = %+v, want request %s after order 2", claims[1], second.RequestID)
	}
}

func TestRerouteStaleContinuesAfterItemFailure(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	candidates := []repository.RerouteCandidate{
		{RequestID: uuid.New(), CurrentOrder: 1},
		{RequestID: uuid.New(), CurrentOrder: 1},
	}

	calls := 0
	store := &fakeStore{
		dueForReroute: func(ctx context.Context, cutoff time.Time) ([]repository.RerouteCandidate, error) {
			return candidates, nil
		},
		claimNextEntry: func(ctx context.Context, requestID uuid.UUID, afterOrder int, claimNow time.Time) (repository.Advance, error) {
			calls++
			if calls == 1 {
				return repository.Advance{}, errors.New("connection reset")
			}
			return repository.Advance{}, repository.ErrStaleOrder
		},
	}

	sweeper := newTestSweeper(store, &fakeNotifier{}, nil, now)
	if err := sweeper.RerouteStale(context.Background()); err != nil {
		t.Fatalf("RerouteStale() error = %v, want nil", err)
	}
	if calls != 2 {
		t.Fatalf("got %d claims, want 2", calls)
	}
}

func TestRerouteSLAElapsedUsesLongCutoff(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	var gotCutoff time.Time
	store := &fakeStore{
		dueForReroute: func(ctx context.Context, cutoff time.Time) ([]repository.RerouteCandidate, error) {
			gotCutoff = cutoff
			return nil, nil
		},
	}

	sweeper := newTestSweeper(store, &fakeNotifier{}, nil, now)
	if err := sweeper.RerouteSLAElapsed(context.Background()); err != nil {
		t.Fatalf("RerouteSLAElapsed() error = %v", err)
	}

	wantCutoff := now.Add(-72 * time.Hour)
	if !gotCutoff.Equal(wantCutoff) {
		t.Errorf("cutoff = %v, want %v", gotCutoff, wantCutoff)
	}
}

func TestRemindAcceptedPublishesOneEventPerSolicitor(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	candidates := []repository.ReminderCandidate{
		{
			SolicitorID:    uuid.New(),
			SolicitorEmail: "first@example.com",
			RequestIDs:     []uuid.UUID{uuid.New(), uuid.New()},
			OldestSince:    now.Add(-30 * time.Hour),
		},
		{
			SolicitorID:    uuid.New(),
			SolicitorEmail: "second@example.com",
			RequestIDs:     []uuid.UUID{uuid.New()},
			OldestSince:    now.Add(-26 * time.Hour),
		},
	}

	store := &fakeStore{
		acceptedIdle: func(ctx context.Context, cutoff time.Time) ([]repository.ReminderCandidate, error) {
			want := now.Add(-24 * time.Hour)
			if !cutoff.Equal(want) {
				t.Errorf("cutoff = %v, want %v", cutoff, want)
			}
			return candidates, nil
		},
	}

	var mu sync.Mutex
	published := make(map[uuid.UUID]events.SolicitorReminderDue)
	bus := events.NewInMemoryBus(testLogger())
	bus.Subscribe(events.SolicitorReminderDue{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		due, ok := event.(events.SolicitorReminderDue)
		if !ok {
			t.Errorf("unexpected event type %T", event)
			return nil
		}
		mu.Lock()
		published[due.SolicitorID] = due
		mu.Unlock()
		return nil
	}))

	sweeper := newTestSweeper(store, &fakeNotifier{}, bus, now)
	if err := sweeper.RemindAccepted(context.Background()); err != nil {
		t.Fatalf("RemindAccepted() error = %v", err)
	}

	if len(published) != len(candidates) {
		t.Fatalf("published %d reminder events, want %d", len(published), len(candidates))
	}
	for _, c := range candidates {
		due, ok := published[c.SolicitorID]
		if !ok {
			t.Fatalf("no reminder event for solicitor %s", c.SolicitorID)
		}
		if due.SolicitorEmail != c.SolicitorEmail {
			t.Errorf("email = %q, want %q", due.SolicitorEmail, c.SolicitorEmail)
		}
		if len(due.RequestIDs) != len(c.RequestIDs) {
			t.Errorf("got %d request ids, want %d", len(due.RequestIDs), len(c.RequestIDs))
		}
		if !due.OldestSince.Equal(c.OldestSince) {
			t.Errorf("oldestSince = %v, want %v", due.OldestSince, c.OldestSince)
		}
	}
}

func TestRemindAcceptedEmptyIsNoOp(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		acceptedIdle: func(ctx context.Context, cutoff time.Time) ([]repository.ReminderCandidate, error) {
			return nil, nil
		},
	}

	sweeper := newTestSweeper(store, &fakeNotifier{}, events.NewInMemoryBus(testLogger()), now)
	if err := sweeper.RemindAccepted(context.Background()); err != nil {
		t.Fatalf("RemindAccepted() error = %v", err)
	}
}
