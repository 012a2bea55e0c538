package rotation

import (
	"context"
	"sync"
	"time"

	"legalsearch_backend/internal/directory"
	"legalsearch_backend/internal/notification"
	"legalsearch_backend/internal/requests/repository"
	"legalsearch_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	getByID        func(ctx context.Context, id uuid.UUID) (repository.Request, error)
	seedRotation   func(ctx context.Context, requestID uuid.UUID, solicitorIDs []uuid.UUID, now time.Time) (repository.Advance, error)
	claimNextEntry func(ctx context.Context, requestID uuid.UUID, afterOrder int, now time.Time) (repository.Advance, error)
	dueForReroute  func(ctx context.Context, cutoff time.Time) ([]repository.RerouteCandidate, error)
	acceptedIdle   func(ctx context.Context, cutoff time.Time) ([]repository.ReminderCandidate, error)
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (repository.Request, error) {
	return f.getByID(ctx, id)
}

func (f *fakeStore) SeedRotation(ctx context.Context, requestID uuid.UUID, solicitorIDs []uuid.UUID, now time.Time) (repository.Advance, error) {
	return f.seedRotation(ctx, requestID, solicitorIDs, now)
}

func (f *fakeStore) ClaimNextEntry(ctx context.Context, requestID uuid.UUID, afterOrder int, now time.Time) (repository.Advance, error) {
	return f.claimNextEntry(ctx, requestID, afterOrder, now)
}

func (f *fakeStore) DueForReroute(ctx context.Context, cutoff time.Time) ([]repository.RerouteCandidate, error) {
	return f.dueForReroute(ctx, cutoff)
}

func (f *fakeStore) AcceptedIdle(ctx context.Context, cutoff time.Time) ([]repository.ReminderCandidate, error) {
	return f.acceptedIdle(ctx, cutoff)
}

type fakeDirectory struct {
	solicitorsInRegion     func(ctx context.Context, regionID uuid.UUID) ([]directory.Solicitor, error)
	solicitorsInRegionTree func(ctx context.Context, regionID uuid.UUID) ([]directory.Solicitor, error)
	parentRegionOf         func(ctx context.Context, regionID uuid.UUID) (uuid.UUID, error)
	getSolicitor           func(ctx context.Context, id uuid.UUID) (directory.Solicitor, error)
}

func (f *fakeDirectory) SolicitorsInRegion(ctx context.Context, regionID uuid.UUID) ([]directory.Solicitor, error) {
	return f.solicitorsInRegion(ctx, regionID)
}

func (f *fakeDirectory) SolicitorsInRegionTree(ctx context.Context, regionID uuid.UUID) ([]directory.Solicitor, error) {
	return f.solicitorsInRegionTree(ctx, regionID)
}

func (f *fakeDirectory) ParentRegionOf(ctx context.Context, regionID uuid.UUID) (uuid.UUID, error) {
	return f.parentRegionOf(ctx, regionID)
}

func (f *fakeDirectory) GetSolicitor(ctx context.Context, id uuid.UUID) (directory.Solicitor, error) {
	if f.getSolicitor != nil {
		return f.getSolicitor(ctx, id)
	}
	return directory.Solicitor{ID: id, FullName: "Test Solicitor", Email: "solicitor@example.com"}, nil
}

type userNotification struct {
	recipientID uuid.UUID
	email       string
	msg         notification.Message
}

type roleNotification struct {
	role   string
	msg    notification.Message
	emails []string
}

// fakeNotifier records every dispatch; safe for concurrent callers.
type fakeNotifier struct {
	mu    sync.Mutex
	users []userNotification
	roles []roleNotification
	err   error
}

func (f *fakeNotifier) NotifyUser(ctx context.Context, recipientID uuid.UUID, email string, msg notification.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userNotification{recipientID: recipientID, email: email, msg: msg})
	return f.err
}

func (f *fakeNotifier) NotifyRole(ctx context.Context, role string, msg notification.Message, emails []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, roleNotification{role: role, msg: msg, emails: emails})
	return f.err
}

func (f *fakeNotifier) userCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type testEngineConfig struct {
	rotationInactivity  time.Duration
	reminderAfter       time.Duration
	slaElapsed          time.Duration
	reminderParallelism int
	fallbackRole        string
	fallbackEmails      []string
	branchRole          string
}

func (c testEngineConfig) GetRotationInactivity() time.Duration { return c.rotationInactivity }
func (c testEngineConfig) GetReminderAfter() time.Duration      { return c.reminderAfter }
func (c testEngineConfig) GetSLAElapsed() time.Duration         { return c.slaElapsed }
func (c testEngineConfig) GetReminderParallelism() int          { return c.reminderParallelism }
func (c testEngineConfig) GetFallbackRole() string              { return c.fallbackRole }
func (c testEngineConfig) GetFallbackEmails() []string          { return c.fallbackEmails }
func (c testEngineConfig) GetBranchRole() string                { return c.branchRole }

func defaultEngineConfig() testEngineConfig {
	return testEngineConfig{
		rotationInactivity:  20 * time.Minute,
		reminderAfter:       24 * time.Hour,
		slaElapsed:          72 * time.Hour,
		reminderParallelism: 4,
		fallbackRole:        "legal_services",
		fallbackEmails:      []string{"legal-team@example.com"},
		branchRole:          "branch_staff",
	}
}

func testLogger() *logger.Logger {
	return logger.New("development")
}
