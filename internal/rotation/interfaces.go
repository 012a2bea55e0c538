// Package rotation implements the assignment-rotation-escalation engine:
// matching a request to a candidate pool, advancing the ordered rotation,
// and escalating when the pool is exhausted.
package rotation

import (
	"context"
	"time"

	"legalsearch_backend/internal/directory"
	"legalsearch_backend/internal/notification"
	"legalsearch_backend/internal/requests/repository"

	"github.com/google/uuid"
)

// Store is the data access interface the engine needs. This is a
// consumer-driven interface; the requests repository implements it.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Request, error)
	SeedRotation(ctx context.Context, requestID uuid.UUID, solicitorIDs []uuid.UUID, now time.Time) (repository.Advance, error)
	ClaimNextEntry(ctx context.Context, requestID uuid.UUID, afterOrder int, now time.Time) (repository.Advance, error)
	DueForReroute(ctx context.Context, cutoff time.Time) ([]repository.RerouteCandidate, error)
	AcceptedIdle(ctx context.Context, cutoff time.Time) ([]repository.ReminderCandidate, error)
}

// Directory resolves eligible solicitors and region fallbacks.
type Directory interface {
	SolicitorsInRegion(ctx context.Context, regionID uuid.UUID) ([]directory.Solicitor, error)
	SolicitorsInRegionTree(ctx context.Context, regionID uuid.UUID) ([]directory.Solicitor, error)
	ParentRegionOf(ctx context.Context, regionID uuid.UUID) (uuid.UUID, error)
	GetSolicitor(ctx context.Context, id uuid.UUID) (directory.Solicitor, error)
}

// Notifier is the dual-audience notification dispatcher contract.
type Notifier interface {
	NotifyUser(ctx context.Context, recipientID uuid.UUID, email string, msg notification.Message) error
	NotifyRole(ctx context.Context, role string, msg notification.Message, emails []string) error
}
