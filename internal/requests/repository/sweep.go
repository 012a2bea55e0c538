package repository

import (
	"context"
	"fmt"
	"time"

	"legalsearch_backend/internal/requests/domain"

	"github.com/google/uuid"
)

// rerouteStatuses are the request states the reroute sweeps may act on, kept
// in step with domain.Status.Reroutable. LawyerRejected is included so a
// request whose synchronous re-entry after a rejection failed is still
// picked up by the next sweep.
var rerouteStatuses = []string{
	string(domain.StatusLawyer),
	string(domain.StatusLawyerRejected),
}

// RerouteCandidate is a request whose current rotation entry has been
// outstanding past a threshold, plus the order that entry holds.
type RerouteCandidate struct {
	RequestID    uuid.UUID
	CurrentOrder int
	AssignedAt   time.Time
}

// ReminderCandidate groups a solicitor's accepted-but-idle requests so the
// reminder sweep sends one notification per solicitor, not per request.
type ReminderCandidate struct {
	SolicitorID    uuid.UUID
	SolicitorEmail string
	SolicitorName  string
	RequestIDs     []uuid.UUID
	OldestSince    time.Time
}

// DueForReroute returns requests stuck in a reroutable state whose current
// rotation entry was stamped before the cutoff. Terminal and escalated
// requests never match.
func (r *Repository) DueForReroute(ctx context.Context, cutoff time.Time) ([]RerouteCandidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, e.entry_order, e.assigned_at
		FROM lsr_requests r
		JOIN LATERAL (
			SELECT entry_order, assigned_at
			FROM lsr_rotation_entries
			WHERE request_id = r.id AND assigned_at IS NOT NULL
			ORDER BY entry_order DESC
			LIMIT 1
		) e ON true
		WHERE r.status = ANY($2)
		  AND r.deleted_at IS NULL
		  AND e.assigned_at < $1
		ORDER BY e.assigned_at ASC`,
		cutoff, rerouteStatuses,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query reroute candidates: %w", err)
	}
	defer rows.Close()

	var items []RerouteCandidate
	for rows.Next() {
		var c RerouteCandidate
		if scanErr := rows.Scan(&c.RequestID, &c.CurrentOrder, &c.AssignedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan reroute candidate: %w", scanErr)
		}
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// AcceptedIdle returns, per solicitor, the accepted requests with no
// activity since the cutoff.
func (r *Repository) AcceptedIdle(ctx context.Context, cutoff time.Time) ([]ReminderCandidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.email, s.full_name,
		       array_agg(r.id::text ORDER BY r.updated_at ASC),
		       min(r.updated_at)
		FROM lsr_requests r
		JOIN lsr_solicitors s ON s.id = r.assigned_solicitor_id
		WHERE r.status = 'LawyerAccepted'
		  AND r.deleted_at IS NULL
		  AND r.updated_at < $1
		GROUP BY s.id, s.email, s.full_name`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder candidates: %w", err)
	}
	defer rows.Close()

	var items []ReminderCandidate
	for rows.Next() {
		var c ReminderCandidate
		var rawIDs []string
		if scanErr := rows.Scan(&c.SolicitorID, &c.SolicitorEmail, &c.SolicitorName, &rawIDs, &c.OldestSince); scanErr != nil {
			return nil, fmt.Errorf("failed to scan reminder candidate: %w", scanErr)
		}
		for _, raw := range rawIDs {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				return nil, fmt.Errorf("failed to parse request id %q: %w", raw, parseErr)
			}
			c.RequestIDs = append(c.RequestIDs, id)
		}
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
