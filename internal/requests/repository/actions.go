package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"legalsearch_backend/internal/requests/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Solicitor actions. Each verifies that the acting solicitor is the current
// assignee and applies one state-machine transition under the request row
// lock, so an action cannot race a sweep advancing the same rotation.

// AcceptAssignment marks the current rotation entry accepted and moves the
// request to LawyerAccepted.
func (r *Repository) AcceptAssignment(ctx context.Context, requestID, solicitorID uuid.UUID, now time.Time) (Request, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := lockAssigned(ctx, tx, requestID, solicitorID)
	if err != nil {
		return Request{}, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE lsr_rotation_entries SET accepted = true
		WHERE id = (
			SELECT id FROM lsr_rotation_entries
			WHERE request_id = $1 AND solicitor_id = $2 AND assigned_at IS NOT NULL
			ORDER BY entry_order DESC
			LIMIT 1
		)`,
		requestID, solicitorID,
	)
	if err != nil {
		return Request{}, fmt.Errorf("failed to mark rotation entry accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Request{}, ErrNotAssignee
	}

	updated, err := updateStatusLocked(ctx, tx, req, domain.StatusLawyerAccepted, &solicitorID, now)
	if err != nil {
		return Request{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}
	return updated, nil
}

// RejectAssignment moves the request to LawyerRejected and reports the
// rejected entry's order so the caller can re-enter the rotation there.
func (r *Repository) RejectAssignment(ctx context.Context, requestID, solicitorID uuid.UUID, now time.Time) (Request, int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := lockAssigned(ctx, tx, requestID, solicitorID)
	if err != nil {
		return Request{}, 0, err
	}

	var currentOrder int
	err = tx.QueryRow(ctx, `
		SELECT entry_order FROM lsr_rotation_entries
		WHERE request_id = $1 AND solicitor_id = $2 AND assigned_at IS NOT NULL
		ORDER BY entry_order DESC
		LIMIT 1`,
		requestID, solicitorID,
	).Scan(&currentOrder)
	if err != nil {
		return Request{}, 0, fmt.Errorf("failed to read rejected entry order: %w", err)
	}

	updated, err := updateStatusLocked(ctx, tx, req, domain.StatusLawyerRejected, &solicitorID, now)
	if err != nil {
		return Request{}, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, 0, err
	}
	return updated, currentOrder, nil
}

// ReturnToOriginator moves the request to Returned so the branch officer can
// supply the missing information. Allowed while pending or accepted.
func (r *Repository) ReturnToOriginator(ctx context.Context, requestID, solicitorID uuid.UUID, now time.Time) (Request, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := lockAssigned(ctx, tx, requestID, solicitorID)
	if err != nil {
		return Request{}, err
	}

	updated, err := updateStatusLocked(ctx, tx, req, domain.StatusReturned, &solicitorID, now)
	if err != nil {
		return Request{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}
	return updated, nil
}

// Complete records the submitted report reference and closes the request.
func (r *Repository) Complete(ctx context.Context, requestID, solicitorID uuid.UUID, reportRef string, now time.Time) (Request, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := lockAssigned(ctx, tx, requestID, solicitorID)
	if err != nil {
		return Request{}, err
	}

	updated, err := updateStatusLocked(ctx, tx, req, domain.StatusCompleted, &solicitorID, now)
	if err != nil {
		return Request{}, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE lsr_requests SET report_ref = $2 WHERE id = $1`,
		requestID, reportRef,
	); err != nil {
		return Request{}, fmt.Errorf("failed to record report reference: %w", err)
	}
	updated.ReportRef = &reportRef

	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}
	return updated, nil
}

// Resubmit re-enters a Returned request with its current solicitor after the
// originating branch supplies the requested information. The outstanding
// rotation entry is re-stamped so the inactivity clock restarts, and the
// entry's order is reported for the resulting notification.
func (r *Repository) Resubmit(ctx context.Context, requestID uuid.UUID, now time.Time) (Request, int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return Request{}, 0, err
	}
	if req.Status.IsTerminal() {
		return Request{}, 0, ErrTerminalStatus
	}
	if req.Status != domain.StatusReturned {
		return Request{}, 0, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, domain.StatusLawyer)
	}
	if req.AssignedSolicitorID == nil {
		return Request{}, 0, ErrNotAssignee
	}
	solicitorID := *req.AssignedSolicitorID

	var entryOrder int
	err = tx.QueryRow(ctx, `
		UPDATE lsr_rotation_entries SET assigned_at = $3
		WHERE id = (
			SELECT id FROM lsr_rotation_entries
			WHERE request_id = $1 AND solicitor_id = $2 AND assigned_at IS NOT NULL
			ORDER BY entry_order DESC
			LIMIT 1
		)
		RETURNING entry_order`,
		requestID, solicitorID, now,
	).Scan(&entryOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, 0, ErrNotAssignee
		}
		return Request{}, 0, fmt.Errorf("failed to re-stamp rotation entry: %w", err)
	}

	updated, err := updateStatusLocked(ctx, tx, req, domain.StatusLawyer, &solicitorID, now)
	if err != nil {
		return Request{}, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, 0, err
	}
	return updated, entryOrder, nil
}

// lockAssigned locks the request row and verifies the acting solicitor is
// the current assignee.
func lockAssigned(ctx context.Context, tx pgx.Tx, requestID, solicitorID uuid.UUID) (Request, error) {
	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.Status.IsTerminal() {
		return Request{}, ErrTerminalStatus
	}
	if req.AssignedSolicitorID == nil || *req.AssignedSolicitorID != solicitorID {
		return Request{}, ErrNotAssignee
	}
	return req, nil
}
