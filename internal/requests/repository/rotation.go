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

// RotationEntry is one (solicitor, order) pairing within a request's rotation.
// Orders are contiguous from 1 and are never rewritten, only appended to.
type RotationEntry struct {
	ID          uuid.UUID  `db:"id"`
	RequestID   uuid.UUID  `db:"request_id"`
	SolicitorID uuid.UUID  `db:"solicitor_id"`
	Order       int        `db:"entry_order"`
	AssignedAt  *time.Time `db:"assigned_at"`
	Accepted    bool       `db:"accepted"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Advance is the result of a rotation advance: the request as committed and,
// unless the rotation was exhausted, the entry that became current.
type Advance struct {
	Request   Request
	Entry     RotationEntry
	Exhausted bool
}

const entryColumns = `id, request_id, solicitor_id, entry_order, assigned_at, accepted, created_at`

func scanEntry(row pgx.Row) (RotationEntry, error) {
	var e RotationEntry
	err := row.Scan(&e.ID, &e.RequestID, &e.SolicitorID, &e.Order, &e.AssignedAt, &e.Accepted, &e.CreatedAt)
	return e, err
}

// ListRotation returns all rotation entries for a request in order.
func (r *Repository) ListRotation(ctx context.Context, requestID uuid.UUID) ([]RotationEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM lsr_rotation_entries WHERE request_id = $1 ORDER BY entry_order ASC`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rotation: %w", err)
	}
	defer rows.Close()

	var entries []RotationEntry
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan rotation entry: %w", scanErr)
		}
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

// SeedRotation appends a batch of rotation entries for the given solicitors
// (in the caller's order, normally a fresh shuffle) and advances to the first
// of them. The batch insert, the entry stamp and the request status change
// commit as a single transaction.
//
// The request must be in Initiated or UnAssigned state; re-seeding an
// escalated request continues the order sequence rather than restarting it.
func (r *Repository) SeedRotation(ctx context.Context, requestID uuid.UUID, solicitorIDs []uuid.UUID, now time.Time) (Advance, error) {
	if len(solicitorIDs) == 0 {
		return Advance{}, fmt.Errorf("solicitor pool is empty")
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Advance{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return Advance{}, err
	}
	if req.Status != domain.StatusInitiated && req.Status != domain.StatusUnAssigned {
		return Advance{}, fmt.Errorf("%w: cannot seed rotation from %s", ErrInvalidTransition, req.Status)
	}

	var base int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(entry_order), 0) FROM lsr_rotation_entries WHERE request_id = $1`,
		requestID,
	).Scan(&base)
	if err != nil {
		return Advance{}, fmt.Errorf("failed to read rotation high-water mark: %w", err)
	}

	batch := &pgx.Batch{}
	for i, solicitorID := range solicitorIDs {
		batch.Queue(
			`INSERT INTO lsr_rotation_entries (request_id, solicitor_id, entry_order) VALUES ($1, $2, $3)`,
			requestID, solicitorID, base+i+1,
		)
	}
	results := tx.SendBatch(ctx, batch)
	for range solicitorIDs {
		if _, execErr := results.Exec(); execErr != nil {
			_ = results.Close()
			return Advance{}, fmt.Errorf("failed to insert rotation batch: %w", execErr)
		}
	}
	if err := results.Close(); err != nil {
		return Advance{}, err
	}

	if req.Status == domain.StatusUnAssigned {
		// An external re-seed reopens an escalated request; sweeps themselves
		// never do this.
		req.Status = domain.StatusInitiated
	}

	adv, err := advanceLocked(ctx, tx, req, base, now)
	if err != nil {
		return Advance{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Advance{}, err
	}
	return adv, nil
}

// ClaimNextEntry selects the rotation entry with the smallest order strictly
// greater than afterOrder, stamps it, updates the request to Lawyer and
// points it at the entry's solicitor — all in one transaction holding a row
// lock on the request. When no such entry exists the request is marked
// UnAssigned and Exhausted is returned; that is a designed outcome, not an
// error.
//
// The stale-order guard makes concurrent invocations apply exactly one
// advance: a caller holding an afterOrder older than the stamped high-water
// mark gets ErrStaleOrder and must re-read before retrying.
func (r *Repository) ClaimNextEntry(ctx context.Context, requestID uuid.UUID, afterOrder int, now time.Time) (Advance, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Advance{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return Advance{}, err
	}
	if req.Status.IsTerminal() {
		return Advance{}, ErrTerminalStatus
	}

	adv, err := advanceLocked(ctx, tx, req, afterOrder, now)
	if err != nil {
		return Advance{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Advance{}, err
	}
	return adv, nil
}

// lockRequest reads the request row under FOR UPDATE so no concurrent sweep
// can advance the same rotation until the transaction resolves.
func lockRequest(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) (Request, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM lsr_requests WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
		requestID,
	)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, fmt.Errorf("failed to lock request: %w", err)
	}
	return req, nil
}

// advanceLocked performs the advance against an already-locked request row.
func advanceLocked(ctx context.Context, tx pgx.Tx, req Request, afterOrder int, now time.Time) (Advance, error) {
	var stampedHigh int
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(entry_order), 0) FROM lsr_rotation_entries WHERE request_id = $1 AND assigned_at IS NOT NULL`,
		req.ID,
	).Scan(&stampedHigh)
	if err != nil {
		return Advance{}, fmt.Errorf("failed to read current rotation order: %w", err)
	}
	if stampedHigh > afterOrder {
		return Advance{}, ErrStaleOrder
	}

	row := tx.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM lsr_rotation_entries
		 WHERE request_id = $1 AND entry_order > $2
		 ORDER BY entry_order ASC
		 LIMIT 1`,
		req.ID, afterOrder,
	)
	entry, err := scanEntry(row)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Advance{}, fmt.Errorf("failed to select next rotation entry: %w", err)
		}
		// Rotation exhausted: escalate.
		updated, markErr := updateStatusLocked(ctx, tx, req, domain.StatusUnAssigned, nil, now)
		if markErr != nil {
			return Advance{}, markErr
		}
		return Advance{Request: updated, Exhausted: true}, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE lsr_rotation_entries SET assigned_at = $2 WHERE id = $1`,
		entry.ID, now,
	); err != nil {
		return Advance{}, fmt.Errorf("failed to stamp rotation entry: %w", err)
	}
	entry.AssignedAt = &now

	updated, err := updateStatusLocked(ctx, tx, req, domain.StatusLawyer, &entry.SolicitorID, now)
	if err != nil {
		return Advance{}, err
	}

	return Advance{Request: updated, Entry: entry}, nil
}

// updateStatusLocked validates and applies a status transition on a locked
// request row.
func updateStatusLocked(ctx context.Context, tx pgx.Tx, req Request, next domain.Status, solicitorID *uuid.UUID, now time.Time) (Request, error) {
	if !req.Status.CanTransition(next) {
		return Request{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, next)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE lsr_requests SET status = $2, assigned_solicitor_id = $3, updated_at = $4 WHERE id = $1`,
		req.ID, string(next), solicitorID, now,
	); err != nil {
		return Request{}, fmt.Errorf("failed to update request status: %w", err)
	}

	req.Status = next
	req.AssignedSolicitorID = solicitorID
	req.UpdatedAt = now
	return req, nil
}
