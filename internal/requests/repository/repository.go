// Package repository provides database operations for legal-search requests
// and their solicitor rotations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"legalsearch_backend/internal/requests/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors callers branch on. Everything else is wrapped.
var (
	// ErrNotFound means the request does not exist (or is soft-deleted).
	ErrNotFound = errors.New("request not found")
	// ErrStaleOrder means another caller already advanced the rotation past
	// the order the caller believed was current.
	ErrStaleOrder = errors.New("rotation order is stale")
	// ErrTerminalStatus means the request is Completed or UnAssigned and the
	// engine must not touch it.
	ErrTerminalStatus = errors.New("request is in a terminal status")
	// ErrInvalidTransition means the requested status change violates the
	// state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotAssignee means the acting solicitor is not the currently
	// assigned one.
	ErrNotAssignee = errors.New("solicitor is not the current assignee")
	// ErrDuplicateCase means a request with the same case number already
	// exists.
	ErrDuplicateCase = errors.New("case number already registered")
)

// Request is the database model for a legal-search verification request.
type Request struct {
	ID                   uuid.UUID     `db:"id"`
	CaseNumber           string        `db:"case_number"`
	BranchID             uuid.UUID     `db:"branch_id"`
	OfficerID            uuid.UUID     `db:"officer_id"`
	BusinessRegionID     uuid.UUID     `db:"business_region_id"`
	RegistrationRegionID uuid.UUID     `db:"registration_region_id"`
	Status               domain.Status `db:"status"`
	AssignedSolicitorID  *uuid.UUID    `db:"assigned_solicitor_id"`
	ReportRef            *string       `db:"report_ref"`
	CreatedAt            time.Time     `db:"created_at"`
	RegisteredAt         time.Time     `db:"registered_at"`
	UpdatedAt            time.Time     `db:"updated_at"`
}

// CreateParams holds the fields required to register a new request.
type CreateParams struct {
	CaseNumber           string
	BranchID             uuid.UUID
	OfficerID            uuid.UUID
	BusinessRegionID     uuid.UUID
	RegistrationRegionID uuid.UUID
	RegisteredAt         time.Time
}

// Repository provides database operations for requests and rotations.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new requests repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const requestColumns = `id, case_number, branch_id, officer_id, business_region_id,
	registration_region_id, status, assigned_solicitor_id, report_ref,
	created_at, registered_at, updated_at`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.CaseNumber, &req.BranchID, &req.OfficerID, &req.BusinessRegionID,
		&req.RegistrationRegionID, &req.Status, &req.AssignedSolicitorID, &req.ReportRef,
		&req.CreatedAt, &req.RegisteredAt, &req.UpdatedAt,
	)
	return req, err
}

// Create inserts a new request in the Initiated state.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Request, error) {
	registeredAt := p.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now().UTC()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO lsr_requests (case_number, branch_id, officer_id, business_region_id, registration_region_id, status, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+requestColumns,
		p.CaseNumber, p.BranchID, p.OfficerID, p.BusinessRegionID, p.RegistrationRegionID,
		string(domain.StatusInitiated), registeredAt,
	)
	req, err := scanRequest(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Request{}, ErrDuplicateCase
		}
		return Request{}, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

// GetByID retrieves a request by its ID. Soft-deleted requests are treated
// as not found.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Request, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM lsr_requests WHERE id = $1 AND deleted_at IS NULL`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// ListByBranch returns requests originated by a branch, newest first.
func (r *Repository) ListByBranch(ctx context.Context, branchID uuid.UUID, limit, offset int) ([]Request, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM lsr_requests
		WHERE branch_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		branchID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var items []Request
	for rows.Next() {
		req, scanErr := scanRequest(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan request: %w", scanErr)
		}
		items = append(items, req)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// ListBySolicitor returns requests currently assigned to a solicitor.
func (r *Repository) ListBySolicitor(ctx context.Context, solicitorID uuid.UUID, limit, offset int) ([]Request, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM lsr_requests
		WHERE assigned_solicitor_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`,
		solicitorID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list solicitor requests: %w", err)
	}
	defer rows.Close()

	var items []Request
	for rows.Next() {
		req, scanErr := scanRequest(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan request: %w", scanErr)
		}
		items = append(items, req)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// SoftDelete marks a request deleted without removing its audit trail.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE lsr_requests SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
