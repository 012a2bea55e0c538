// Package directory resolves solicitors eligible for a geographic scope and
// region-of-region fallback lookups. Solicitor records are read-only from
// the engine's perspective.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoParentRegion means the region has no broader region to fall back to.
var ErrNoParentRegion = errors.New("region has no parent region")

// Solicitor is an external solicitor eligible to receive requests.
type Solicitor struct {
	ID        uuid.UUID `db:"id"`
	FullName  string    `db:"full_name"`
	Email     string    `db:"email"`
	Phone     *string   `db:"phone"`
	RegionID  uuid.UUID `db:"region_id"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

// Repository provides read access to the solicitor directory.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new directory repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const solicitorColumns = `id, full_name, email, phone, region_id, active, created_at`

// SolicitorsInRegion returns the active solicitors registered in a region.
func (r *Repository) SolicitorsInRegion(ctx context.Context, regionID uuid.UUID) ([]Solicitor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+solicitorColumns+` FROM lsr_solicitors WHERE region_id = $1 AND active ORDER BY created_at ASC`,
		regionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query solicitors in region: %w", err)
	}
	defer rows.Close()

	var items []Solicitor
	for rows.Next() {
		var s Solicitor
		if scanErr := rows.Scan(&s.ID, &s.FullName, &s.Email, &s.Phone, &s.RegionID, &s.Active, &s.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan solicitor: %w", scanErr)
		}
		items = append(items, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// SolicitorsInRegionTree returns the active solicitors in a region or any of
// its direct child regions. Used for the broadened cross-scope fallback.
func (r *Repository) SolicitorsInRegionTree(ctx context.Context, regionID uuid.UUID) ([]Solicitor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+solicitorColumns+`
		FROM lsr_solicitors
		WHERE active AND region_id IN (
			SELECT id FROM lsr_regions WHERE id = $1 OR parent_region_id = $1
		)
		ORDER BY created_at ASC`,
		regionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query solicitors in region tree: %w", err)
	}
	defer rows.Close()

	var items []Solicitor
	for rows.Next() {
		var s Solicitor
		if scanErr := rows.Scan(&s.ID, &s.FullName, &s.Email, &s.Phone, &s.RegionID, &s.Active, &s.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan solicitor: %w", scanErr)
		}
		items = append(items, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// ParentRegionOf resolves the broader region a region belongs to.
func (r *Repository) ParentRegionOf(ctx context.Context, regionID uuid.UUID) (uuid.UUID, error) {
	var parent *uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT parent_region_id FROM lsr_regions WHERE id = $1`, regionID,
	).Scan(&parent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNoParentRegion
		}
		return uuid.Nil, fmt.Errorf("failed to resolve parent region: %w", err)
	}
	if parent == nil {
		return uuid.Nil, ErrNoParentRegion
	}
	return *parent, nil
}

// GetSolicitor returns a single solicitor by id.
func (r *Repository) GetSolicitor(ctx context.Context, id uuid.UUID) (Solicitor, error) {
	var s Solicitor
	err := r.pool.QueryRow(ctx,
		`SELECT `+solicitorColumns+` FROM lsr_solicitors WHERE id = $1`, id,
	).Scan(&s.ID, &s.FullName, &s.Email, &s.Phone, &s.RegionID, &s.Active, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Solicitor{}, fmt.Errorf("solicitor not found")
		}
		return Solicitor{}, fmt.Errorf("failed to get solicitor: %w", err)
	}
	return s, nil
}
