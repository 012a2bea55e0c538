package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Region is a geographic scope solicitors register under. Regions form a
// two-level hierarchy via ParentRegionID.
type Region struct {
	ID             uuid.UUID  `db:"id"`
	Name           string     `db:"name"`
	ParentRegionID *uuid.UUID `db:"parent_region_id"`
	CreatedAt      time.Time  `db:"created_at"`
}

// ListRegions returns all regions ordered by name.
func (r *Repository) ListRegions(ctx context.Context) ([]Region, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, parent_region_id, created_at FROM lsr_regions ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query regions: %w", err)
	}
	defer rows.Close()

	var items []Region
	for rows.Next() {
		var region Region
		if scanErr := rows.Scan(&region.ID, &region.Name, &region.ParentRegionID, &region.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan region: %w", scanErr)
		}
		items = append(items, region)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
