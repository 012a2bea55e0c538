// Package inapp persists notifications and serves the unread-query surface.
// A row is either directed (single recipient) or a broadcast to every member
// of a role; the check constraint on the table enforces the discriminator.
package inapp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"legalsearch_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"

	errRepoNotConfigured = "in-app notification repository not configured"
	errUserIDRequired    = "userId is required"
)

// Notification is the persisted notification row.
type Notification struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Category       string          `json:"category"`
	Message        string          `json:"message"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	RecipientID    *uuid.UUID      `json:"recipientId,omitempty"`
	RecipientEmail *string         `json:"recipientEmail,omitempty"`
	RoleName       *string         `json:"roleName,omitempty"`
	IsBroadcast    bool            `json:"isBroadcast"`
	BranchID       *uuid.UUID      `json:"branchId,omitempty"`
	IsRead         bool            `json:"isRead"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// CreateParams holds the fields for a new notification row. Exactly one of
// (RecipientID, RoleName) drives the target discriminator.
type CreateParams struct {
	Title          string
	Category       string
	Message        string
	Metadata       map[string]any
	RecipientID    *uuid.UUID
	RecipientEmail *string
	RoleName       *string
	BranchID       *uuid.UUID
}

// Repository provides database operations for notification rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new in-app notification repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notificationColumns = `id, title, category, message, metadata, recipient_id,
	recipient_email, role_name, is_broadcast, branch_id, is_read, created_at`

// Create inserts a notification row. This is the durable half of every
// dispatch and always happens before any live delivery attempt.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if r == nil || r.pool == nil {
		return Notification{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}
	if p.Title == "" || p.Message == "" {
		return Notification{}, apperr.Validation("title and message are required").WithOp(opCreate)
	}

	isBroadcast := p.RecipientID == nil
	if isBroadcast && (p.RoleName == nil || *p.RoleName == "") {
		return Notification{}, apperr.Validation("broadcast notification requires a role").WithOp(opCreate)
	}

	var metadata []byte
	if p.Metadata != nil {
		encoded, err := json.Marshal(p.Metadata)
		if err != nil {
			return Notification{}, apperr.Internal(fmt.Sprintf("marshal metadata: %v", err)).WithOp(opCreate)
		}
		metadata = encoded
	}

	var n Notification
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lsr_notifications
		(title, category, message, metadata, recipient_id, recipient_email, role_name, is_broadcast, branch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+notificationColumns,
		p.Title, p.Category, p.Message, metadata, p.RecipientID, p.RecipientEmail, p.RoleName, isBroadcast, p.BranchID,
	).Scan(
		&n.ID, &n.Title, &n.Category, &n.Message, &n.Metadata, &n.RecipientID,
		&n.RecipientEmail, &n.RoleName, &n.IsBroadcast, &n.BranchID, &n.IsRead, &n.CreatedAt,
	)
	if err != nil {
		return Notification{}, apperr.Internal(fmt.Sprintf("create notification failed: %v", err)).WithOp(opCreate)
	}

	return n, nil
}

// ListForUser returns the notifications visible to a user: rows addressed to
// them plus broadcasts to any of the given roles, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, roles []string, limit, offset int) ([]Notification, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opList)
	}
	if userID == uuid.Nil {
		return nil, 0, apperr.Validation(errUserIDRequired).WithOp(opList)
	}
	if roles == nil {
		roles = []string{}
	}

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM lsr_notifications
		WHERE recipient_id = $1 OR (is_broadcast AND role_name = ANY($2))`,
		userID, roles,
	).Scan(&total)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM lsr_notifications
		WHERE recipient_id = $1 OR (is_broadcast AND role_name = ANY($2))
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		userID, roles, limit, offset,
	)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if scanErr := rows.Scan(
			&n.ID, &n.Title, &n.Category, &n.Message, &n.Metadata, &n.RecipientID,
			&n.RecipientEmail, &n.RoleName, &n.IsBroadcast, &n.BranchID, &n.IsRead, &n.CreatedAt,
		); scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notifications failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opList)
	}

	return items, total, nil
}

// CountUnread counts a user's unread notifications including role broadcasts.
func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID, roles []string) (int, error) {
	if r == nil || r.pool == nil {
		return 0, apperr.Internal(errRepoNotConfigured).WithOp(opCountUnread)
	}
	if userID == uuid.Nil {
		return 0, apperr.Validation(errUserIDRequired).WithOp(opCountUnread)
	}
	if roles == nil {
		roles = []string{}
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM lsr_notifications
		WHERE is_read = FALSE AND (recipient_id = $1 OR (is_broadcast AND role_name = ANY($2)))`,
		userID, roles,
	).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}

	return count, nil
}

// MarkRead acknowledges a single notification for a user.
func (r *Repository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("userId and notificationId are required").WithOp(opMarkRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE lsr_notifications
		SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND (recipient_id = $2 OR is_broadcast)`,
		notificationID, userID,
	)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}

	return nil
}

// MarkAllRead acknowledges everything addressed directly to a user.
func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkAllRead)
	}
	if userID == uuid.Nil {
		return apperr.Validation(errUserIDRequired).WithOp(opMarkAllRead)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE lsr_notifications
		SET is_read = TRUE, read_at = now()
		WHERE recipient_id = $1 AND is_read = FALSE`,
		userID,
	)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}

	return nil
}
