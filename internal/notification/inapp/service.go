package inapp

import (
	"context"

	"legalsearch_backend/platform/logger"

	"github.com/google/uuid"
)

// Service wraps the repository with paging and role normalization for the
// HTTP read/acknowledge surface. Writes go through the dispatcher module,
// not this service.
type Service struct {
	repo *Repository
	log  *logger.Logger
}

// NewService creates a new in-app notification read service.
func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, roles []string, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.repo.ListForUser(ctx, userID, roles, pageSize, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID, roles []string) (int, error) {
	return s.repo.CountUnread(ctx, userID, roles)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
