// Package requests provides the legal search request domain module.
package requests

import (
	"legalsearch_backend/internal/events"
	apphttp "legalsearch_backend/internal/http"
	"legalsearch_backend/internal/requests/handler"
	"legalsearch_backend/internal/requests/repository"
	"legalsearch_backend/internal/requests/service"
	"legalsearch_backend/internal/rotation"
	"legalsearch_backend/platform/config"
	"legalsearch_backend/platform/logger"
	"legalsearch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the requests domain module.
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repository *repository.Repository
}

// NewModule creates a new requests module with all dependencies wired. The
// rotation engine is built by the composition root and shared with the
// scheduler worker.
func NewModule(pool *pgxpool.Pool, orch *rotation.Orchestrator, sched *rotation.Scheduler, bus events.Bus, cfg config.EngineConfig, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, orch, sched, bus, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler:    h,
		service:    svc,
		repository: repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "requests"
}

// Service returns the requests service.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the requests repository, used by the rotation engine.
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// RegisterRoutes registers the module's routes under /api/v1/requests.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	requests := ctx.Protected.Group("/requests")
	m.handler.RegisterRoutes(requests)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
