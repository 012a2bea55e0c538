package directory

import (
	apphttp "legalsearch_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the directory domain module.
type Module struct {
	repository *Repository
	handler    *Handler
}

// NewModule creates a new directory module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := New(pool)
	return &Module{
		repository: repo,
		handler:    NewHandler(repo),
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "directory"
}

// Repository returns the directory repository, used by the rotation engine.
func (m *Module) Repository() *Repository {
	return m.repository
}

// RegisterRoutes registers the module's routes under /api/v1/directory.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	directory := ctx.Protected.Group("/directory")
	m.handler.RegisterRoutes(directory)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
