package rotation

import (
	"context"
	"errors"
	"time"

	"legalsearch_backend/internal/directory"
	"legalsearch_backend/internal/requests/repository"
	"legalsearch_backend/platform/logger"

	"github.com/google/uuid"
)

// Orchestrator is the entry point invoked when a new request is created. It
// computes the initial candidate pool (registration region, then the
// broadened parent region, then escalation) and seeds the rotation.
type Orchestrator struct {
	store Store
	dir   Directory
	sched *Scheduler
	log   *logger.Logger
	now   func() time.Time
}

// NewOrchestrator creates a new assignment orchestrator.
func NewOrchestrator(store Store, dir Directory, sched *Scheduler, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		store: store,
		dir:   dir,
		sched: sched,
		log:   log,
		now:   time.Now,
	}
}

// AssignRequest matches the request to a solicitor pool and pushes the
// rotation to candidate #1. A request that no longer exists is treated as
// already handled, not an error.
func (o *Orchestrator) AssignRequest(ctx context.Context, requestID uuid.UUID) error {
	req, err := o.store.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			o.log.Info("assignment skipped, request gone", "requestId", requestID)
			return nil
		}
		return err
	}

	pool, err := o.dir.SolicitorsInRegion(ctx, req.RegistrationRegionID)
	if err != nil {
		return err
	}

	if len(pool) == 0 {
		pool, err = o.broadenedPool(ctx, req.RegistrationRegionID)
		if err != nil {
			return err
		}
	}

	if len(pool) == 0 {
		// No candidates anywhere. Advancing past order 0 on an empty
		// rotation marks the request UnAssigned and escalates.
		return o.sched.AdvanceToNext(ctx, requestID, 0)
	}

	adv, err := o.store.SeedRotation(ctx, requestID, shufflePool(pool), o.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			o.log.Info("assignment skipped, request gone", "requestId", requestID)
			return nil
		}
		return err
	}

	o.log.Info("rotation seeded",
		"requestId", requestID,
		"candidates", len(pool),
		"firstSolicitorId", adv.Entry.SolicitorID,
	)

	return o.sched.notifyAssignment(ctx, adv)
}

// broadenedPool resolves the parent region of the primary region and widens
// the search to every solicitor under it. A region without a parent simply
// yields an empty pool.
func (o *Orchestrator) broadenedPool(ctx context.Context, regionID uuid.UUID) ([]directory.Solicitor, error) {
	parent, err := o.dir.ParentRegionOf(ctx, regionID)
	if err != nil {
		if errors.Is(err, directory.ErrNoParentRegion) {
			return nil, nil
		}
		return nil, err
	}
	return o.dir.SolicitorsInRegionTree(ctx, parent)
}
