// ABOUTME: Stage transition controller with optimistic update and rollback
// ABOUTME: Moves one deal to a new stage against a remote store and reconciles by refetch
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// RemoteStore is the durable owner of deals as seen by the controller.
// UpdateDealStage must send only the id and the stage.
type RemoteStore interface {
	ListDeals(ctx context.Context) ([]models.Deal, error)
	UpdateDealStage(ctx context.Context, id uuid.UUID, stage models.Stage) (*models.Deal, error)
}

// OutcomeStatus describes what MoveDeal did.
type OutcomeStatus string

const (
	OutcomeMoved      OutcomeStatus = "moved"
	OutcomeNoop       OutcomeStatus = "noop"
	OutcomeRolledBack OutcomeStatus = "rolled_back"
	OutcomeRejected   OutcomeStatus = "rejected"
)

// Outcome reports the result of one move. Deal is the local copy after the
// move settled. When the persist succeeded but the refetch failed, Reconciled
// is false, RefetchErr is set and the optimistic deal stays in the collection.
type Outcome struct {
	MoveID     string
	Status     OutcomeStatus
	Deal       models.Deal
	Reconciled bool
	RefetchErr error
}

// Controller applies user-initiated stage moves to a Collection.
type Controller struct {
	store RemoteStore
	deals *Collection
	log   zerolog.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*dealLock
}

type dealLock struct {
	mu   sync.Mutex
	refs int
}

// NewController wires a controller to its remote store and local collection.
func NewController(store RemoteStore, deals *Collection, log zerolog.Logger) *Controller {
	return &Controller{
		store: store,
		deals: deals,
		log:   log.With().Str("component", "pipeline").Logger(),
		locks: make(map[uuid.UUID]*dealLock),
	}
}

// Deals exposes the collection the controller mutates.
func (c *Controller) Deals() *Collection {
	return c.deals
}

// Refresh replaces the local collection with the store's current deals.
func (c *Controller) Refresh(ctx context.Context) error {
	deals, err := c.store.ListDeals(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch deals: %w", err)
	}
	c.deals.Replace(deals)
	return nil
}

// MoveDeal moves the deal with id to target. Moves for the same id are
// serialized; a move already at target returns immediately without a remote
// call. A failed persist restores the exact pre-move deal and returns the
// underlying error. The persist is attempted once.
func (c *Controller) MoveDeal(ctx context.Context, id uuid.UUID, target models.Stage) (Outcome, error) {
	defer c.deals.ClearDraggingIf(id)

	outcome := Outcome{MoveID: ulid.Make().String(), Status: OutcomeRejected}
	log := c.log.With().Str("move_id", outcome.MoveID).Str("deal_id", id.String()).Str("target", string(target)).Logger()

	if !models.IsValidStage(target) {
		return outcome, models.NewValidationError("stage", "invalid stage %q (valid: %s)", target, models.StageNames())
	}

	unlock := c.lockDeal(id)
	defer unlock()

	before, ok := c.deals.Get(id)
	if !ok {
		return outcome, fmt.Errorf("deal %s: %w", id, models.ErrNotFound)
	}

	if before.Stage == target {
		outcome.Status = OutcomeNoop
		outcome.Deal = before
		outcome.Reconciled = true
		return outcome, nil
	}

	optimistic := before.Clone()
	optimistic.Stage = target
	c.deals.Put(optimistic)

	log.Debug().Str("from", string(before.Stage)).Msg("applied optimistic move")

	if _, err := c.store.UpdateDealStage(ctx, id, target); err != nil {
		if !c.deals.Put(before) {
			log.Warn().Msg("deal left the collection before rollback")
		}
		log.Warn().Err(err).Msg("move rejected, rolled back")

		outcome.Status = OutcomeRolledBack
		outcome.Deal = before
		return outcome, fmt.Errorf("failed to move deal to %s: %w", target, err)
	}

	outcome.Status = OutcomeMoved
	outcome.Deal = optimistic

	refreshed, err := c.store.ListDeals(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("move persisted but refetch failed; keeping optimistic state")
		outcome.RefetchErr = err
		return outcome, nil
	}

	c.deals.Replace(refreshed)
	outcome.Reconciled = true
	if current, ok := c.deals.Get(id); ok {
		outcome.Deal = current
	}

	log.Info().Msg("deal moved")
	return outcome, nil
}

func (c *Controller) lockDeal(id uuid.UUID) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &dealLock{}
		c.locks[id] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, id)
		}
		c.mu.Unlock()
	}
}
