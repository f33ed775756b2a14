// ABOUTME: Tests for the stage transition controller
// ABOUTME: Covers no-op moves, rollback exactness, reconciliation and end-to-end flows
package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stageUpdate struct {
	ID    uuid.UUID
	Stage models.Stage
}

// fakeStore is an in-memory RemoteStore with injectable failures.
type fakeStore struct {
	mu         sync.Mutex
	deals      map[uuid.UUID]models.Deal
	order      []uuid.UUID
	updates    []stageUpdate
	listCalls  int
	updateErr  error
	listErr    error
	afterWrite func(d *models.Deal)
	gate       chan struct{}
}

func newFakeStore(deals ...models.Deal) *fakeStore {
	s := &fakeStore{deals: make(map[uuid.UUID]models.Deal)}
	for _, d := range deals {
		s.deals[d.ID] = d.Clone()
		s.order = append(s.order, d.ID)
	}
	return s
}

func (s *fakeStore) ListDeals(_ context.Context) ([]models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Deal, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.deals[id].Clone())
	}
	return out, nil
}

func (s *fakeStore) UpdateDealStage(_ context.Context, id uuid.UUID, stage models.Stage) (*models.Deal, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, stageUpdate{ID: id, Stage: stage})
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	d, ok := s.deals[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	d.Stage = stage
	d.UpdatedAt = d.UpdatedAt.Add(time.Second)
	if s.afterWrite != nil {
		s.afterWrite(&d)
	}
	s.deals[id] = d
	return &d, nil
}

func (s *fakeStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

func testController(t *testing.T, store *fakeStore) *Controller {
	t.Helper()
	ctrl := NewController(store, NewCollection(nil), zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, ctrl.Refresh(context.Background()))
	store.listCalls = 0
	return ctrl
}

func qualifiedDeal() models.Deal {
	contactID := uuid.New()
	closeDate := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
	return models.Deal{
		ID:                uuid.New(),
		Name:              "Platform rollout",
		Description:       "Three regions",
		Amount:            amt(48000),
		Stage:             models.StageQualified,
		Probability:       40,
		ExpectedCloseDate: &closeDate,
		ContactID:         &contactID,
		CreatedBy:         "user-1",
		CreatedAt:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMoveDealNoopWhenAlreadyAtStage(t *testing.T) {
	deal := qualifiedDeal()
	store := newFakeStore(deal)
	ctrl := testController(t, store)
	before := ctrl.Deals().Deals()

	outcome, err := ctrl.MoveDeal(context.Background(), deal.ID, models.StageQualified)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoop, outcome.Status)
	assert.Equal(t, 0, store.updateCount(), "no remote write")
	assert.Equal(t, 0, store.listCalls, "no refetch")
	assert.Equal(t, before, ctrl.Deals().Deals(), "collection unchanged field for field")
}

func TestMoveDealRollbackRestoresFullPreImage(t *testing.T) {
	deal := qualifiedDeal()
	store := newFakeStore(deal)
	ctrl := testController(t, store)
	before, _ := ctrl.Deals().Get(deal.ID)

	store.updateErr = &models.TransportError{Op: "update deal", Err: errors.New("connection reset by peer")}

	outcome, err := ctrl.MoveDeal(context.Background(), deal.ID, models.StageWon)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset by peer", "underlying detail is surfaced")
	assert.True(t, models.IsTransport(err))

	assert.Equal(t, OutcomeRolledBack, outcome.Status)
	after, ok := ctrl.Deals().Get(deal.ID)
	require.True(t, ok)
	assert.Equal(t, models.StageQualified, after.Stage)
	assert.Equal(t, before, after, "every field restored")
	assert.Equal(t, 1, store.updateCount(), "single attempt, no retry")
	assert.Equal(t, 0, store.listCalls, "no refetch after a failed persist")
}

func TestMoveDealRejectedIsDistinguishable(t *testing.T) {
	deal := qualifiedDeal()
	store := newFakeStore(deal)
	ctrl := testController(t, store)
	store.updateErr = &models.RejectedError{Status: 409, Message: "deal is locked"}

	_, err := ctrl.MoveDeal(context.Background(), deal.ID, models.StageLost)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.False(t, models.IsTransport(err))

	after, _ := ctrl.Deals().Get(deal.ID)
	assert.Equal(t, models.StageQualified, after.Stage)
}

func TestMoveDealReconciliationOverridesOptimism(t *testing.T) {
	deal := qualifiedDeal()
	store := newFakeStore(deal)
	ctrl := testController(t, store)

	// another actor edits the amount concurrently
	store.afterWrite = func(d *models.Deal) { d.Amount = amt(51000) }

	outcome, err := ctrl.MoveDeal(context.Background(), deal.ID, models.StageProposal)
	require.NoError(t, err)

	assert.Equal(t, OutcomeMoved, outcome.Status)
	assert.True(t, outcome.Reconciled)
	assert.Equal(t, 1, store.listCalls, "refetch is mandatory")

	after, _ := ctrl.Deals().Get(deal.ID)
	assert.Equal(t, models.StageProposal, after.Stage)
	assert.Equal(t, 51000.0, *after.Amount, "refetched amount wins")
	assert.Equal(t, after, outcome.Deal)
}

func TestMoveDealSendsOnlyStage(t *testing.T) {
	deal := qualifiedDeal()
	store := newFakeStore(deal)
	ctrl := testController(t, store)

	_, err := ctrl.MoveDeal(context.Background(), deal.ID, models.StageNegotiation)
	require.NoError(t, err)

	require.Len(t, store.updates, 1)
	assert.Equal(t, stageUpdate{ID: deal.ID, Stage: models.StageNegotiation}, store.updates[0])
}

func TestMoveDealRefetchFailureKeepsOptimisticState(t *testing.T) {
	deal := qualifiedDeal()
	store := newFakeStore(deal)
	ctrl := testController(t, store)
	store.listErr = errors.New("timeout awaiting response headers")

	outcome, err := ctrl.MoveDeal(context.Background(), deal.ID, models.StageWon)
	require.NoError(t, err, "the write succeeded")

	assert.Equal(t, OutcomeMoved, outcome.Status)
	assert.False(t, outcome.Reconciled)
	assert.EqualError(t, outcome.RefetchErr, "timeout awaiting response headers")

	after, _ := ctrl.Deals().Get(deal.ID)
	assert.Equal(t, models.StageWon, after.Stage)
	assert.Equal(t, deal.Name, after.Name)
}

func TestMoveDealNotFound(t *testing.T) {
	store := newFakeStore(qualifiedDeal())
	ctrl := testController(t, store)
	before := ctrl.Deals().Deals()

	_, err := ctrl.MoveDeal(context.Background(), uuid.New(), models.StageWon)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 0, store.updateCount())
	assert.Equal(t, before, ctrl.Deals().Deals())
}

func TestMoveDealInvalidStage(t *testing.T) {
	deal := qualifiedDeal()
	store := newFakeStore(deal)
	ctrl := testController(t, store)

	_, err := ctrl.MoveDeal(context.Background(), deal.ID, "closed_won")
	assert.True(t, models.IsValidation(err))
	assert.Equal(t, 0, store.updateCount())
}

func TestMoveDealClearsDraggingOnEveryBranch(t *testing.T) {
	deal := qualifiedDeal()
	store := newFakeStore(deal)
	ctrl := testController(t, store)
	ctx := context.Background()

	ctrl.Deals().SetDragging(deal.ID)
	_, _ = ctrl.MoveDeal(ctx, deal.ID, models.StageQualified)
	_, dragging := ctrl.Deals().Dragging()
	assert.False(t, dragging, "cleared after no-op")

	ctrl.Deals().SetDragging(deal.ID)
	store.updateErr = errors.New("boom")
	_, _ = ctrl.MoveDeal(ctx, deal.ID, models.StageWon)
	_, dragging = ctrl.Deals().Dragging()
	assert.False(t, dragging, "cleared after rollback")

	ctrl.Deals().SetDragging(deal.ID)
	store.updateErr = nil
	_, _ = ctrl.MoveDeal(ctx, deal.ID, models.StageWon)
	_, dragging = ctrl.Deals().Dragging()
	assert.False(t, dragging, "cleared after success")

	missing := uuid.New()
	ctrl.Deals().SetDragging(missing)
	_, _ = ctrl.MoveDeal(ctx, missing, models.StageWon)
	_, dragging = ctrl.Deals().Dragging()
	assert.False(t, dragging, "cleared after not found")
}

// Finishing a move on one deal leaves a drag already underway on another.
func TestMoveDealLeavesOtherDragInPlace(t *testing.T) {
	first := qualifiedDeal()
	second := qualifiedDeal()
	store := newFakeStore(first, second)
	ctrl := testController(t, store)
	ctx := context.Background()

	ctrl.Deals().SetDragging(first.ID)
	outcome, err := ctrl.MoveDeal(ctx, second.ID, models.StageProposal)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMoved, outcome.Status)

	dragging, ok := ctrl.Deals().Dragging()
	require.True(t, ok)
	assert.Equal(t, first.ID, dragging)

	store.updateErr = errors.New("boom")
	_, err = ctrl.MoveDeal(ctx, second.ID, models.StageWon)
	require.Error(t, err)
	dragging, ok = ctrl.Deals().Dragging()
	require.True(t, ok, "rollback of another deal keeps the drag")
	assert.Equal(t, first.ID, dragging)

	ctrl.Deals().SetDragging(second.ID)
	ctrl.Deals().ClearDraggingIf(first.ID)
	dragging, ok = ctrl.Deals().Dragging()
	require.True(t, ok)
	assert.Equal(t, second.ID, dragging)
}

func TestMoveDealSerializesSameDeal(t *testing.T) {
	deal := qualifiedDeal()
	store := newFakeStore(deal)
	ctrl := testController(t, store)
	store.gate = make(chan struct{})

	var wg sync.WaitGroup
	for _, target := range []models.Stage{models.StageProposal, models.StageProposal} {
		wg.Add(1)
		go func(target models.Stage) {
			defer wg.Done()
			_, _ = ctrl.MoveDeal(context.Background(), deal.ID, target)
		}(target)
	}

	// release the first persist; the second move then sees the deal already
	// at proposal and becomes a no-op instead of a duplicate write
	store.gate <- struct{}{}
	wg.Wait()

	assert.Equal(t, 1, store.updateCount())
}

func TestPipelineEndToEnd(t *testing.T) {
	store := newFakeStore()
	ctrl := testController(t, store)
	ctx := context.Background()

	created, err := models.ValidateForPersist(models.DealInput{
		Name:   strPtrForTest("Pilot"),
		Stage:  strPtrForTest("lead"),
		Amount: amt(5000),
	})
	require.NoError(t, err)
	created.ID = uuid.New()
	store.deals[created.ID] = *created
	store.order = append(store.order, created.ID)
	require.NoError(t, ctrl.Refresh(ctx))

	snap := Summarize(ctrl.Deals().Deals())
	assert.Equal(t, StageTotals{Count: 1, TotalValue: 5000}, snap.Stages[models.StageLead])
	assert.Equal(t, 5000.0, snap.TotalPipelineValue)
	assert.Equal(t, 0.0, snap.WonValue)

	_, err = ctrl.MoveDeal(ctx, created.ID, models.StageWon)
	require.NoError(t, err)

	snap = Summarize(ctrl.Deals().Deals())
	assert.Equal(t, StageTotals{Count: 1, TotalValue: 5000}, snap.Stages[models.StageWon])
	assert.Equal(t, StageTotals{}, snap.Stages[models.StageLead])
	assert.Equal(t, 0.0, snap.TotalPipelineValue)
	assert.Equal(t, 5000.0, snap.WonValue)
	assert.Equal(t, 100.0, snap.ConversionRate)
}

func strPtrForTest(s string) *string { return &s }
