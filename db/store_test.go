// ABOUTME: Tests for the SQLite-backed deal store
// ABOUTME: Runs the pipeline controller directly against a temp database
package db

import (
	"context"
	"testing"

	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealStoreUpdateDealStageOnlyTouchesStage(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	deal := &models.Deal{Name: "Stage only", Stage: models.StageLead, Amount: amount(300), Probability: 10, Description: "keep"}
	require.NoError(t, CreateDeal(ctx, db, deal))

	store := NewDealStore(db)
	updated, err := store.UpdateDealStage(ctx, deal.ID, models.StageProposal)
	require.NoError(t, err)

	assert.Equal(t, models.StageProposal, updated.Stage)
	assert.Equal(t, "keep", updated.Description)
	assert.Equal(t, 10, updated.Probability)
	assert.Equal(t, 300.0, updated.AmountValue())
}

func TestDealStoreDrivesController(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	deal := &models.Deal{Name: "E2E", Stage: models.StageLead, Amount: amount(5000)}
	require.NoError(t, CreateDeal(ctx, db, deal))

	ctrl := pipeline.NewController(NewDealStore(db), pipeline.NewCollection(nil), zerolog.Nop())
	require.NoError(t, ctrl.Refresh(ctx))

	outcome, err := ctrl.MoveDeal(ctx, deal.ID, models.StageWon)
	require.NoError(t, err)
	assert.Equal(t, pipeline.OutcomeMoved, outcome.Status)

	snap := pipeline.Summarize(ctrl.Deals().Deals())
	assert.Equal(t, 5000.0, snap.WonValue)
	assert.Equal(t, 0.0, snap.TotalPipelineValue)
	assert.Equal(t, 100.0, snap.ConversionRate)
}
