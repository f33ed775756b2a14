// ABOUTME: Tests for conversation storage and analysis persistence
// ABOUTME: Verifies list fields survive the JSON column round trip
package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationWithAnalysis(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	deal := &models.Deal{Name: "Analyzed", Stage: models.StageProposal}
	require.NoError(t, CreateDeal(ctx, db, deal))

	conv := &models.Conversation{DealID: deal.ID, Channel: "call", Transcript: "We discussed pricing."}
	require.NoError(t, CreateConversation(ctx, db, conv))

	convs, err := ListConversations(ctx, db, deal.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Nil(t, convs[0].Analysis)

	win := 60
	analysis := &models.ConversationAnalysis{
		ID:               ulid.Make().String(),
		ConversationID:   conv.ID,
		DealID:           deal.ID,
		Summary:          "Pricing review",
		Sentiment:        models.SentimentPositive,
		KeyPoints:        []string{"budget approved"},
		Objections:       nil,
		NextSteps:        []string{"send contract", "book legal review"},
		RecommendedStage: models.StageNegotiation,
		WinProbability:   &win,
		RawResponse:      "raw",
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, SaveAnalysis(ctx, db, analysis))

	latest, err := LatestAnalysis(ctx, db, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.ID, latest.ID)
	assert.Equal(t, []string{"budget approved"}, latest.KeyPoints)
	assert.Equal(t, []string{}, latest.Objections)
	assert.Equal(t, []string{"send contract", "book legal review"}, latest.NextSteps)
	assert.Equal(t, models.StageNegotiation, latest.RecommendedStage)
	require.NotNil(t, latest.WinProbability)
	assert.Equal(t, 60, *latest.WinProbability)

	convs, err = ListConversations(ctx, db, deal.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	require.NotNil(t, convs[0].Analysis)
	assert.Equal(t, "Pricing review", convs[0].Analysis.Summary)
}

func TestConversationRequiresTranscript(t *testing.T) {
	err := CreateConversation(context.Background(), setupTestDB(t), &models.Conversation{DealID: uuid.New()})
	assert.True(t, models.IsValidation(err))
}

func TestConversationUnknownDeal(t *testing.T) {
	err := CreateConversation(context.Background(), setupTestDB(t), &models.Conversation{DealID: uuid.New(), Transcript: "hi"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestLatestAnalysisNotFound(t *testing.T) {
	_, err := LatestAnalysis(context.Background(), setupTestDB(t), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteDealCascadesConversations(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	deal := &models.Deal{Name: "gone", Stage: models.StageLead}
	require.NoError(t, CreateDeal(ctx, db, deal))
	conv := &models.Conversation{DealID: deal.ID, Transcript: "hello"}
	require.NoError(t, CreateConversation(ctx, db, conv))

	require.NoError(t, DeleteDeal(ctx, db, deal.ID))

	_, err := GetConversation(ctx, db, conv.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
