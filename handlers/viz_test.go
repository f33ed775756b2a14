// ABOUTME: Tests for the generate_graph MCP tool
// ABOUTME: Covers pipeline and company graphs plus svg output and bad input
package handlers

import (
	"context"
	"testing"

	"github.com/harperreed/salescrm/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateGraph(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	deals := NewDealHandlers(database, zerolog.Nop())
	h := NewVizHandlers(database)

	_, created, err := deals.CreateDeal(ctx, nil, CreateDealInput{
		Name: "Wayne Enterprises", Stage: "negotiation", Amount: ptr(75000.0), CompanyName: "Wayne",
	})
	require.NoError(t, err)

	_, out, err := h.GenerateGraph(ctx, nil, GenerateGraphInput{Type: "pipeline"})
	require.NoError(t, err)
	assert.Contains(t, out.DOTSource, "Wayne Enterprises")
	assert.Empty(t, out.SVG)
	assert.Positive(t, out.EdgeCount)

	_, out, err = h.GenerateGraph(ctx, nil, GenerateGraphInput{Type: "pipeline", Format: "SVG"})
	require.NoError(t, err)
	assert.Contains(t, out.SVG, "<svg")

	require.NotNil(t, created.CompanyID)
	_, out, err = h.GenerateGraph(ctx, nil, GenerateGraphInput{Type: "company", EntityID: *created.CompanyID})
	require.NoError(t, err)
	assert.Contains(t, out.DOTSource, "Wayne")
}

func TestGenerateGraphRejectsBadInput(t *testing.T) {
	h := NewVizHandlers(setupTestDB(t))
	ctx := context.Background()

	for _, in := range []GenerateGraphInput{
		{Type: "contacts"},
		{Type: "company"},
		{Type: "company", EntityID: "not-a-uuid"},
		{Type: "pipeline", Format: "png"},
	} {
		_, _, err := h.GenerateGraph(ctx, nil, in)
		assert.True(t, models.IsValidation(err), "input %+v: %v", in, err)
	}
}
