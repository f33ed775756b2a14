// ABOUTME: Query tool test suite
// ABOUTME: Tests universal query_crm tool with filtering across all entity types
package handlers

import (
	"context"
	"testing"

	"github.com/harperreed/salescrm/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCRMContacts(t *testing.T) {
	database := setupTestDB(t)
	contacts := NewContactHandlers(database)

	_, alice, err := contacts.AddContact(context.Background(), nil, AddContactInput{Name: "Alice Smith", CompanyName: "Test Corp"})
	require.NoError(t, err)
	_, _, err = contacts.AddContact(context.Background(), nil, AddContactInput{Name: "Bob Jones"})
	require.NoError(t, err)

	h := NewQueryHandlers(database)

	_, out, err := h.QueryCRM(context.Background(), nil, QueryCRMInput{EntityType: "contact"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)

	_, out, err = h.QueryCRM(context.Background(), nil, QueryCRMInput{
		EntityType: "contact",
		Filters:    map[string]interface{}{"company_id": *alice.CompanyID},
	})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Alice Smith", out.Results[0].(ContactOutput).Name)
}

func TestQueryCRMDealsByStageAndAmount(t *testing.T) {
	database := setupTestDB(t)
	deals := NewDealHandlers(database, zerolog.Nop())
	createTestDeal(t, deals, "Small", "proposal", ptr(500.0))
	createTestDeal(t, deals, "Medium", "proposal", ptr(5000.0))
	createTestDeal(t, deals, "Large", "proposal", ptr(50000.0))
	createTestDeal(t, deals, "Won", "won", ptr(7000.0))

	h := NewQueryHandlers(database)

	_, out, err := h.QueryCRM(context.Background(), nil, QueryCRMInput{
		EntityType: "deal",
		Filters:    map[string]interface{}{"stage": "proposal", "min_amount": 1000.0, "max_amount": 10000.0},
	})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Medium", out.Results[0].(DealOutput).Name)

	_, out, err = h.QueryCRM(context.Background(), nil, QueryCRMInput{EntityType: "deal", Query: "lar"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
}

func TestQueryCRMActivities(t *testing.T) {
	database := setupTestDB(t)
	contacts := NewContactHandlers(database)
	_, _, err := contacts.LogActivity(context.Background(), nil, LogActivityInput{Type: models.ActivityTask, Subject: "Follow up"})
	require.NoError(t, err)
	_, _, err = contacts.LogActivity(context.Background(), nil, LogActivityInput{Type: models.ActivityNote, Subject: "FYI"})
	require.NoError(t, err)

	h := NewQueryHandlers(database)

	_, out, err := h.QueryCRM(context.Background(), nil, QueryCRMInput{
		EntityType: "activity",
		Filters:    map[string]interface{}{"open_tasks": true},
	})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Follow up", out.Results[0].(ActivityOutput).Subject)
}

func TestQueryCRMErrors(t *testing.T) {
	h := NewQueryHandlers(setupTestDB(t))

	_, _, err := h.QueryCRM(context.Background(), nil, QueryCRMInput{EntityType: "relationship"})
	assert.Error(t, err)

	_, _, err = h.QueryCRM(context.Background(), nil, QueryCRMInput{
		EntityType: "deal",
		Filters:    map[string]interface{}{"company_id": "not-an-id"},
	})
	assert.True(t, models.IsValidation(err))

	_, out, err := h.QueryCRM(context.Background(), nil, QueryCRMInput{EntityType: "company"})
	require.NoError(t, err)
	assert.NotNil(t, out.Results)
	assert.Zero(t, out.Count)
}
