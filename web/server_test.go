// ABOUTME: HTTP tests for the REST API
// ABOUTME: Exercises handlers through the chi router against a temp SQLite database
package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/salescrm/coach"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedCompleter struct {
	reply string
}

func (s *scriptedCompleter) Complete(context.Context, string, string) (string, error) {
	return s.reply, nil
}

func setupTestServer(t *testing.T, analyzer *coach.Analyzer) (*Server, *sql.DB) {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	srv := New(Config{Port: 0, Log: zerolog.Nop(), DB: database, Analyzer: analyzer, DevMode: true})
	return srv, database
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func createDeal(t *testing.T, srv *Server, body map[string]interface{}) models.Deal {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/deals", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var deal models.Deal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deal))
	return deal
}

func TestHealth(t *testing.T) {
	srv, _ := setupTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"llm":false`)
}

func TestListStages(t *testing.T) {
	srv, _ := setupTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/stages", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.StageInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 6)
	assert.Equal(t, models.StageLead, resp.Data[0].ID)
	assert.Equal(t, models.StageLost, resp.Data[5].ID)
}

func TestCreateAndGetDeal(t *testing.T) {
	srv, _ := setupTestServer(t, nil)

	deal := createDeal(t, srv, map[string]interface{}{
		"title":  "Acme renewal",
		"amount": 12000,
		"stage":  "proposal",
	})
	assert.Equal(t, "Acme renewal", deal.Name)
	assert.Equal(t, models.StageProposal, deal.Stage)
	require.NotNil(t, deal.Amount)
	assert.Equal(t, 12000.0, *deal.Amount)

	rec := doJSON(t, srv, http.MethodGet, "/api/deals/"+deal.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Deal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, deal.ID, got.ID)
}

func TestCreateDealValidation(t *testing.T) {
	srv, _ := setupTestServer(t, nil)

	tests := []struct {
		name  string
		body  interface{}
		code  int
		field string
	}{
		{"missing name", map[string]interface{}{"stage": "lead"}, http.StatusUnprocessableEntity, "name"},
		{"unknown stage", map[string]interface{}{"name": "X", "stage": "closed"}, http.StatusUnprocessableEntity, "stage"},
		{"probability out of range", map[string]interface{}{"name": "X", "probability": 150}, http.StatusUnprocessableEntity, "probability"},
		{"malformed json", `{"name":`, http.StatusBadRequest, ""},
		{"empty body", "", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/deals", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.field != "" {
				var resp map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.field, resp["field"])
			}
		})
	}
}

func TestPatchStageOnly(t *testing.T) {
	srv, _ := setupTestServer(t, nil)

	deal := createDeal(t, srv, map[string]interface{}{
		"name":        "Globex expansion",
		"amount":      50000,
		"stage":       "qualified",
		"description": "Second region",
	})

	rec := doJSON(t, srv, http.MethodPatch, "/api/deals/"+deal.ID.String(), map[string]string{"stage": "negotiation"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Deal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.StageNegotiation, updated.Stage)
	assert.Equal(t, "Globex expansion", updated.Name)
	assert.Equal(t, "Second region", updated.Description)
	require.NotNil(t, updated.Amount)
	assert.Equal(t, 50000.0, *updated.Amount)
}

func TestPatchDealErrors(t *testing.T) {
	srv, _ := setupTestServer(t, nil)
	deal := createDeal(t, srv, map[string]interface{}{"name": "Initech"})

	rec := doJSON(t, srv, http.MethodPatch, "/api/deals/"+deal.ID.String(), map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPatch, "/api/deals/"+deal.ID.String(), map[string]string{"stage": "bogus"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPatch, "/api/deals/00000000-0000-0000-0000-000000000001", map[string]string{"stage": "won"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodPatch, "/api/deals/not-a-uuid", map[string]string{"stage": "won"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDealsPagination(t *testing.T) {
	srv, _ := setupTestServer(t, nil)

	for i := 0; i < 5; i++ {
		createDeal(t, srv, map[string]interface{}{"name": "Deal", "stage": "lead"})
	}
	createDeal(t, srv, map[string]interface{}{"name": "Winner", "stage": "won"})

	rec := doJSON(t, srv, http.MethodGet, "/api/deals?limit=2&offset=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list DealList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Data, 2)
	assert.Equal(t, Pagination{Total: 6, Limit: 2, Offset: 2}, list.Pagination)

	rec = doJSON(t, srv, http.MethodGet, "/api/deals?stage=won", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Winner", list.Data[0].Name)

	rec = doJSON(t, srv, http.MethodGet, "/api/deals?company_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteDeal(t *testing.T) {
	srv, _ := setupTestServer(t, nil)
	deal := createDeal(t, srv, map[string]interface{}{"name": "Short lived"})

	rec := doJSON(t, srv, http.MethodDelete, "/api/deals/"+deal.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/deals/"+deal.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPipelineSummaryMatchesClientAggregation(t *testing.T) {
	srv, database := setupTestServer(t, nil)

	createDeal(t, srv, map[string]interface{}{"name": "A", "stage": "lead", "amount": 1000})
	createDeal(t, srv, map[string]interface{}{"name": "B", "stage": "proposal", "amount": 2500.5})
	createDeal(t, srv, map[string]interface{}{"name": "C", "stage": "won", "amount": 9000})
	createDeal(t, srv, map[string]interface{}{"name": "D", "stage": "lost", "amount": 400})
	createDeal(t, srv, map[string]interface{}{"name": "E", "stage": "won"})

	rec := doJSON(t, srv, http.MethodGet, "/api/pipeline/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var server pipeline.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &server))

	deals, err := db.AllDeals(context.Background(), database)
	require.NoError(t, err)
	local := pipeline.Summarize(deals)

	assert.Equal(t, local.TotalDeals, server.TotalDeals)
	assert.InDelta(t, local.TotalPipelineValue, server.TotalPipelineValue, 1e-9)
	assert.InDelta(t, local.WonValue, server.WonValue, 1e-9)
	assert.InDelta(t, local.ConversionRate, server.ConversionRate, 1e-9)
	assert.InDelta(t, local.AverageDealSize, server.AverageDealSize, 1e-9)
	assert.Equal(t, local.Stages, server.Stages)

	assert.Equal(t, 5, server.TotalDeals)
	assert.InDelta(t, 3500.5, server.TotalPipelineValue, 1e-9)
	assert.InDelta(t, 40.0, server.ConversionRate, 1e-9)
	assert.InDelta(t, 4500.0, server.AverageDealSize, 1e-9)
}

func TestDashboard(t *testing.T) {
	srv, _ := setupTestServer(t, nil)
	createDeal(t, srv, map[string]interface{}{"name": "A", "stage": "qualified", "amount": 700})

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		Pipeline   pipeline.Snapshot `json:"pipeline"`
		TotalDeals int               `json:"total_deals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalDeals)
	assert.Equal(t, 1, stats.Pipeline.Stages[models.StageQualified].Count)
}

func TestContactsAndCompanies(t *testing.T) {
	srv, _ := setupTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/companies", map[string]string{"name": "Acme", "industry": "Widgets"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var company models.Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &company))

	rec = doJSON(t, srv, http.MethodPost, "/api/contacts", map[string]string{
		"name":       "Wile E",
		"email":      "wile@acme.test",
		"company_id": company.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var contact models.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contact))
	require.NotNil(t, contact.CompanyID)
	assert.Equal(t, company.ID, *contact.CompanyID)

	rec = doJSON(t, srv, http.MethodPatch, "/api/contacts/"+contact.ID.String(), map[string]string{"title": "Engineer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contact))
	assert.Equal(t, "Engineer", contact.Title)
	assert.Equal(t, "wile@acme.test", contact.Email)

	rec = doJSON(t, srv, http.MethodGet, "/api/contacts?company_id="+company.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var contacts struct {
		Data []models.Contact `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	assert.Len(t, contacts.Data, 1)

	rec = doJSON(t, srv, http.MethodPost, "/api/contacts", map[string]string{"email": "nobody@acme.test"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteCompanyWithDealsConflicts(t *testing.T) {
	srv, _ := setupTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/companies", map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var company models.Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &company))

	createDeal(t, srv, map[string]interface{}{"name": "Anvils", "company_id": company.ID.String()})

	rec = doJSON(t, srv, http.MethodDelete, "/api/companies/"+company.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestActivities(t *testing.T) {
	srv, _ := setupTestServer(t, nil)
	deal := createDeal(t, srv, map[string]interface{}{"name": "Umbrella"})

	rec := doJSON(t, srv, http.MethodPost, "/api/activities", map[string]string{
		"type":    "task",
		"subject": "Send proposal",
		"deal_id": deal.ID.String(),
		"due_at":  "2030-01-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task models.Activity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))

	rec = doJSON(t, srv, http.MethodGet, "/api/activities?open_tasks=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []models.Activity `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)

	rec = doJSON(t, srv, http.MethodPost, "/api/activities/"+task.ID.String()+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.True(t, task.Completed)

	rec = doJSON(t, srv, http.MethodPost, "/api/activities", map[string]string{"type": "fax", "subject": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/activities", map[string]string{"type": "task", "subject": "x", "due_at": "someday"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCoachWithoutModel(t *testing.T) {
	srv, _ := setupTestServer(t, nil)
	deal := createDeal(t, srv, map[string]interface{}{"name": "Soylent"})

	rec := doJSON(t, srv, http.MethodPost, "/api/deals/"+deal.ID.String()+"/coach", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestConversationAnalysis(t *testing.T) {
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	reply := "SUMMARY: Buyer wants a pilot.\nSENTIMENT: neutral\nKEY POINTS:\n- Pilot first\nOBJECTIONS: None\nNEXT STEPS:\n- Scope pilot\nRECOMMENDED STAGE: qualified\nWIN PROBABILITY: 35%"
	analyzer := coach.NewAnalyzer(database, &scriptedCompleter{reply: reply}, zerolog.Nop())
	srv := New(Config{Log: zerolog.Nop(), DB: database, Analyzer: analyzer, DevMode: true})

	deal := createDeal(t, srv, map[string]interface{}{"name": "Hooli", "stage": "lead"})

	rec := doJSON(t, srv, http.MethodPost, "/api/deals/"+deal.ID.String()+"/conversations", map[string]string{
		"channel":    "call",
		"transcript": "We would like to start with a pilot.",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var conv models.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

	rec = doJSON(t, srv, http.MethodPost, "/api/conversations/"+conv.ID.String()+"/analyze", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var analysis models.ConversationAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, models.StageQualified, analysis.RecommendedStage)
	assert.Equal(t, []string{"Pilot first"}, analysis.KeyPoints)
	assert.Empty(t, analysis.Objections)

	// analysis recommends but never moves the deal
	rec = doJSON(t, srv, http.MethodGet, "/api/deals/"+deal.ID.String(), nil)
	var stored models.Deal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, models.StageLead, stored.Stage)

	rec = doJSON(t, srv, http.MethodGet, "/api/deals/"+deal.ID.String()+"/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var convs struct {
		Data []models.ConversationWithAnalysis `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convs))
	require.Len(t, convs.Data, 1)
	require.NotNil(t, convs.Data[0].Analysis)
	assert.Equal(t, analysis.ID, convs.Data[0].Analysis.ID)

	rec = doJSON(t, srv, http.MethodPost, "/api/deals/"+deal.ID.String()+"/coach", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestConversationForMissingDeal(t *testing.T) {
	srv, _ := setupTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/deals/00000000-0000-0000-0000-000000000002/conversations",
		map[string]string{"transcript": "hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerClockIsInjectable(t *testing.T) {
	srv, _ := setupTestServer(t, nil)
	fixed := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return fixed }

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"generated_at":"2030-06-01T12:00:00Z"`)
}
