// ABOUTME: Deal and pipeline endpoints
// ABOUTME: List/get/create/partial-update/delete plus the server-side pipeline summary
package web

import (
	"net/http"

	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/harperreed/salescrm/viz"
)

// Pagination accompanies list responses.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DealList is the list response shape.
type DealList struct {
	Data       []models.Deal `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

func (s *Server) handleListStages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": models.ListStages()})
}

func (s *Server) handleListDeals(w http.ResponseWriter, r *http.Request) {
	companyID, ok := s.queryID(w, r, "company_id")
	if !ok {
		return
	}
	contactID, ok := s.queryID(w, r, "contact_id")
	if !ok {
		return
	}
	afterID, ok := s.queryID(w, r, "after")
	if !ok {
		return
	}

	filter := db.DealFilter{
		Stage:     models.Stage(r.URL.Query().Get("stage")),
		CompanyID: companyID,
		ContactID: contactID,
		Query:     r.URL.Query().Get("q"),
		Limit:     queryInt(r, "limit", 50),
		Offset:    queryInt(r, "offset", 0),
		AfterID:   afterID,
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	if filter.Offset < 0 || filter.AfterID != nil {
		filter.Offset = 0
	}

	deals, total, err := db.ListDeals(r.Context(), s.db, filter)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, DealList{
		Data:       deals,
		Pagination: Pagination{Total: total, Limit: filter.Limit, Offset: filter.Offset},
	})
}

func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	deal, err := db.GetDeal(r.Context(), s.db, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deal)
}

func (s *Server) handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	var input models.DealInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	deal, err := models.ValidateForPersist(input)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	if err := db.CreateDeal(r.Context(), s.db, deal); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.log.Info().Str("deal_id", deal.ID.String()).Str("stage", string(deal.Stage)).Msg("Deal created")
	s.writeJSON(w, http.StatusCreated, deal)
}

// handleUpdateDeal applies only the fields present in the body; a stage move
// sends {"stage": ...} and nothing else is rewritten.
func (s *Server) handleUpdateDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var input models.DealInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	patch, err := models.ValidatePatch(input)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if patch.IsEmpty() {
		s.writeFailure(w, r, models.NewValidationError("", "no updatable fields in request"))
		return
	}

	deal, err := db.UpdateDealFields(r.Context(), s.db, id, patch)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	event := s.log.Info().Str("deal_id", id.String())
	if patch.Stage != nil {
		event = event.Str("stage", string(*patch.Stage))
	}
	event.Msg("Deal updated")

	s.writeJSON(w, http.StatusOK, deal)
}

func (s *Server) handleDeleteDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := db.DeleteDeal(r.Context(), s.db, id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePipelineSummary aggregates in SQL and derives metrics with the same
// code the clients use.
func (s *Server) handlePipelineSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := db.StageTotals(r.Context(), s.db)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	buckets := make(map[models.Stage]pipeline.StageTotals, len(rows))
	for stage, t := range rows {
		buckets[stage] = pipeline.StageTotals{Count: t.Count, TotalValue: t.Value}
	}

	s.writeJSON(w, http.StatusOK, pipeline.FromTotals(buckets))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := viz.GenerateDashboardStats(r.Context(), s.db, s.now())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}
