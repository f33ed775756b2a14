// ABOUTME: Conversation logging, analysis and deal coaching endpoints
// ABOUTME: Model-backed routes answer 503 when no language model is configured
package web

import (
	"net/http"

	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
)

type conversationInput struct {
	Channel    string `json:"channel"`
	Transcript string `json:"transcript"`
	CreatedBy  string `json:"created_by"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	dealID, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if _, err := db.GetDeal(r.Context(), s.db, dealID); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	conversations, err := db.ListConversations(r.Context(), s.db, dealID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": conversations})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	dealID, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var input conversationInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	if _, err := db.GetDeal(r.Context(), s.db, dealID); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	conv := &models.Conversation{
		DealID:     dealID,
		Channel:    input.Channel,
		Transcript: input.Transcript,
		CreatedBy:  input.CreatedBy,
	}
	if err := db.CreateConversation(r.Context(), s.db, conv); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.log.Info().Str("deal_id", dealID.String()).Str("conversation_id", conv.ID.String()).Msg("Conversation logged")
	s.writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleAnalyzeConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	analysis, err := s.analyzer.AnalyzeConversation(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleCoachDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	advice, err := s.analyzer.CoachDeal(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, advice)
}
