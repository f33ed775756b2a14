// ABOUTME: Contact, company and activity endpoints
// ABOUTME: CRUD handlers that sit around the deal pipeline
package web

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
)

type contactInput struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Title     *string `json:"title"`
	CompanyID *string `json:"company_id"`
	Notes     *string `json:"notes"`
}

// apply copies present fields onto c. An empty company_id clears the link.
func (in contactInput) apply(c *models.Contact) error {
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Email != nil {
		c.Email = *in.Email
	}
	if in.Phone != nil {
		c.Phone = *in.Phone
	}
	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Notes != nil {
		c.Notes = *in.Notes
	}
	if in.CompanyID != nil {
		id, err := optionalID("company_id", *in.CompanyID)
		if err != nil {
			return err
		}
		c.CompanyID = id
	}
	return nil
}

type companyInput struct {
	Name     *string `json:"name"`
	Domain   *string `json:"domain"`
	Industry *string `json:"industry"`
	Notes    *string `json:"notes"`
}

func (in companyInput) apply(c *models.Company) {
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Domain != nil {
		c.Domain = *in.Domain
	}
	if in.Industry != nil {
		c.Industry = *in.Industry
	}
	if in.Notes != nil {
		c.Notes = *in.Notes
	}
}

type activityInput struct {
	Type      string  `json:"type"`
	Subject   string  `json:"subject"`
	Body      string  `json:"body"`
	DealID    string  `json:"deal_id"`
	ContactID string  `json:"contact_id"`
	CompanyID string  `json:"company_id"`
	DueAt     *string `json:"due_at"`
	CreatedBy string  `json:"created_by"`
}

func (in activityInput) toActivity() (*models.Activity, error) {
	a := &models.Activity{
		Type:      in.Type,
		Subject:   in.Subject,
		Body:      in.Body,
		CreatedBy: in.CreatedBy,
	}

	var err error
	if a.DealID, err = optionalID("deal_id", in.DealID); err != nil {
		return nil, err
	}
	if a.ContactID, err = optionalID("contact_id", in.ContactID); err != nil {
		return nil, err
	}
	if a.CompanyID, err = optionalID("company_id", in.CompanyID); err != nil {
		return nil, err
	}
	if in.DueAt != nil && *in.DueAt != "" {
		due, err := models.ParseDate(*in.DueAt)
		if err != nil {
			return nil, models.NewValidationError("due_at", "use YYYY-MM-DD or RFC3339")
		}
		a.DueAt = &due
	}

	return a, nil
}

func optionalID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, models.NewValidationError(field, "invalid id: %v", err)
	}
	return &id, nil
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	companyID, ok := s.queryID(w, r, "company_id")
	if !ok {
		return
	}

	contacts, err := db.FindContacts(r.Context(), s.db, r.URL.Query().Get("q"), companyID, queryInt(r, "limit", 50))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": contacts})
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var input contactInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	contact := &models.Contact{}
	if err := input.apply(contact); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := db.CreateContact(r.Context(), s.db, contact); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, contact)
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	contact, err := db.GetContact(r.Context(), s.db, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, contact)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var input contactInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	contact, err := db.GetContact(r.Context(), s.db, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := input.apply(contact); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := db.UpdateContact(r.Context(), s.db, contact); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, contact)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := db.DeleteContact(r.Context(), s.db, id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := db.FindCompanies(r.Context(), s.db, r.URL.Query().Get("q"), queryInt(r, "limit", 50))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": companies})
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var input companyInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	company := &models.Company{}
	input.apply(company)
	if err := db.CreateCompany(r.Context(), s.db, company); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, company)
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	company, err := db.GetCompany(r.Context(), s.db, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, company)
}

func (s *Server) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var input companyInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	company, err := db.GetCompany(r.Context(), s.db, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	input.apply(company)
	if err := db.UpdateCompany(r.Context(), s.db, company); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, company)
}

func (s *Server) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := db.DeleteCompany(r.Context(), s.db, id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	dealID, ok := s.queryID(w, r, "deal_id")
	if !ok {
		return
	}
	contactID, ok := s.queryID(w, r, "contact_id")
	if !ok {
		return
	}

	activities, err := db.ListActivities(r.Context(), s.db, db.ActivityFilter{
		DealID:    dealID,
		ContactID: contactID,
		OpenTasks: r.URL.Query().Get("open_tasks") == "true",
		Limit:     queryInt(r, "limit", 50),
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": activities})
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var input activityInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	activity, err := input.toActivity()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := db.LogActivity(r.Context(), s.db, activity); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, activity)
}

func (s *Server) handleCompleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	activity, err := db.CompleteActivity(r.Context(), s.db, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, activity)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := db.DeleteActivity(r.Context(), s.db, id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
