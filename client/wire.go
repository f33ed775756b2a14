// ABOUTME: Deal shape normalization at the client boundary
// ABOUTME: Accepts title for name and nested contact/company objects for their ids
package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
)

// ref accepts either a bare id string or an object carrying an id.
type ref struct {
	ID *uuid.UUID
}

func (r *ref) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == `""` {
		return nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		return r.set(obj.ID)
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return r.set(raw)
}

func (r *ref) set(raw string) error {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return err
	}
	r.ID = &id
	return nil
}

// wireDeal is every shape a deal may arrive in.
type wireDeal struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Amount            *float64  `json:"amount"`
	Stage             string    `json:"stage"`
	Probability       int       `json:"probability"`
	ExpectedCloseDate string    `json:"expected_close_date"`
	ContactID         ref       `json:"contact_id"`
	CompanyID         ref       `json:"company_id"`
	Contact           ref       `json:"contact"`
	Company           ref       `json:"company"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// toDeal normalizes once so nothing downstream sees the aliases. Stage values
// outside the registry are kept as-is for the aggregator to bucket. An
// unreadable expected_close_date is reported alongside an otherwise complete
// deal with the date left nil.
func (w wireDeal) toDeal() (models.Deal, error) {
	deal := models.Deal{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Amount:      w.Amount,
		Stage:       models.Stage(w.Stage),
		Probability: w.Probability,
		ContactID:   w.ContactID.ID,
		CompanyID:   w.CompanyID.ID,
		CreatedBy:   w.CreatedBy,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	if deal.Name == "" {
		deal.Name = w.Title
	}
	if deal.ContactID == nil {
		deal.ContactID = w.Contact.ID
	}
	if deal.CompanyID == nil {
		deal.CompanyID = w.Company.ID
	}
	if w.ExpectedCloseDate != "" {
		t, err := models.ParseDate(w.ExpectedCloseDate)
		if err != nil {
			return deal, fmt.Errorf("deal %s: bad expected_close_date %q: %w", w.ID, w.ExpectedCloseDate, err)
		}
		deal.ExpectedCloseDate = &t
	}
	return deal, nil
}

func (w wireDeal) toDealPtr() (*models.Deal, error) {
	deal, err := w.toDeal()
	if err != nil {
		return nil, err
	}
	return &deal, nil
}
