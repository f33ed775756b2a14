// ABOUTME: Deal validation at the create/edit boundary
// ABOUTME: Turns loosely-typed input into a canonical Deal or a field-level ValidationError
package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DealInput is the loosely-typed shape accepted from API bodies, CLI flags and
// MCP tools. Unknown fields are ignored by the JSON decoder. Title is accepted
// as an alias of Name.
type DealInput struct {
	Name              *string  `json:"name,omitempty"`
	Title             *string  `json:"title,omitempty"`
	Description       *string  `json:"description,omitempty"`
	Amount            *float64 `json:"amount,omitempty"`
	ClearAmount       bool     `json:"clear_amount,omitempty"`
	Stage             *string  `json:"stage,omitempty"`
	Probability       *int     `json:"probability,omitempty"`
	ExpectedCloseDate *string  `json:"expected_close_date,omitempty"`
	ContactID         *string  `json:"contact_id,omitempty"`
	CompanyID         *string  `json:"company_id,omitempty"`
	CreatedBy         string   `json:"created_by,omitempty"`
}

// DealPatch is a validated partial update. Nil fields are left untouched.
type DealPatch struct {
	Name              *string
	Description       *string
	Amount            *float64
	ClearAmount       bool
	Stage             *Stage
	Probability       *int
	ExpectedCloseDate *time.Time
	ContactID         *uuid.UUID
	CompanyID         *uuid.UUID
}

// IsEmpty reports whether the patch changes nothing.
func (p DealPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Amount == nil && !p.ClearAmount &&
		p.Stage == nil && p.Probability == nil && p.ExpectedCloseDate == nil &&
		p.ContactID == nil && p.CompanyID == nil
}

// Apply writes the patch onto d. Timestamps are the caller's business.
func (p DealPatch) Apply(d *Deal) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.ClearAmount {
		d.Amount = nil
	}
	if p.Amount != nil {
		v := *p.Amount
		d.Amount = &v
	}
	if p.Stage != nil {
		d.Stage = *p.Stage
	}
	if p.Probability != nil {
		d.Probability = *p.Probability
	}
	if p.ExpectedCloseDate != nil {
		v := *p.ExpectedCloseDate
		d.ExpectedCloseDate = &v
	}
	if p.ContactID != nil {
		v := *p.ContactID
		d.ContactID = &v
	}
	if p.CompanyID != nil {
		v := *p.CompanyID
		d.CompanyID = &v
	}
}

// ValidateForPersist validates creation input and returns the Deal to insert.
// Stage defaults to lead and probability to the stage default when omitted.
func ValidateForPersist(in DealInput) (*Deal, error) {
	patch, err := ValidatePatch(in)
	if err != nil {
		return nil, err
	}

	if patch.Name == nil || strings.TrimSpace(*patch.Name) == "" {
		return nil, NewValidationError("name", "is required")
	}

	deal := &Deal{
		Stage:     StageLead,
		CreatedBy: in.CreatedBy,
	}
	patch.Apply(deal)

	if patch.Probability == nil {
		deal.Probability = DefaultProbability(deal.Stage)
	}

	return deal, nil
}

// ValidatePatch validates every field present in the input.
func ValidatePatch(in DealInput) (DealPatch, error) {
	var p DealPatch

	name := in.Name
	if name == nil {
		name = in.Title
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return DealPatch{}, NewValidationError("name", "must not be empty")
		}
		p.Name = &trimmed
	}

	p.Description = in.Description

	if in.Amount != nil {
		if math.IsNaN(*in.Amount) || math.IsInf(*in.Amount, 0) {
			return DealPatch{}, NewValidationError("amount", "must be a finite number")
		}
		v := *in.Amount
		p.Amount = &v
	}
	p.ClearAmount = in.ClearAmount && in.Amount == nil

	if in.Stage != nil {
		stage := Stage(strings.TrimSpace(*in.Stage))
		if !IsValidStage(stage) {
			return DealPatch{}, NewValidationError("stage", "invalid stage %q (valid: %s)", *in.Stage, StageNames())
		}
		p.Stage = &stage
	}

	if in.Probability != nil {
		if *in.Probability < 0 || *in.Probability > 100 {
			return DealPatch{}, NewValidationError("probability", "must be between 0 and 100, got %d", *in.Probability)
		}
		v := *in.Probability
		p.Probability = &v
	}

	if in.ExpectedCloseDate != nil && *in.ExpectedCloseDate != "" {
		t, err := ParseDate(*in.ExpectedCloseDate)
		if err != nil {
			return DealPatch{}, NewValidationError("expected_close_date", "use YYYY-MM-DD or RFC3339")
		}
		p.ExpectedCloseDate = &t
	}

	if in.ContactID != nil && *in.ContactID != "" {
		id, err := uuid.Parse(*in.ContactID)
		if err != nil {
			return DealPatch{}, NewValidationError("contact_id", "invalid id: %v", err)
		}
		p.ContactID = &id
	}

	if in.CompanyID != nil && *in.CompanyID != "" {
		id, err := uuid.Parse(*in.CompanyID)
		if err != nil {
			return DealPatch{}, NewValidationError("company_id", "invalid id: %v", err)
		}
		p.CompanyID = &id
	}

	return p, nil
}

// dateLayouts are tried in order. The space-separated timestamp is what
// SQLite's datetime() and many exporters produce.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate accepts a calendar date (2006-01-02), a SQL-style timestamp
// (2006-01-02 15:04:05, read as UTC) or a full RFC3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
