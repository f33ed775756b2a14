// ABOUTME: Data models for CRM entities
// ABOUTME: Defines Contact, Company, Deal, Activity, Conversation and analysis structs
package models

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Title           string     `json:"title,omitempty"`
	CompanyID       *uuid.UUID `json:"company_id,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deal is one sales opportunity. Amount is nil when the value is unknown.
type Deal struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Amount            *float64   `json:"amount,omitempty"`
	Stage             Stage      `json:"stage"`
	Probability       int        `json:"probability"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	ContactID         *uuid.UUID `json:"contact_id,omitempty"`
	CompanyID         *uuid.UUID `json:"company_id,omitempty"`
	CreatedBy         string     `json:"created_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AmountValue returns the amount, treating an unset amount as 0.
func (d Deal) AmountValue() float64 {
	if d.Amount == nil {
		return 0
	}
	return *d.Amount
}

// Clone returns a deep copy so pointer fields are not shared with the original.
func (d Deal) Clone() Deal {
	out := d
	if d.Amount != nil {
		v := *d.Amount
		out.Amount = &v
	}
	if d.ExpectedCloseDate != nil {
		v := *d.ExpectedCloseDate
		out.ExpectedCloseDate = &v
	}
	if d.ContactID != nil {
		v := *d.ContactID
		out.ContactID = &v
	}
	if d.CompanyID != nil {
		v := *d.CompanyID
		out.CompanyID = &v
	}
	return out
}

// Activity type constants.
const (
	ActivityCall    = "call"
	ActivityEmail   = "email"
	ActivityMeeting = "meeting"
	ActivityNote    = "note"
	ActivityTask    = "task"
)

// ActivityTypes lists the accepted activity types.
var ActivityTypes = []string{ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityTask}

// IsValidActivityType reports whether t is one of ActivityTypes.
func IsValidActivityType(t string) bool {
	for _, v := range ActivityTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Activity struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body,omitempty"`
	DealID      *uuid.UUID `json:"deal_id,omitempty"`
	ContactID   *uuid.UUID `json:"contact_id,omitempty"`
	CompanyID   *uuid.UUID `json:"company_id,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Conversation is a logged sales conversation (call transcript, email thread, meeting notes).
type Conversation struct {
	ID         uuid.UUID `json:"id"`
	DealID     uuid.UUID `json:"deal_id"`
	Channel    string    `json:"channel,omitempty"`
	Transcript string    `json:"transcript"`
	CreatedBy  string    `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sentiment constants.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// ConversationAnalysis holds the structured fields extracted from an LLM reply.
type ConversationAnalysis struct {
	ID               string    `json:"id"`
	ConversationID   uuid.UUID `json:"conversation_id"`
	DealID           uuid.UUID `json:"deal_id"`
	Summary          string    `json:"summary"`
	Sentiment        string    `json:"sentiment,omitempty"`
	KeyPoints        []string  `json:"key_points"`
	Objections       []string  `json:"objections"`
	NextSteps        []string  `json:"next_steps"`
	RecommendedStage Stage     `json:"recommended_stage,omitempty"`
	WinProbability   *int      `json:"win_probability,omitempty"`
	RawResponse      string    `json:"raw_response"`
	CreatedAt        time.Time `json:"created_at"`
}

// ConversationWithAnalysis pairs a conversation with its latest analysis, if any.
type ConversationWithAnalysis struct {
	Conversation
	Analysis *ConversationAnalysis `json:"analysis,omitempty"`
}
