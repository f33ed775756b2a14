// ABOUTME: Contact and activity MCP tool handlers
// ABOUTME: Implements add_contact, find_contacts, update_contact, delete_contact, log_activity and complete_task tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ContactHandlers struct {
	db *sql.DB
}

func NewContactHandlers(database *sql.DB) *ContactHandlers {
	return &ContactHandlers{db: database}
}

type AddContactInput struct {
	Name        string `json:"name" jsonschema:"Contact name (required)"`
	Email       string `json:"email,omitempty" jsonschema:"Contact email address"`
	Phone       string `json:"phone,omitempty" jsonschema:"Contact phone number"`
	Title       string `json:"title,omitempty" jsonschema:"Job title"`
	CompanyName string `json:"company_name,omitempty" jsonschema:"Company name (will be looked up or created)"`
	Notes       string `json:"notes,omitempty" jsonschema:"Additional notes about the contact"`
}

type ContactOutput struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	Title           string  `json:"title,omitempty"`
	CompanyID       *string `json:"company_id,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	LastContactedAt *string `json:"last_contacted_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func (h *ContactHandlers) AddContact(ctx context.Context, request *mcp.CallToolRequest, input AddContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	contact := &models.Contact{
		Name:  input.Name,
		Email: input.Email,
		Phone: input.Phone,
		Title: input.Title,
		Notes: input.Notes,
	}

	if input.CompanyName != "" {
		company, err := db.FindOrCreateCompany(ctx, h.db, input.CompanyName)
		if err != nil {
			return nil, ContactOutput{}, fmt.Errorf("failed to lookup company: %w", err)
		}
		contact.CompanyID = &company.ID
	}

	if err := db.CreateContact(ctx, h.db, contact); err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to create contact: %w", err)
	}

	return nil, contactToOutput(contact), nil
}

type FindContactsInput struct {
	Query     string `json:"query,omitempty" jsonschema:"Search query (searches name and email)"`
	CompanyID string `json:"company_id,omitempty" jsonschema:"Filter by company ID"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type FindContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
}

func (h *ContactHandlers) FindContacts(ctx context.Context, request *mcp.CallToolRequest, input FindContactsInput) (*mcp.CallToolResult, FindContactsOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}

	companyID, err := parseOptionalID("company_id", input.CompanyID)
	if err != nil {
		return nil, FindContactsOutput{}, err
	}

	contacts, err := db.FindContacts(ctx, h.db, input.Query, companyID, limit)
	if err != nil {
		return nil, FindContactsOutput{}, fmt.Errorf("failed to find contacts: %w", err)
	}

	result := make([]ContactOutput, len(contacts))
	for i := range contacts {
		result[i] = contactToOutput(&contacts[i])
	}

	return nil, FindContactsOutput{Contacts: result}, nil
}

type UpdateContactInput struct {
	ID    string `json:"id" jsonschema:"Contact ID (required)"`
	Name  string `json:"name,omitempty" jsonschema:"Updated contact name"`
	Email string `json:"email,omitempty" jsonschema:"Updated email address"`
	Phone string `json:"phone,omitempty" jsonschema:"Updated phone number"`
	Title string `json:"title,omitempty" jsonschema:"Updated job title"`
	Notes string `json:"notes,omitempty" jsonschema:"Updated notes"`
}

func (h *ContactHandlers) UpdateContact(ctx context.Context, request *mcp.CallToolRequest, input UpdateContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	contactID, err := parseID("id", input.ID)
	if err != nil {
		return nil, ContactOutput{}, err
	}

	contact, err := db.GetContact(ctx, h.db, contactID)
	if err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to get contact: %w", err)
	}

	if input.Name != "" {
		contact.Name = input.Name
	}
	if input.Email != "" {
		contact.Email = input.Email
	}
	if input.Phone != "" {
		contact.Phone = input.Phone
	}
	if input.Title != "" {
		contact.Title = input.Title
	}
	if input.Notes != "" {
		contact.Notes = input.Notes
	}

	if err := db.UpdateContact(ctx, h.db, contact); err != nil {
		return nil, ContactOutput{}, fmt.Errorf("failed to update contact: %w", err)
	}

	return nil, contactToOutput(contact), nil
}

type DeleteContactInput struct {
	ID string `json:"id" jsonschema:"Contact ID (required)"`
}

func (h *ContactHandlers) DeleteContact(ctx context.Context, request *mcp.CallToolRequest, input DeleteContactInput) (*mcp.CallToolResult, DeleteOutput, error) {
	contactID, err := parseID("id", input.ID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := db.DeleteContact(ctx, h.db, contactID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete contact: %w", err)
	}

	return nil, DeleteOutput{
		Success: true,
		Message: fmt.Sprintf("Deleted contact: %s", contactID),
	}, nil
}

type LogActivityInput struct {
	Type      string `json:"type" jsonschema:"Activity type: call, email, meeting, note, task"`
	Subject   string `json:"subject" jsonschema:"Short subject line (required)"`
	Body      string `json:"body,omitempty" jsonschema:"Details of the interaction"`
	DealID    string `json:"deal_id,omitempty" jsonschema:"Related deal ID"`
	ContactID string `json:"contact_id,omitempty" jsonschema:"Related contact ID"`
	CompanyID string `json:"company_id,omitempty" jsonschema:"Related company ID"`
	DueAt     string `json:"due_at,omitempty" jsonschema:"Due date for tasks, YYYY-MM-DD or RFC3339"`
}

type ActivityOutput struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Subject     string  `json:"subject"`
	Body        string  `json:"body,omitempty"`
	DealID      *string `json:"deal_id,omitempty"`
	ContactID   *string `json:"contact_id,omitempty"`
	CompanyID   *string `json:"company_id,omitempty"`
	DueAt       *string `json:"due_at,omitempty"`
	Completed   bool    `json:"completed"`
	CompletedAt *string `json:"completed_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// LogActivity records an interaction. Non-task activities linked to a contact
// update that contact's last contacted timestamp.
func (h *ContactHandlers) LogActivity(ctx context.Context, request *mcp.CallToolRequest, input LogActivityInput) (*mcp.CallToolResult, ActivityOutput, error) {
	activity := &models.Activity{
		Type:      input.Type,
		Subject:   input.Subject,
		Body:      input.Body,
		CreatedBy: "mcp",
	}

	var err error
	if activity.DealID, err = parseOptionalID("deal_id", input.DealID); err != nil {
		return nil, ActivityOutput{}, err
	}
	if activity.ContactID, err = parseOptionalID("contact_id", input.ContactID); err != nil {
		return nil, ActivityOutput{}, err
	}
	if activity.CompanyID, err = parseOptionalID("company_id", input.CompanyID); err != nil {
		return nil, ActivityOutput{}, err
	}
	if input.DueAt != "" {
		due, err := models.ParseDate(input.DueAt)
		if err != nil {
			return nil, ActivityOutput{}, models.NewValidationError("due_at", "use YYYY-MM-DD or RFC3339")
		}
		activity.DueAt = &due
	}

	if err := db.LogActivity(ctx, h.db, activity); err != nil {
		return nil, ActivityOutput{}, fmt.Errorf("failed to log activity: %w", err)
	}

	return nil, activityToOutput(activity), nil
}

type CompleteTaskInput struct {
	ID string `json:"id" jsonschema:"Activity ID (required)"`
}

func (h *ContactHandlers) CompleteTask(ctx context.Context, request *mcp.CallToolRequest, input CompleteTaskInput) (*mcp.CallToolResult, ActivityOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, ActivityOutput{}, err
	}

	activity, err := db.CompleteActivity(ctx, h.db, id)
	if err != nil {
		return nil, ActivityOutput{}, fmt.Errorf("failed to complete task: %w", err)
	}

	return nil, activityToOutput(activity), nil
}

func contactToOutput(contact *models.Contact) ContactOutput {
	output := ContactOutput{
		ID:        contact.ID.String(),
		Name:      contact.Name,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Title:     contact.Title,
		CompanyID: idString(contact.CompanyID),
		Notes:     contact.Notes,
		CreatedAt: contact.CreatedAt.Format(time.RFC3339),
		UpdatedAt: contact.UpdatedAt.Format(time.RFC3339),
	}

	if contact.LastContactedAt != nil {
		lca := contact.LastContactedAt.Format(time.RFC3339)
		output.LastContactedAt = &lca
	}

	return output
}

func activityToOutput(a *models.Activity) ActivityOutput {
	output := ActivityOutput{
		ID:        a.ID.String(),
		Type:      a.Type,
		Subject:   a.Subject,
		Body:      a.Body,
		DealID:    idString(a.DealID),
		ContactID: idString(a.ContactID),
		CompanyID: idString(a.CompanyID),
		Completed: a.Completed,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	if a.DueAt != nil {
		due := a.DueAt.Format("2006-01-02")
		output.DueAt = &due
	}
	if a.CompletedAt != nil {
		done := a.CompletedAt.Format(time.RFC3339)
		output.CompletedAt = &done
	}
	return output
}
