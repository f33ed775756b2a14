// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements create_deal, update_deal, move_deal, list_deals, delete_deal and pipeline_summary tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

type DealHandlers struct {
	db   *sql.DB
	ctrl *pipeline.Controller
}

// NewDealHandlers wires the tools to the database. Stage moves go through a
// pipeline controller backed by the same database.
func NewDealHandlers(database *sql.DB, log zerolog.Logger) *DealHandlers {
	return &DealHandlers{
		db:   database,
		ctrl: pipeline.NewController(db.NewDealStore(database), pipeline.NewCollection(nil), log),
	}
}

type CreateDealInput struct {
	Name              string   `json:"name" jsonschema:"Deal name (required)"`
	Description       string   `json:"description,omitempty" jsonschema:"Free-form description"`
	Amount            *float64 `json:"amount,omitempty" jsonschema:"Deal value; omit when unknown"`
	Stage             string   `json:"stage,omitempty" jsonschema:"Deal stage: lead, qualified, proposal, negotiation, won, lost (default lead)"`
	Probability       *int     `json:"probability,omitempty" jsonschema:"Win probability 0-100 (defaults by stage)"`
	CompanyName       string   `json:"company_name,omitempty" jsonschema:"Company name (will be looked up or created)"`
	ContactName       string   `json:"contact_name,omitempty" jsonschema:"Contact name (optional, must already exist)"`
	ExpectedCloseDate string   `json:"expected_close_date,omitempty" jsonschema:"Expected close date, YYYY-MM-DD or RFC3339"`
	InitialNote       string   `json:"initial_note,omitempty" jsonschema:"Initial note logged as an activity on the deal"`
}

type DealOutput struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	Amount            *float64 `json:"amount,omitempty"`
	Stage             string   `json:"stage"`
	StageLabel        string   `json:"stage_label,omitempty"`
	Probability       int      `json:"probability"`
	CompanyID         *string  `json:"company_id,omitempty"`
	ContactID         *string  `json:"contact_id,omitempty"`
	ExpectedCloseDate *string  `json:"expected_close_date,omitempty"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

func (h *DealHandlers) CreateDeal(ctx context.Context, request *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	dealInput := models.DealInput{
		Name:        &input.Name,
		Amount:      input.Amount,
		Probability: input.Probability,
		CreatedBy:   "mcp",
	}
	if input.Description != "" {
		dealInput.Description = &input.Description
	}
	if input.Stage != "" {
		dealInput.Stage = &input.Stage
	}
	if input.ExpectedCloseDate != "" {
		dealInput.ExpectedCloseDate = &input.ExpectedCloseDate
	}

	deal, err := models.ValidateForPersist(dealInput)
	if err != nil {
		return nil, DealOutput{}, err
	}

	if input.CompanyName != "" {
		company, err := db.FindOrCreateCompany(ctx, h.db, input.CompanyName)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("failed to lookup company: %w", err)
		}
		deal.CompanyID = &company.ID
	}

	if input.ContactName != "" {
		contacts, err := db.FindContacts(ctx, h.db, input.ContactName, nil, 1)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("failed to lookup contact: %w", err)
		}
		if len(contacts) > 0 {
			deal.ContactID = &contacts[0].ID
		}
	}

	if err := db.CreateDeal(ctx, h.db, deal); err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to create deal: %w", err)
	}

	if input.InitialNote != "" {
		note := &models.Activity{
			Type:      models.ActivityNote,
			Subject:   "Initial note",
			Body:      input.InitialNote,
			DealID:    &deal.ID,
			ContactID: deal.ContactID,
			CreatedBy: "mcp",
		}
		if err := db.LogActivity(ctx, h.db, note); err != nil {
			return nil, DealOutput{}, fmt.Errorf("failed to add initial note: %w", err)
		}

		deal, err = db.GetDeal(ctx, h.db, deal.ID)
		if err != nil {
			return nil, DealOutput{}, fmt.Errorf("failed to reload deal: %w", err)
		}
	}

	return nil, dealToOutput(deal), nil
}

type UpdateDealInput struct {
	ID                string   `json:"id" jsonschema:"Deal ID (required)"`
	Name              *string  `json:"name,omitempty" jsonschema:"Updated deal name"`
	Description       *string  `json:"description,omitempty" jsonschema:"Updated description"`
	Amount            *float64 `json:"amount,omitempty" jsonschema:"Updated deal value"`
	ClearAmount       bool     `json:"clear_amount,omitempty" jsonschema:"Set true to mark the amount as unknown"`
	Stage             *string  `json:"stage,omitempty" jsonschema:"Updated deal stage"`
	Probability       *int     `json:"probability,omitempty" jsonschema:"Updated win probability 0-100"`
	ExpectedCloseDate *string  `json:"expected_close_date,omitempty" jsonschema:"Updated expected close date"`
	ContactID         *string  `json:"contact_id,omitempty" jsonschema:"Link to a contact by ID"`
	CompanyID         *string  `json:"company_id,omitempty" jsonschema:"Link to a company by ID"`
}

// UpdateDeal writes only the fields present in the input.
func (h *DealHandlers) UpdateDeal(ctx context.Context, request *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	dealID, err := parseID("id", input.ID)
	if err != nil {
		return nil, DealOutput{}, err
	}

	patch, err := models.ValidatePatch(models.DealInput{
		Name:              input.Name,
		Description:       input.Description,
		Amount:            input.Amount,
		ClearAmount:       input.ClearAmount,
		Stage:             input.Stage,
		Probability:       input.Probability,
		ExpectedCloseDate: input.ExpectedCloseDate,
		ContactID:         input.ContactID,
		CompanyID:         input.CompanyID,
	})
	if err != nil {
		return nil, DealOutput{}, err
	}
	if patch.IsEmpty() {
		return nil, DealOutput{}, fmt.Errorf("no fields to update")
	}

	deal, err := db.UpdateDealFields(ctx, h.db, dealID, patch)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to update deal: %w", err)
	}

	return nil, dealToOutput(deal), nil
}

type MoveDealInput struct {
	ID    string `json:"id" jsonschema:"Deal ID (required)"`
	Stage string `json:"stage" jsonschema:"Target stage: lead, qualified, proposal, negotiation, won, lost"`
}

type MoveDealOutput struct {
	MoveID     string     `json:"move_id"`
	Status     string     `json:"status"`
	Deal       DealOutput `json:"deal"`
	Reconciled bool       `json:"reconciled"`
}

// MoveDeal changes only the stage, with rollback of the local view if the
// store refuses.
func (h *DealHandlers) MoveDeal(ctx context.Context, request *mcp.CallToolRequest, input MoveDealInput) (*mcp.CallToolResult, MoveDealOutput, error) {
	dealID, err := parseID("id", input.ID)
	if err != nil {
		return nil, MoveDealOutput{}, err
	}

	if err := h.ctrl.Refresh(ctx); err != nil {
		return nil, MoveDealOutput{}, err
	}

	outcome, err := h.ctrl.MoveDeal(ctx, dealID, models.Stage(input.Stage))
	if err != nil {
		return nil, MoveDealOutput{}, err
	}

	deal := outcome.Deal
	return nil, MoveDealOutput{
		MoveID:     outcome.MoveID,
		Status:     string(outcome.Status),
		Deal:       dealToOutput(&deal),
		Reconciled: outcome.Reconciled,
	}, nil
}

type ListDealsInput struct {
	Stage     string `json:"stage,omitempty" jsonschema:"Filter by stage"`
	CompanyID string `json:"company_id,omitempty" jsonschema:"Filter by company ID"`
	ContactID string `json:"contact_id,omitempty" jsonschema:"Filter by contact ID"`
	Query     string `json:"query,omitempty" jsonschema:"Search deal names and descriptions"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 20)"`
	Offset    int    `json:"offset,omitempty" jsonschema:"Number of results to skip"`
}

type ListDealsOutput struct {
	Deals []DealOutput `json:"deals"`
	Total int          `json:"total"`
}

func (h *DealHandlers) ListDeals(ctx context.Context, request *mcp.CallToolRequest, input ListDealsInput) (*mcp.CallToolResult, ListDealsOutput, error) {
	filter := db.DealFilter{
		Stage:  models.Stage(input.Stage),
		Query:  input.Query,
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if filter.Limit == 0 {
		filter.Limit = 20
	}

	var err error
	if filter.CompanyID, err = parseOptionalID("company_id", input.CompanyID); err != nil {
		return nil, ListDealsOutput{}, err
	}
	if filter.ContactID, err = parseOptionalID("contact_id", input.ContactID); err != nil {
		return nil, ListDealsOutput{}, err
	}

	deals, total, err := db.ListDeals(ctx, h.db, filter)
	if err != nil {
		return nil, ListDealsOutput{}, fmt.Errorf("failed to list deals: %w", err)
	}

	result := make([]DealOutput, len(deals))
	for i := range deals {
		result[i] = dealToOutput(&deals[i])
	}

	return nil, ListDealsOutput{Deals: result, Total: total}, nil
}

type DeleteDealInput struct {
	ID string `json:"id" jsonschema:"Deal ID (required)"`
}

type DeleteOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *DealHandlers) DeleteDeal(ctx context.Context, request *mcp.CallToolRequest, input DeleteDealInput) (*mcp.CallToolResult, DeleteOutput, error) {
	dealID, err := parseID("id", input.ID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}

	if err := db.DeleteDeal(ctx, h.db, dealID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete deal: %w", err)
	}

	return nil, DeleteOutput{
		Success: true,
		Message: fmt.Sprintf("Deal %s deleted successfully", dealID),
	}, nil
}

type PipelineSummaryInput struct{}

type StageRow struct {
	Stage      string  `json:"stage"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	TotalValue float64 `json:"total_value"`
}

type PipelineSummaryOutput struct {
	Stages             []StageRow `json:"stages"`
	UnrecognizedCount  int        `json:"unrecognized_count"`
	UnrecognizedValue  float64    `json:"unrecognized_value"`
	UnrecognizedStages []string   `json:"unrecognized_stages,omitempty"`
	TotalDeals         int        `json:"total_deals"`
	TotalPipelineValue float64    `json:"total_pipeline_value"`
	WonValue           float64    `json:"won_value"`
	ConversionRate     float64    `json:"conversion_rate"`
	AverageDealSize    float64    `json:"average_deal_size"`
}

func (h *DealHandlers) PipelineSummary(ctx context.Context, request *mcp.CallToolRequest, input PipelineSummaryInput) (*mcp.CallToolResult, PipelineSummaryOutput, error) {
	deals, err := db.AllDeals(ctx, h.db)
	if err != nil {
		return nil, PipelineSummaryOutput{}, fmt.Errorf("failed to fetch deals: %w", err)
	}

	return nil, snapshotToOutput(pipeline.Summarize(deals)), nil
}

func snapshotToOutput(snap pipeline.Snapshot) PipelineSummaryOutput {
	out := PipelineSummaryOutput{
		UnrecognizedCount:  snap.Unrecognized.Count,
		UnrecognizedValue:  snap.Unrecognized.TotalValue,
		UnrecognizedStages: snap.UnrecognizedStages,
		TotalDeals:         snap.TotalDeals,
		TotalPipelineValue: snap.TotalPipelineValue,
		WonValue:           snap.WonValue,
		ConversionRate:     snap.ConversionRate,
		AverageDealSize:    snap.AverageDealSize,
	}
	for _, row := range snap.Ordered() {
		out.Stages = append(out.Stages, StageRow{
			Stage:      string(row.ID),
			Label:      row.Label,
			Count:      row.Count,
			TotalValue: row.TotalValue,
		})
	}
	return out
}

func dealToOutput(deal *models.Deal) DealOutput {
	output := DealOutput{
		ID:          deal.ID.String(),
		Name:        deal.Name,
		Description: deal.Description,
		Amount:      deal.Amount,
		Stage:       string(deal.Stage),
		Probability: deal.Probability,
		ContactID:   idString(deal.ContactID),
		CompanyID:   idString(deal.CompanyID),
		CreatedAt:   deal.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   deal.UpdatedAt.Format(time.RFC3339),
	}

	if info, ok := models.LookupStage(deal.Stage); ok {
		output.StageLabel = info.Label
	}

	if deal.ExpectedCloseDate != nil {
		ecd := deal.ExpectedCloseDate.Format("2006-01-02")
		output.ExpectedCloseDate = &ecd
	}

	return output
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseID(field, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, models.NewValidationError(field, "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, models.NewValidationError(field, "invalid id: %v", err)
	}
	return id, nil
}

func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
