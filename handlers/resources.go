// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Provides read-only access to the stage registry, pipeline, deals and companies via crm:// URIs
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ResourceHandlers struct {
	db *sql.DB
}

func NewResourceHandlers(database *sql.DB) *ResourceHandlers {
	return &ResourceHandlers{db: database}
}

// Register adds the fixed resources and the per-record templates.
func (h *ResourceHandlers) Register(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         "crm://stages",
		Name:        "stages",
		Description: "Ordered deal stages",
		MIMEType:    "application/json",
	}, h.ReadResource)
	server.AddResource(&mcp.Resource{
		URI:         "crm://pipeline",
		Name:        "pipeline",
		Description: "Pipeline summary by stage with conversion metrics",
		MIMEType:    "application/json",
	}, h.ReadResource)
	server.AddResource(&mcp.Resource{
		URI:         "crm://deals",
		Name:        "deals",
		Description: "All deals",
		MIMEType:    "application/json",
	}, h.ReadResource)
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "crm://deals/{id}",
		Name:        "deal",
		Description: "One deal with its activities and conversations",
		MIMEType:    "application/json",
	}, h.ReadResource)
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "crm://companies/{id}",
		Name:        "company",
		Description: "One company with its contacts",
		MIMEType:    "application/json",
	}, h.ReadResource)
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "crm://"), "/")

	var data interface{}
	var err error

	switch {
	case parts[0] == "stages" && len(parts) == 1:
		data = models.ListStages()
	case parts[0] == "pipeline" && len(parts) == 1:
		data, err = h.pipeline(ctx)
	case parts[0] == "deals" && len(parts) == 1:
		data, err = db.AllDeals(ctx, h.db)
	case parts[0] == "deals" && len(parts) == 2:
		data, err = h.deal(ctx, parts[1])
	case parts[0] == "companies" && len(parts) == 2:
		data, err = h.company(ctx, parts[1])
	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, err
	}

	text, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(text),
		},
	}}, nil
}

func (h *ResourceHandlers) pipeline(ctx context.Context) (PipelineSummaryOutput, error) {
	deals, err := db.AllDeals(ctx, h.db)
	if err != nil {
		return PipelineSummaryOutput{}, fmt.Errorf("failed to fetch deals: %w", err)
	}
	return snapshotToOutput(pipeline.Summarize(deals)), nil
}

func (h *ResourceHandlers) deal(ctx context.Context, idStr string) (interface{}, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid deal ID: %w", err)
	}

	deal, err := db.GetDeal(ctx, h.db, id)
	if err != nil {
		return nil, err
	}
	activities, err := db.ListActivities(ctx, h.db, db.ActivityFilter{DealID: &id, Limit: 50})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}
	conversations, err := db.ListConversations(ctx, h.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}

	return struct {
		models.Deal
		Activities    []models.Activity                 `json:"activities"`
		Conversations []models.ConversationWithAnalysis `json:"conversations"`
	}{*deal, activities, conversations}, nil
}

func (h *ResourceHandlers) company(ctx context.Context, idStr string) (interface{}, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid company ID: %w", err)
	}

	company, err := db.GetCompany(ctx, h.db, id)
	if err != nil {
		return nil, err
	}
	contacts, err := db.FindContacts(ctx, h.db, "", &id, 1000)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company contacts: %w", err)
	}

	return struct {
		models.Company
		Contacts []models.Contact `json:"contacts"`
	}{*company, contacts}, nil
}
