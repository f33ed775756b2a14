// ABOUTME: Universal query tool handler
// ABOUTME: Implements flexible filtering across contacts, companies, deals and activities
package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type QueryHandlers struct {
	db *sql.DB
}

func NewQueryHandlers(database *sql.DB) *QueryHandlers {
	return &QueryHandlers{db: database}
}

type QueryCRMInput struct {
	EntityType string                 `json:"entity_type" jsonschema:"Type of entity to query (contact, company, deal, activity)"`
	Query      string                 `json:"query,omitempty" jsonschema:"Search query (for name/email/domain)"`
	Filters    map[string]interface{} `json:"filters,omitempty" jsonschema:"Additional filters: company_id, contact_id, deal_id, stage, min_amount, max_amount, open_tasks"`
	Limit      int                    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type QueryCRMOutput struct {
	EntityType string        `json:"entity_type"`
	Results    []interface{} `json:"results"`
	Count      int           `json:"count"`
}

func (h *QueryHandlers) QueryCRM(ctx context.Context, req *mcp.CallToolRequest, input QueryCRMInput) (*mcp.CallToolResult, QueryCRMOutput, error) {
	if input.Limit == 0 {
		input.Limit = 10
	}

	var results []interface{}
	var err error

	switch input.EntityType {
	case "contact":
		results, err = h.queryContacts(ctx, input)
	case "company":
		results, err = h.queryCompanies(ctx, input)
	case "deal":
		results, err = h.queryDeals(ctx, input)
	case "activity":
		results, err = h.queryActivities(ctx, input)
	default:
		return nil, QueryCRMOutput{}, fmt.Errorf("invalid entity_type: %q (valid: contact, company, deal, activity)", input.EntityType)
	}
	if err != nil {
		return nil, QueryCRMOutput{}, err
	}

	if results == nil {
		results = []interface{}{}
	}
	return nil, QueryCRMOutput{
		EntityType: input.EntityType,
		Results:    results,
		Count:      len(results),
	}, nil
}

func (h *QueryHandlers) queryContacts(ctx context.Context, input QueryCRMInput) ([]interface{}, error) {
	companyID, err := parseOptionalID("company_id", stringFilter(input.Filters, "company_id"))
	if err != nil {
		return nil, err
	}

	contacts, err := db.FindContacts(ctx, h.db, input.Query, companyID, input.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find contacts: %w", err)
	}

	results := make([]interface{}, len(contacts))
	for i := range contacts {
		results[i] = contactToOutput(&contacts[i])
	}
	return results, nil
}

func (h *QueryHandlers) queryCompanies(ctx context.Context, input QueryCRMInput) ([]interface{}, error) {
	companies, err := db.FindCompanies(ctx, h.db, input.Query, input.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find companies: %w", err)
	}

	results := make([]interface{}, len(companies))
	for i := range companies {
		results[i] = companyToOutput(&companies[i])
	}
	return results, nil
}

// queryDeals applies the amount range in memory after the SQL filters, so the
// limit counts deals before the range is checked.
func (h *QueryHandlers) queryDeals(ctx context.Context, input QueryCRMInput) ([]interface{}, error) {
	filter := db.DealFilter{
		Stage: models.Stage(stringFilter(input.Filters, "stage")),
		Query: input.Query,
		Limit: input.Limit,
	}

	var err error
	if filter.CompanyID, err = parseOptionalID("company_id", stringFilter(input.Filters, "company_id")); err != nil {
		return nil, err
	}
	if filter.ContactID, err = parseOptionalID("contact_id", stringFilter(input.Filters, "contact_id")); err != nil {
		return nil, err
	}

	minAmount, hasMin := numberFilter(input.Filters, "min_amount")
	maxAmount, hasMax := numberFilter(input.Filters, "max_amount")

	deals, _, err := db.ListDeals(ctx, h.db, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find deals: %w", err)
	}

	var results []interface{}
	for i := range deals {
		amount := deals[i].AmountValue()
		if hasMin && amount < minAmount {
			continue
		}
		if hasMax && amount > maxAmount {
			continue
		}
		results = append(results, dealToOutput(&deals[i]))
	}
	return results, nil
}

func (h *QueryHandlers) queryActivities(ctx context.Context, input QueryCRMInput) ([]interface{}, error) {
	filter := db.ActivityFilter{Limit: input.Limit}

	var err error
	if filter.DealID, err = parseOptionalID("deal_id", stringFilter(input.Filters, "deal_id")); err != nil {
		return nil, err
	}
	if filter.ContactID, err = parseOptionalID("contact_id", stringFilter(input.Filters, "contact_id")); err != nil {
		return nil, err
	}
	if open, ok := input.Filters["open_tasks"].(bool); ok {
		filter.OpenTasks = open
	}

	activities, err := db.ListActivities(ctx, h.db, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find activities: %w", err)
	}

	results := make([]interface{}, len(activities))
	for i := range activities {
		results[i] = activityToOutput(&activities[i])
	}
	return results, nil
}

func stringFilter(filters map[string]interface{}, key string) string {
	if s, ok := filters[key].(string); ok {
		return s
	}
	return ""
}

func numberFilter(filters map[string]interface{}, key string) (float64, bool) {
	f, ok := filters[key].(float64)
	return f, ok
}
