// ABOUTME: Company MCP tool handlers
// ABOUTME: Adds, searches and deletes accounts with their pipeline totals attached
package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// companyDealScan bounds how many deals are read per company for totals.
const companyDealScan = 500

type CompanyHandlers struct {
	db *sql.DB
}

func NewCompanyHandlers(database *sql.DB) *CompanyHandlers {
	return &CompanyHandlers{db: database}
}

type AddCompanyInput struct {
	Name     string `json:"name" jsonschema:"Company name (required)"`
	Domain   string `json:"domain,omitempty" jsonschema:"Company domain (e.g., acme.com)"`
	Industry string `json:"industry,omitempty" jsonschema:"Industry or sector"`
	Notes    string `json:"notes,omitempty" jsonschema:"Additional notes about the company"`
}

// CompanyOutput carries the account plus its pipeline position.
type CompanyOutput struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Domain    string  `json:"domain,omitempty"`
	Industry  string  `json:"industry,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	OpenDeals int     `json:"open_deals"`
	OpenValue float64 `json:"open_value"`
	WonValue  float64 `json:"won_value"`
	CreatedAt string  `json:"created_at"`
}

// AddCompany creates a company. A second company with the same name
// (ignoring case) is a conflict, since deals and contacts link by name.
func (h *CompanyHandlers) AddCompany(ctx context.Context, request *mcp.CallToolRequest, input AddCompanyInput) (*mcp.CallToolResult, CompanyOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, CompanyOutput{}, models.NewValidationError("name", "is required")
	}

	existing, err := db.FindCompanyByName(ctx, h.db, name)
	switch {
	case err == nil:
		return nil, CompanyOutput{}, fmt.Errorf("company %q already exists (ID: %s): %w", existing.Name, existing.ID, models.ErrConflict)
	case !errors.Is(err, models.ErrNotFound):
		return nil, CompanyOutput{}, fmt.Errorf("failed to check company: %w", err)
	}

	company := &models.Company{
		Name:     name,
		Domain:   strings.ToLower(strings.TrimSpace(input.Domain)),
		Industry: input.Industry,
		Notes:    input.Notes,
	}
	if err := db.CreateCompany(ctx, h.db, company); err != nil {
		return nil, CompanyOutput{}, fmt.Errorf("failed to create company: %w", err)
	}

	return nil, companyToOutput(company, pipeline.Snapshot{}), nil
}

type FindCompaniesInput struct {
	Query string `json:"query,omitempty" jsonschema:"Search query (searches name and domain)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type FindCompaniesOutput struct {
	Companies []CompanyOutput `json:"companies"`
}

func (h *CompanyHandlers) FindCompanies(ctx context.Context, request *mcp.CallToolRequest, input FindCompaniesInput) (*mcp.CallToolResult, FindCompaniesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	companies, err := db.FindCompanies(ctx, h.db, input.Query, limit)
	if err != nil {
		return nil, FindCompaniesOutput{}, fmt.Errorf("failed to find companies: %w", err)
	}

	out := FindCompaniesOutput{Companies: make([]CompanyOutput, 0, len(companies))}
	for i := range companies {
		id := companies[i].ID
		deals, _, err := db.ListDeals(ctx, h.db, db.DealFilter{CompanyID: &id, Limit: companyDealScan})
		if err != nil {
			return nil, FindCompaniesOutput{}, fmt.Errorf("failed to load deals for %s: %w", companies[i].Name, err)
		}
		out.Companies = append(out.Companies, companyToOutput(&companies[i], pipeline.Summarize(deals)))
	}

	return nil, out, nil
}

type DeleteCompanyInput struct {
	ID string `json:"id" jsonschema:"Company ID (required)"`
}

type DeleteCompanyOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteCompany removes a company that no deal references.
func (h *CompanyHandlers) DeleteCompany(ctx context.Context, request *mcp.CallToolRequest, input DeleteCompanyInput) (*mcp.CallToolResult, DeleteCompanyOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, DeleteCompanyOutput{}, err
	}
	if err := db.DeleteCompany(ctx, h.db, id); err != nil {
		return nil, DeleteCompanyOutput{}, err
	}
	return nil, DeleteCompanyOutput{Deleted: true, ID: id.String()}, nil
}

func companyToOutput(company *models.Company, snap pipeline.Snapshot) CompanyOutput {
	open := 0
	for stage, totals := range snap.Stages {
		if stage.IsOpen() {
			open += totals.Count
		}
	}
	return CompanyOutput{
		ID:        company.ID.String(),
		Name:      company.Name,
		Domain:    company.Domain,
		Industry:  company.Industry,
		Notes:     company.Notes,
		OpenDeals: open,
		OpenValue: snap.TotalPipelineValue,
		WonValue:  snap.WonValue,
		CreatedAt: company.CreatedAt.Format(time.RFC3339),
	}
}
