// ABOUTME: MCP prompt handlers for reusable sales workflow templates
// ABOUTME: Builds deal-review and pipeline-review prompts from live CRM data
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/harperreed/salescrm/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	db  *sql.DB
	now func() time.Time
}

func NewPromptHandlers(database *sql.DB) *PromptHandlers {
	return &PromptHandlers{db: database, now: time.Now}
}

func (h *PromptHandlers) Register(server *mcp.Server) {
	server.AddPrompt(&mcp.Prompt{
		Name:        "deal-review",
		Description: "Review one deal and suggest how to move it forward",
		Arguments: []*mcp.PromptArgument{
			{Name: "deal_id", Description: "Deal ID", Required: true},
		},
	}, h.GetPrompt)
	server.AddPrompt(&mcp.Prompt{
		Name:        "pipeline-review",
		Description: "Review pipeline health, stale deals and conversion",
	}, h.GetPrompt)
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "deal-review":
		return h.dealReview(ctx, request.Params.Arguments)
	case "pipeline-review":
		return h.pipelineReview(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) dealReview(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	dealID, err := uuid.Parse(args["deal_id"])
	if err != nil {
		return nil, fmt.Errorf("invalid deal_id: %w", err)
	}

	deal, err := db.GetDeal(ctx, h.db, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deal: %w", err)
	}

	activities, err := db.ListActivities(ctx, h.db, db.ActivityFilter{DealID: &dealID, Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Please review this deal:\n\n")
	fmt.Fprintf(&sb, "Name: %s\n", deal.Name)
	fmt.Fprintf(&sb, "Stage: %s\n", deal.Stage)
	if deal.Amount != nil {
		fmt.Fprintf(&sb, "Amount: %s\n", viz.FormatMoney(*deal.Amount))
	}
	fmt.Fprintf(&sb, "Probability: %d%%\n", deal.Probability)
	if deal.ExpectedCloseDate != nil {
		fmt.Fprintf(&sb, "Expected close: %s\n", deal.ExpectedCloseDate.Format("2006-01-02"))
	}
	if deal.CompanyID != nil {
		if company, err := db.GetCompany(ctx, h.db, *deal.CompanyID); err == nil {
			fmt.Fprintf(&sb, "Company: %s\n", company.Name)
		}
	}
	fmt.Fprintf(&sb, "Last updated: %s\n", deal.UpdatedAt.Format("2006-01-02"))

	if len(activities) > 0 {
		sb.WriteString("\nRecent activity:\n")
		for _, a := range activities {
			fmt.Fprintf(&sb, "  - %s [%s] %s\n", a.CreatedAt.Format("2006-01-02"), a.Type, a.Subject)
		}
	}

	sb.WriteString("\nPlease provide:")
	sb.WriteString("\n1. An honest read on where this deal stands")
	sb.WriteString("\n2. Whether the current stage is right")
	sb.WriteString("\n3. The next two or three concrete actions")

	return userPrompt(fmt.Sprintf("Review of deal: %s", deal.Name), sb.String()), nil
}

func (h *PromptHandlers) pipelineReview(ctx context.Context) (*mcp.GetPromptResult, error) {
	deals, err := db.AllDeals(ctx, h.db)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	snap := pipeline.Summarize(deals)

	now := h.now()
	stale, err := db.StaleDeals(ctx, h.db, now.Add(-viz.StaleAfter), 10)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stale deals: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Please analyze the current deal pipeline:\n\n")
	fmt.Fprintf(&sb, "Total deals: %d\n", snap.TotalDeals)
	fmt.Fprintf(&sb, "Open pipeline value: %s\n", viz.FormatMoney(snap.TotalPipelineValue))
	fmt.Fprintf(&sb, "Won value: %s\n", viz.FormatMoney(snap.WonValue))
	fmt.Fprintf(&sb, "Conversion rate: %.1f%%\n\n", snap.ConversionRate)

	sb.WriteString("Pipeline by stage:\n")
	for _, row := range snap.Ordered() {
		fmt.Fprintf(&sb, "  - %s: %d deals, %s\n", row.Label, row.Count, viz.FormatMoney(row.TotalValue))
	}
	if snap.Unrecognized.Count > 0 {
		fmt.Fprintf(&sb, "  - Unrecognized stage: %d deals\n", snap.Unrecognized.Count)
	}

	if len(stale) > 0 {
		sb.WriteString("\nDeals without an update in two weeks:\n")
		for _, d := range stale {
			fmt.Fprintf(&sb, "  - %s (%s, %d days)\n", d.Name, d.Stage, int(now.Sub(d.UpdatedAt).Hours()/24))
		}
	}

	sb.WriteString("\nPlease provide:")
	sb.WriteString("\n1. Analysis of pipeline health and distribution")
	sb.WriteString("\n2. Recommendations for deals that may need attention")
	sb.WriteString("\n3. Suggestions for improving conversion rates")

	return userPrompt("Deal pipeline analysis", sb.String()), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}
