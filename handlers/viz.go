// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides the generate_graph tool as DOT source or rendered SVG
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	db *sql.DB
}

func NewVizHandlers(database *sql.DB) *VizHandlers {
	return &VizHandlers{db: database}
}

type GenerateGraphInput struct {
	Type     string `json:"type" jsonschema:"Graph type: pipeline or company"`
	EntityID string `json:"entity_id,omitempty" jsonschema:"Company UUID (required for company graphs)"`
	Format   string `json:"format,omitempty" jsonschema:"Output format: dot (default) or svg"`
}

// GenerateGraphOutput holds the graph source. SVG is only set when the svg
// format was requested.
type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	DOTSource string `json:"dot_source"`
	SVG       string `json:"svg,omitempty"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, request *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format != "" && format != "dot" && format != "svg" {
		return nil, GenerateGraphOutput{}, models.NewValidationError("format", "must be dot or svg, got %q", input.Format)
	}

	var (
		dot string
		err error
	)
	generator := viz.NewGraphGenerator(h.db)
	switch input.Type {
	case "pipeline":
		dot, err = generator.GeneratePipelineGraph(ctx)
	case "company":
		companyID, perr := parseID("entity_id", input.EntityID)
		if perr != nil {
			return nil, GenerateGraphOutput{}, perr
		}
		dot, err = generator.GenerateCompanyGraph(ctx, companyID)
	default:
		return nil, GenerateGraphOutput{}, models.NewValidationError("type", "unknown graph type %q (valid types: pipeline, company)", input.Type)
	}
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	out := GenerateGraphOutput{
		GraphType: input.Type,
		DOTSource: dot,
		NodeCount: strings.Count(dot, "label="),
		EdgeCount: strings.Count(dot, "->"),
	}
	if format == "svg" {
		svg, err := viz.RenderSVG(ctx, dot)
		if err != nil {
			return nil, GenerateGraphOutput{}, err
		}
		out.SVG = string(svg)
	}
	return nil, out, nil
}
