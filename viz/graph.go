// ABOUTME: GraphViz DOT generation for the deal pipeline and company accounts
// ABOUTME: Pipeline graphs show the stage funnel with per-stage totals and member deals
package viz

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/google/uuid"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
)

// maxDealsPerStage caps deal nodes so large pipelines stay readable.
const maxDealsPerStage = 12

type GraphGenerator struct {
	db *sql.DB
}

func NewGraphGenerator(database *sql.DB) *GraphGenerator {
	return &GraphGenerator{db: database}
}

var stageFill = map[models.Stage]string{
	models.StageLead:        "gray90",
	models.StageQualified:   "lightblue",
	models.StageProposal:    "lightyellow",
	models.StageNegotiation: "orange",
	models.StageWon:         "palegreen",
	models.StageLost:        "lightpink",
}

// GeneratePipelineGraph renders every deal grouped under its stage.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context) (string, error) {
	deals, err := db.AllDeals(ctx, g.db)
	if err != nil {
		return "", fmt.Errorf("failed to fetch deals: %w", err)
	}
	return PipelineDOT(ctx, deals)
}

// PipelineDOT builds the funnel graph for an in-memory deal collection.
func PipelineDOT(ctx context.Context, deals []models.Deal) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetLabel("Deal Pipeline")
	graph.SetRankDir(cgraph.LRRank)

	snap := pipeline.Summarize(deals)

	stageNodes := make(map[models.Stage]*cgraph.Node)
	var prev *cgraph.Node
	for _, row := range snap.Ordered() {
		node, err := graph.CreateNodeByName("stage_" + string(row.ID))
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n%d deals\n%s", row.Label, row.Count, FormatMoney(row.TotalValue)))
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor(stageFill[row.ID])
		stageNodes[row.ID] = node

		// lost branches off negotiation instead of following won
		if row.ID == models.StageLost {
			edge, err := graph.CreateEdgeByName("", stageNodes[models.StageNegotiation], node)
			if err != nil {
				return "", fmt.Errorf("failed to create stage edge: %w", err)
			}
			edge.SetStyle("dashed")
			continue
		}
		if prev != nil {
			if _, err := graph.CreateEdgeByName("", prev, node); err != nil {
				return "", fmt.Errorf("failed to create stage edge: %w", err)
			}
		}
		prev = node
	}

	var unrecognized *cgraph.Node
	if snap.Unrecognized.Count > 0 {
		node, err := graph.CreateNodeByName("stage_unrecognized")
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("Unrecognized\n%d deals", snap.Unrecognized.Count))
		node.SetShape("box")
		node.SetStyle("dashed")
		unrecognized = node
	}

	perStage := make(map[models.Stage]int)
	for _, deal := range deals {
		parent, ok := stageNodes[deal.Stage]
		if !ok {
			parent = unrecognized
		}
		if perStage[deal.Stage] >= maxDealsPerStage {
			continue
		}
		perStage[deal.Stage]++

		node, err := graph.CreateNodeByName("deal_" + deal.ID.String()[:8])
		if err != nil {
			return "", fmt.Errorf("failed to create deal node: %w", err)
		}
		label := deal.Name
		if deal.Amount != nil {
			label += "\n" + FormatMoney(*deal.Amount)
		}
		node.SetLabel(label)
		node.SetShape("ellipse")

		if parent != nil {
			edge, err := graph.CreateEdgeByName("", parent, node)
			if err != nil {
				return "", fmt.Errorf("failed to create deal edge: %w", err)
			}
			edge.SetStyle("dotted")
			edge.SetDir("none")
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}

	return buf.String(), nil
}

// GenerateCompanyGraph renders one company with its contacts and deals.
func (g *GraphGenerator) GenerateCompanyGraph(ctx context.Context, companyID uuid.UUID) (string, error) {
	company, err := db.GetCompany(ctx, g.db, companyID)
	if err != nil {
		return "", err
	}
	contacts, err := db.FindContacts(ctx, g.db, "", &companyID, 1000)
	if err != nil {
		return "", fmt.Errorf("failed to fetch contacts: %w", err)
	}
	deals, _, err := db.ListDeals(ctx, g.db, db.DealFilter{CompanyID: &companyID, Limit: 1000})
	if err != nil {
		return "", fmt.Errorf("failed to fetch deals: %w", err)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetLabel(company.Name)

	root, err := graph.CreateNodeByName("company")
	if err != nil {
		return "", fmt.Errorf("failed to create company node: %w", err)
	}
	root.SetLabel(fmt.Sprintf("%s\n(Company)", company.Name))
	root.SetShape("box")
	root.SetStyle("filled")
	root.SetFillColor("lightblue")

	contactNodes := make(map[uuid.UUID]*cgraph.Node)
	for _, contact := range contacts {
		node, err := graph.CreateNodeByName("contact_" + contact.ID.String()[:8])
		if err != nil {
			return "", fmt.Errorf("failed to create contact node: %w", err)
		}
		label := contact.Name
		if contact.Title != "" {
			label += "\n" + contact.Title
		}
		node.SetLabel(label)
		node.SetShape("ellipse")
		node.SetStyle("filled")
		node.SetFillColor("lightgreen")
		contactNodes[contact.ID] = node

		edge, err := graph.CreateEdgeByName("", node, root)
		if err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetLabel("works at")
		edge.SetStyle("dashed")
	}

	for _, deal := range deals {
		node, err := graph.CreateNodeByName("deal_" + deal.ID.String()[:8])
		if err != nil {
			return "", fmt.Errorf("failed to create deal node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n%s\n(%s)", deal.Name, FormatMoney(deal.AmountValue()), deal.Stage))
		node.SetShape("diamond")
		node.SetStyle("filled")
		node.SetFillColor(fillFor(deal.Stage))

		edge, err := graph.CreateEdgeByName("", root, node)
		if err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		edge.SetLabel("deal")

		if deal.ContactID != nil {
			if contactNode, ok := contactNodes[*deal.ContactID]; ok {
				edge, err := graph.CreateEdgeByName("", contactNode, node)
				if err != nil {
					return "", fmt.Errorf("failed to create edge: %w", err)
				}
				edge.SetStyle("dotted")
			}
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}

	return buf.String(), nil
}

func fillFor(stage models.Stage) string {
	if c, ok := stageFill[stage]; ok {
		return c
	}
	return "white"
}

// RenderSVG lays out DOT source and returns it as an SVG document.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}
	defer graph.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render svg: %w", err)
	}
	return buf.Bytes(), nil
}
