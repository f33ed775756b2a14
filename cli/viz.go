// ABOUTME: Visualization CLI commands
// ABOUTME: Handles viz dashboard and graph generation commands
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/viz"
)

// VizGraphCompanyCommand generates a company graph with its contacts and deals.
func VizGraphCompanyCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("viz graph company", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: stdout)")
	format := fs.String("format", "dot", "Output format: dot or svg")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("company ID required")
	}

	companyID, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid company ID: %w", err)
	}

	dot, err := viz.NewGraphGenerator(database).GenerateCompanyGraph(ctx, companyID)
	if err != nil {
		return err
	}

	return writeGraph(ctx, *output, *format, dot)
}

// VizGraphPipelineCommand generates a deal pipeline graph.
func VizGraphPipelineCommand(ctx context.Context, database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("viz graph pipeline", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: stdout)")
	format := fs.String("format", "dot", "Output format: dot or svg")

	if err := fs.Parse(args); err != nil {
		return err
	}

	dot, err := viz.NewGraphGenerator(database).GeneratePipelineGraph(ctx)
	if err != nil {
		return err
	}

	return writeGraph(ctx, *output, *format, dot)
}

func writeGraph(ctx context.Context, output, format, dot string) error {
	data := []byte(dot + "\n")
	switch format {
	case "dot":
	case "svg":
		svg, err := viz.RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
		data = svg
	default:
		return fmt.Errorf("unknown format %q (use dot or svg)", format)
	}

	if output != "" {
		return os.WriteFile(output, data, 0644)
	}
	_, err := stdout.Write(data)
	return err
}

// VizDashboardCommand prints the pipeline dashboard.
func VizDashboardCommand(ctx context.Context, database *sql.DB, args []string) error {
	stats, err := viz.GenerateDashboardStats(ctx, database, time.Now())
	if err != nil {
		return fmt.Errorf("failed to generate dashboard stats: %w", err)
	}

	_, _ = fmt.Fprint(stdout, viz.RenderDashboard(stats))
	return nil
}
