// ABOUTME: Dashboard statistics and terminal rendering
// ABOUTME: Combines the pipeline snapshot with entity totals, open tasks and stale deals
package viz

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
)

// StaleAfter is how long an open deal may go without an update before it
// needs attention.
const StaleAfter = 14 * 24 * time.Hour

type DashboardStats struct {
	Pipeline       pipeline.Snapshot `json:"pipeline"`
	TotalContacts  int               `json:"total_contacts"`
	TotalCompanies int               `json:"total_companies"`
	TotalDeals     int               `json:"total_deals"`
	OpenTasks      []models.Activity `json:"open_tasks"`
	StaleDeals     []StaleDeal       `json:"stale_deals"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

type StaleDeal struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Stage     models.Stage `json:"stage"`
	DaysSince int          `json:"days_since"`
}

func GenerateDashboardStats(ctx context.Context, database *sql.DB, now time.Time) (*DashboardStats, error) {
	deals, err := db.AllDeals(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	counts, err := db.CountEntities(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}

	tasks, err := db.ListActivities(ctx, database, db.ActivityFilter{OpenTasks: true, Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open tasks: %w", err)
	}

	stale, err := db.StaleDeals(ctx, database, now.Add(-StaleAfter), 10)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stale deals: %w", err)
	}

	stats := &DashboardStats{
		Pipeline:       pipeline.Summarize(deals),
		TotalContacts:  counts.Contacts,
		TotalCompanies: counts.Companies,
		TotalDeals:     counts.Deals,
		OpenTasks:      tasks,
		StaleDeals:     make([]StaleDeal, 0, len(stale)),
		GeneratedAt:    now.UTC(),
	}
	for _, d := range stale {
		stats.StaleDeals = append(stats.StaleDeals, StaleDeal{
			ID:        d.ID.String(),
			Name:      d.Name,
			Stage:     d.Stage,
			DaysSince: int(now.Sub(d.UpdatedAt).Hours() / 24),
		})
	}

	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  SALES PIPELINE DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	RenderPipeline(&out, stats.Pipeline)
	out.WriteString("\n")

	out.WriteString("METRICS\n")
	out.WriteString(fmt.Sprintf("  Open pipeline  %s\n", FormatMoney(stats.Pipeline.TotalPipelineValue)))
	out.WriteString(fmt.Sprintf("  Won            %s\n", FormatMoney(stats.Pipeline.WonValue)))
	out.WriteString(fmt.Sprintf("  Conversion     %.1f%%\n", stats.Pipeline.ConversionRate))
	out.WriteString(fmt.Sprintf("  Avg won deal   %s\n\n", FormatMoney(stats.Pipeline.AverageDealSize)))

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  📇 %d contacts  🏢 %d companies  💼 %d deals\n\n",
		stats.TotalContacts, stats.TotalCompanies, stats.TotalDeals))

	if len(stats.OpenTasks) > 0 {
		out.WriteString("OPEN TASKS\n")
		for _, task := range stats.OpenTasks {
			due := "no due date"
			if task.DueAt != nil {
				due = "due " + task.DueAt.Format("2006-01-02")
			}
			out.WriteString(fmt.Sprintf("  • %s (%s)\n", task.Subject, due))
		}
		out.WriteString("\n")
	}

	if len(stats.StaleDeals) > 0 || stats.Pipeline.Unrecognized.Count > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if len(stats.StaleDeals) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d deals - stale (no update in 14+ days)\n", len(stats.StaleDeals)))
			for _, d := range stats.StaleDeals {
				out.WriteString(fmt.Sprintf("     %s [%s] %dd\n", d.Name, d.Stage, d.DaysSince))
			}
		}
		if stats.Pipeline.Unrecognized.Count > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d deals - unrecognized stage (%s)\n",
				stats.Pipeline.Unrecognized.Count, strings.Join(stats.Pipeline.UnrecognizedStages, ", ")))
		}
	}

	return out.String()
}

// RenderPipeline writes one bar per stage in registry order, scaled to the
// largest stage count.
func RenderPipeline(out *strings.Builder, snap pipeline.Snapshot) {
	rows := snap.Ordered()

	maxCount := 0
	for _, row := range rows {
		if row.Count > maxCount {
			maxCount = row.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, row := range rows {
		barLength := (row.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		out.WriteString(fmt.Sprintf("  %-12s %s  %2d (%s)\n",
			row.Label, bar, row.Count, FormatMoney(row.TotalValue)))
	}
}

// FormatMoney abbreviates amounts: $950, $12.5K, $3.2M.
func FormatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%s$%.1fM", sign, v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%s$%.1fK", sign, v/1e3)
	default:
		return fmt.Sprintf("%s$%.0f", sign, math.Round(v))
	}
}
