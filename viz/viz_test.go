// ABOUTME: Tests for dashboard stats, terminal rendering and DOT generation
// ABOUTME: Uses a temp SQLite database for the stats path
package viz

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/salescrm/db"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(v float64) *float64 { return &v }

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$0", FormatMoney(0))
	assert.Equal(t, "$950", FormatMoney(950))
	assert.Equal(t, "$12.5K", FormatMoney(12500))
	assert.Equal(t, "$3.2M", FormatMoney(3_200_000))
	assert.Equal(t, "-$200", FormatMoney(-200))
}

func TestRenderPipelineOrder(t *testing.T) {
	snap := pipeline.Summarize([]models.Deal{
		{ID: uuid.New(), Name: "a", Stage: models.StageWon, Amount: money(5000)},
		{ID: uuid.New(), Name: "b", Stage: models.StageLead},
	})

	var out strings.Builder
	RenderPipeline(&out, snap)
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")

	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "Lead")
	assert.Contains(t, lines[4], "Won")
	assert.Contains(t, lines[4], "$5.0K")
	assert.Contains(t, lines[5], "Lost")
}

func TestGenerateDashboardStats(t *testing.T) {
	ctx := context.Background()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "viz.db"))
	require.NoError(t, err)
	defer database.Close()

	contact := &models.Contact{Name: "Lee"}
	require.NoError(t, db.CreateContact(ctx, database, contact))
	stale := &models.Deal{Name: "Quiet deal", Stage: models.StageProposal, Amount: money(1000)}
	require.NoError(t, db.CreateDeal(ctx, database, stale))
	require.NoError(t, db.CreateDeal(ctx, database, &models.Deal{Name: "Closed", Stage: models.StageWon, Amount: money(4000)}))
	require.NoError(t, db.LogActivity(ctx, database, &models.Activity{Type: models.ActivityTask, Subject: "Chase signature"}))

	later := time.Now().Add(30 * 24 * time.Hour)
	stats, err := GenerateDashboardStats(ctx, database, later)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalContacts)
	assert.Equal(t, 2, stats.TotalDeals)
	assert.Equal(t, 1000.0, stats.Pipeline.TotalPipelineValue)
	assert.Equal(t, 4000.0, stats.Pipeline.WonValue)
	require.Len(t, stats.OpenTasks, 1)
	require.Len(t, stats.StaleDeals, 1, "won deals are never stale")
	assert.Equal(t, "Quiet deal", stats.StaleDeals[0].Name)
	assert.GreaterOrEqual(t, stats.StaleDeals[0].DaysSince, 29)

	rendered := RenderDashboard(stats)
	assert.Contains(t, rendered, "SALES PIPELINE DASHBOARD")
	assert.Contains(t, rendered, "Chase signature")
	assert.Contains(t, rendered, "Quiet deal")
	assert.Contains(t, rendered, "Conversion     50.0%")
}

func TestPipelineDOT(t *testing.T) {
	deals := []models.Deal{
		{ID: uuid.New(), Name: "Initech upgrade", Stage: models.StageNegotiation, Amount: money(20000)},
		{ID: uuid.New(), Name: "Mystery", Stage: "archived"},
	}

	dot, err := PipelineDOT(context.Background(), deals)
	require.NoError(t, err)

	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, "stage_negotiation")
	assert.Contains(t, dot, "Initech upgrade")
	assert.Contains(t, dot, "stage_unrecognized")
}

func TestRenderSVG(t *testing.T) {
	ctx := context.Background()
	dot, err := PipelineDOT(ctx, []models.Deal{
		{ID: uuid.New(), Name: "Hooli pilot", Stage: models.StageQualified, Amount: money(1500)},
	})
	require.NoError(t, err)

	svg, err := RenderSVG(ctx, dot)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.Contains(t, string(svg), "Hooli pilot")

	_, err = RenderSVG(ctx, "digraph {")
	assert.Error(t, err)
}
