package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/harperreed/salescrm/viz"
)

var stageColors = map[models.Stage]lipgloss.Color{
	models.StageLead:        lipgloss.Color("250"),
	models.StageQualified:   lipgloss.Color("39"),
	models.StageProposal:    lipgloss.Color("220"),
	models.StageNegotiation: lipgloss.Color("208"),
	models.StageWon:         lipgloss.Color("42"),
	models.StageLost:        lipgloss.Color("196"),
}

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	activeColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("170"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("170"))

	movingCardStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("244"))
)

// columns groups the collection by stage in registry order. Deals with an
// unrecognized stage are not placed on the board.
func (m Model) columns() [][]models.Deal {
	stages := models.ListStages()
	cols := make([][]models.Deal, len(stages))
	for _, deal := range m.ctrl.Deals().Deals() {
		if idx := models.StageIndex(deal.Stage); idx >= 0 {
			cols[idx] = append(cols[idx], deal)
		}
	}
	for _, col := range cols {
		sort.SliceStable(col, func(i, j int) bool {
			if col[i].Name != col[j].Name {
				return col[i].Name < col[j].Name
			}
			return col[i].ID.String() < col[j].ID.String()
		})
	}
	return cols
}

func (m Model) selected() (models.Deal, bool) {
	cols := m.columns()
	if m.col < 0 || m.col >= len(cols) || m.row < 0 || m.row >= len(cols[m.col]) {
		return models.Deal{}, false
	}
	return cols[m.col][m.row], true
}

func (m *Model) clampSelection() {
	cols := m.columns()
	m.col = min(max(m.col, 0), len(cols)-1)
	m.row = min(m.row, len(cols[m.col])-1)
	m.row = max(m.row, 0)
}

func (m *Model) selectDeal(id uuid.UUID) {
	for c, col := range m.columns() {
		for r, deal := range col {
			if deal.ID == id {
				m.col, m.row = c, r
				return
			}
		}
	}
	m.clampSelection()
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		m.col--
		m.clampSelection()
	case key.Matches(msg, m.keys.Right):
		m.col++
		m.clampSelection()
	case key.Matches(msg, m.keys.Up):
		m.row--
		m.clampSelection()
	case key.Matches(msg, m.keys.Down):
		m.row++
		m.clampSelection()

	case key.Matches(msg, m.keys.MoveBack), key.Matches(msg, m.keys.MoveNext):
		return m.startMove(key.Matches(msg, m.keys.MoveNext))

	case key.Matches(msg, m.keys.Detail):
		if _, ok := m.selected(); ok {
			m.viewMode = ViewDetail
		}
	case key.Matches(msg, m.keys.Graph):
		m.viewMode = ViewGraph
		m.graph.SetContent("Generating graph...")
		return m, m.renderGraph()
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		m.status = ""
		return m, tea.Batch(m.load(), m.spinner.Tick)
	}
	return m, nil
}

// startMove shifts the selected deal one column. The controller applies the
// move to the collection before persisting, so the next render already shows
// the deal in its new column.
func (m Model) startMove(forward bool) (tea.Model, tea.Cmd) {
	if m.moving || m.loading {
		return m, nil
	}
	deal, ok := m.selected()
	if !ok {
		return m, nil
	}

	stages := models.ListStages()
	target := m.col - 1
	if forward {
		target = m.col + 1
	}
	if target < 0 || target >= len(stages) {
		return m, nil
	}

	m.moving = true
	m.err = nil
	m.status = "Moving " + deal.Name + " to " + stages[target].Label
	m.ctrl.Deals().SetDragging(deal.ID)
	return m, tea.Batch(m.move(deal.ID, stages[target].ID), m.spinner.Tick)
}

func (m Model) renderBoardView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("SALES PIPELINE"))
	s.WriteString("\n")

	if m.loading && m.ctrl.Deals().Len() == 0 {
		s.WriteString(m.spinner.View() + " Loading deals...\n")
		return s.String()
	}

	snap := pipeline.Summarize(m.ctrl.Deals().Deals())
	cols := m.columns()
	dragging, isDragging := m.ctrl.Deals().Dragging()

	// content width; each column adds two cells of padding and two of border
	colWidth := max(m.width/len(cols)-4, 12)
	rendered := make([]string, len(cols))
	for i, info := range models.ListStages() {
		totals := snap.Stages[info.ID]
		header := lipgloss.NewStyle().Bold(true).Foreground(stageColors[info.ID]).
			Render(fmt.Sprintf("%s (%d)", info.Label, totals.Count))

		lines := []string{header, viz.FormatMoney(totals.TotalValue), ""}
		for r, deal := range cols[i] {
			label := truncate(deal.Name, colWidth)
			switch {
			case isDragging && deal.ID == dragging:
				lines = append(lines, movingCardStyle.Render(label))
			case i == m.col && r == m.row:
				lines = append(lines, selectedCardStyle.Render(label))
			default:
				lines = append(lines, cardStyle.Render(label))
			}
		}

		style := columnStyle
		if i == m.col {
			style = activeColumnStyle
		}
		rendered[i] = style.Width(colWidth + 2).Render(strings.Join(lines, "\n"))
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	s.WriteString("\n")

	fmt.Fprintf(&s, "Open pipeline %s • Won %s • Conversion %.1f%% • Avg won deal %s\n",
		viz.FormatMoney(snap.TotalPipelineValue), viz.FormatMoney(snap.WonValue),
		snap.ConversionRate, viz.FormatMoney(snap.AverageDealSize))
	if snap.Unrecognized.Count > 0 {
		fmt.Fprintf(&s, "%d deal(s) with unknown stage not shown: %s\n",
			snap.Unrecognized.Count, strings.Join(snap.UnrecognizedStages, ", "))
	}

	switch {
	case m.moving || m.loading:
		s.WriteString(m.spinner.View() + " " + m.status + "\n")
	case m.status != "":
		s.WriteString(statusStyle.Render(m.status) + "\n")
	}
	if m.err != nil {
		s.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return s.String()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
