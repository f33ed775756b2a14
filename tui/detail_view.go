package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/salescrm/viz"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DEAL"))
	s.WriteString("\n")

	deal, ok := m.selected()
	if !ok {
		s.WriteString("No deal selected\n")
		s.WriteString(helpStyle.Render("esc: back • q: quit"))
		return s.String()
	}

	s.WriteString(m.renderField("Name", deal.Name))
	s.WriteString(m.renderField("Stage", stageLabel(deal.Stage)))
	if deal.Amount != nil {
		s.WriteString(m.renderField("Amount", viz.FormatMoney(*deal.Amount)))
	} else {
		s.WriteString(m.renderField("Amount", "unknown"))
	}
	s.WriteString(m.renderField("Probability", fmt.Sprintf("%d%%", deal.Probability)))
	if deal.ExpectedCloseDate != nil {
		s.WriteString(m.renderField("Expected Close", deal.ExpectedCloseDate.Format("2006-01-02")))
	}
	s.WriteString(m.renderField("Updated", deal.UpdatedAt.Format("2006-01-02 15:04")))
	s.WriteString(m.renderField("Description", deal.Description))
	s.WriteString(m.renderField("ID", deal.ID.String()))

	s.WriteString(helpStyle.Render("esc: back • q: quit"))
	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fieldLabelStyle.Render(label+":") + " " + fieldValueStyle.Render(value) + "\n"
}
