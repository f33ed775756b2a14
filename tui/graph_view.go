package tui

import (
	"strings"
)

func (m Model) renderGraphView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PIPELINE GRAPH (DOT)"))
	s.WriteString("\n")
	s.WriteString(m.graph.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: scroll • esc: back • q: quit"))

	return s.String()
}
