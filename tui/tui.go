// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Kanban board over the pipeline controller with optimistic stage moves
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/harperreed/salescrm/viz"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewBoard ViewMode = iota
	ViewDetail
	ViewGraph
)

type keyMap struct {
	Left     key.Binding
	Right    key.Binding
	Up       key.Binding
	Down     key.Binding
	MoveBack key.Binding
	MoveNext key.Binding
	Detail   key.Binding
	Graph    key.Binding
	Reload   key.Binding
	Back     key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Up, k.MoveBack, k.MoveNext, k.Detail, k.Graph, k.Reload, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Up, k.Down},
		{k.MoveBack, k.MoveNext},
		{k.Detail, k.Graph, k.Reload, k.Back, k.Quit},
	}
}

var defaultKeys = keyMap{
	Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "column")),
	Right:    key.NewBinding(key.WithKeys("right", "l")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/↓", "deal")),
	Down:     key.NewBinding(key.WithKeys("down", "j")),
	MoveBack: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move back")),
	MoveNext: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move forward")),
	Detail:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "detail")),
	Graph:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "graph")),
	Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the main bubbletea model
type Model struct {
	ctx  context.Context
	ctrl *pipeline.Controller

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	graph   viewport.Model

	viewMode ViewMode
	col      int
	row      int

	loading bool
	moving  bool
	status  string
	err     error

	width  int
	height int
}

type loadedMsg struct{ err error }

type movedMsg struct {
	outcome pipeline.Outcome
	err     error
}

type graphMsg struct {
	dot string
	err error
}

// NewModel creates a board over ctrl. The board never talks to storage
// directly; every read comes from the controller's collection.
func NewModel(ctx context.Context, ctrl *pipeline.Controller) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		keys:    defaultKeys,
		help:    help.New(),
		spinner: sp,
		graph:   viewport.New(80, 18),
		loading: true,
		width:   120,
		height:  30,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.spinner.Tick)
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.ctrl.Refresh(m.ctx)}
	}
}

func (m Model) move(id uuid.UUID, target models.Stage) tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.ctrl.MoveDeal(m.ctx, id, target)
		return movedMsg{outcome: outcome, err: err}
	}
}

func (m Model) renderGraph() tea.Cmd {
	deals := m.ctrl.Deals().Deals()
	return func() tea.Msg {
		dot, err := viz.PipelineDOT(m.ctx, deals)
		return graphMsg{dot: dot, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.graph.Width = msg.Width
		m.graph.Height = max(msg.Height-6, 3)
		return m, nil

	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.status = ""
		}
		m.clampSelection()
		return m, nil

	case movedMsg:
		m.moving = false
		m.err = nil
		deal := msg.outcome.Deal
		switch {
		case msg.err != nil:
			m.err = msg.err
			m.status = "Move failed; " + deal.Name + " stays in " + stageLabel(deal.Stage)
		case msg.outcome.Status == pipeline.OutcomeNoop:
			m.status = deal.Name + " is already in " + stageLabel(deal.Stage)
		default:
			m.status = "Moved " + deal.Name + " to " + stageLabel(deal.Stage)
			if msg.outcome.RefetchErr != nil {
				m.status += " (saved; reload failed, press r)"
			}
		}
		if deal.ID != uuid.Nil {
			m.selectDeal(deal.ID)
		}
		return m, nil

	case graphMsg:
		if msg.err != nil {
			m.err = msg.err
			m.viewMode = ViewBoard
			return m, nil
		}
		m.graph.SetContent(msg.dot)
		m.graph.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.loading && !m.moving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.viewMode == ViewGraph {
		var cmd tea.Cmd
		m.graph, cmd = m.graph.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewDetail:
		return m.renderDetailView()
	case ViewGraph:
		return m.renderGraphView()
	}
	return m.renderBoardView()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewBoard:
		return m.handleBoardKeys(msg)
	case ViewDetail, ViewGraph:
		if key.Matches(msg, m.keys.Back) {
			m.viewMode = ViewBoard
			return m, nil
		}
		if m.viewMode == ViewGraph {
			var cmd tea.Cmd
			m.graph, cmd = m.graph.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func stageLabel(s models.Stage) string {
	if info, ok := models.LookupStage(s); ok {
		return info.Label
	}
	return string(s)
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)
