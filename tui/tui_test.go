// ABOUTME: Tests for the kanban board model
// ABOUTME: Drives key presses and commands against an in-memory store
package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/harperreed/salescrm/models"
	"github.com/harperreed/salescrm/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	deals     []models.Deal
	updateErr error
}

func (s *memoryStore) ListDeals(_ context.Context) ([]models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Deal, len(s.deals))
	for i, d := range s.deals {
		out[i] = d.Clone()
	}
	return out, nil
}

func (s *memoryStore) UpdateDealStage(_ context.Context, id uuid.UUID, stage models.Stage) (*models.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	for i := range s.deals {
		if s.deals[i].ID == id {
			s.deals[i].Stage = stage
			d := s.deals[i].Clone()
			return &d, nil
		}
	}
	return nil, models.ErrNotFound
}

func amount(v float64) *float64 { return &v }

func newBoard(t *testing.T, store *memoryStore) Model {
	t.Helper()
	ctrl := pipeline.NewController(store, pipeline.NewCollection(nil), zerolog.Nop())
	m := NewModel(context.Background(), ctrl)
	return update(t, m, m.load()())
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends a key and runs any resulting move to completion.
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(k)
	m = next.(Model)
	for _, msg := range collect(cmd) {
		if _, ok := msg.(movedMsg); ok {
			m = update(t, m, msg)
		}
	}
	return m
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBoardRendersSixColumns(t *testing.T) {
	store := &memoryStore{deals: []models.Deal{
		{ID: uuid.New(), Name: "Acme", Stage: models.StageLead, Amount: amount(1000)},
		{ID: uuid.New(), Name: "Globex", Stage: models.StageWon, Amount: amount(9000)},
		{ID: uuid.New(), Name: "Odd", Stage: "archived"},
	}}
	m := newBoard(t, store)

	view := m.View()
	for _, label := range []string{"Lead (1)", "Qualified (0)", "Proposal (0)", "Negotiation (0)", "Won (1)", "Lost (0)"} {
		assert.Contains(t, view, label)
	}
	assert.Contains(t, view, "Acme")
	assert.Contains(t, view, "1 deal(s) with unknown stage")
}

func TestBoardMoveForwardPersistsAndResummarizes(t *testing.T) {
	id := uuid.New()
	store := &memoryStore{deals: []models.Deal{
		{ID: id, Name: "Acme", Stage: models.StageLead, Amount: amount(1000)},
	}}
	m := newBoard(t, store)

	m = press(t, m, runes("]"))

	assert.False(t, m.moving)
	assert.NoError(t, m.err)
	assert.Equal(t, 1, m.col, "selection follows the deal")
	assert.Equal(t, models.StageQualified, store.deals[0].Stage)

	view := m.View()
	assert.Contains(t, view, "Lead (0)")
	assert.Contains(t, view, "Qualified (1)")
	assert.Contains(t, view, "Moved Acme to Qualified")
	_, dragging := m.ctrl.Deals().Dragging()
	assert.False(t, dragging)
}

func TestBoardMoveRollsBackOnRejection(t *testing.T) {
	id := uuid.New()
	store := &memoryStore{
		deals:     []models.Deal{{ID: id, Name: "Acme", Stage: models.StageProposal, Amount: amount(500)}},
		updateErr: &models.RejectedError{Status: 500, Message: "boom"},
	}
	m := newBoard(t, store)
	m = press(t, m, runes("l"))
	m = press(t, m, runes("l"))
	require.Equal(t, 2, m.col)

	m = press(t, m, runes("]"))

	require.Error(t, m.err)
	deal, ok := m.ctrl.Deals().Get(id)
	require.True(t, ok)
	assert.Equal(t, models.StageProposal, deal.Stage)
	assert.Equal(t, 2, m.col)

	view := m.View()
	assert.Contains(t, view, "Proposal (1)")
	assert.Contains(t, view, "Negotiation (0)")
	assert.Contains(t, view, "Move failed")
}

func TestBoardIgnoresMovesPastTheEdges(t *testing.T) {
	store := &memoryStore{deals: []models.Deal{{ID: uuid.New(), Name: "Acme", Stage: models.StageLead}}}
	m := newBoard(t, store)

	next, cmd := m.Update(runes("["))
	assert.Nil(t, cmd)
	assert.False(t, next.(Model).moving)
}

func TestBoardNavigationAndDetail(t *testing.T) {
	store := &memoryStore{deals: []models.Deal{
		{ID: uuid.New(), Name: "Beta", Stage: models.StageLead},
		{ID: uuid.New(), Name: "Alpha", Stage: models.StageLead},
		{ID: uuid.New(), Name: "Won one", Stage: models.StageWon, Amount: amount(42000)},
	}}
	m := newBoard(t, store)

	deal, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "Alpha", deal.Name, "columns sort by name")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	deal, _ = m.selected()
	assert.Equal(t, "Beta", deal.Name)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.row, "row clamps to the column")

	for range 4 {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewDetail, m.viewMode)
	assert.Contains(t, m.View(), "Won one")
	assert.Contains(t, m.View(), "$42.0K")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewBoard, m.viewMode)
}

func TestBoardLoadError(t *testing.T) {
	ctrl := pipeline.NewController(&failingStore{}, pipeline.NewCollection(nil), zerolog.Nop())
	m := NewModel(context.Background(), ctrl)
	m = update(t, m, m.load()())

	assert.False(t, m.loading)
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "unreachable")
}

type failingStore struct{}

func (failingStore) ListDeals(context.Context) ([]models.Deal, error) {
	return nil, errors.New("unreachable")
}

func (failingStore) UpdateDealStage(context.Context, uuid.UUID, models.Stage) (*models.Deal, error) {
	return nil, errors.New("unreachable")
}
