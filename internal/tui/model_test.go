package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roadsafety-cli/internal/model"
	"github.com/sells-group/roadsafety-cli/internal/pipeline"
	"github.com/sells-group/roadsafety-cli/pkg/roadsafety"
	"github.com/sells-group/roadsafety-cli/pkg/roadsafety/mocks"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newUploaded(t *testing.T, backend *mocks.MockClient) *pipeline.Coordinator {
	t.Helper()
	c := pipeline.NewCoordinator(backend)
	require.NoError(t, c.Ingest(&roadsafety.ExtractResponse{
		Filename: "audit.pdf",
		Interventions: []roadsafety.ExtractedIntervention{
			{Intervention: "Install crash barrier", Chainage: "362+380 to 362+500"},
			{Intervention: "Repaint zebra crossing", Chainage: "4+200"},
		},
	}))
	return c
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func TestNew_EntersReview(t *testing.T) {
	c := newUploaded(t, mocks.NewMockClient(t))
	m := New(context.Background(), c)

	assert.Len(t, m.records, 2)
	assert.Equal(t, pipeline.StageReviewing, c.Stage())
	assert.Equal(t, model.FieldIntervention, m.field)
	assert.Contains(t, m.View(), "Review Interventions")
	assert.Contains(t, m.View(), "362+380 – 362+500 (120 m)")
}

func TestNew_WithoutUpload(t *testing.T) {
	m := New(context.Background(), pipeline.NewCoordinator(mocks.NewMockClient(t)))

	assert.Empty(t, m.records)
	assert.Contains(t, m.View(), "Please upload the PDF again")
}

func TestNavigation(t *testing.T) {
	m := New(context.Background(), newUploaded(t, mocks.NewMockClient(t)))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, keyRunes("j"))
	assert.Equal(t, 1, m.cursor, "cursor stops at last row")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, model.FieldChainage, m.field)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, model.FieldIntervention, m.field)
}

func TestEditChainage(t *testing.T) {
	c := newUploaded(t, mocks.NewMockClient(t))
	m := New(context.Background(), c)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.editing)
	assert.Equal(t, "4+200", m.input)

	for range 3 {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	}
	m, _ = update(t, m, keyRunes("250"))
	m, _ = update(t, m, keyRunes("s"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.editing)
	assert.Equal(t, "4+250", m.records[1].Chainage)
	assert.Equal(t, "4+250", c.Snapshot().Interventions[1].Chainage)
	assert.Equal(t, "Repaint zebra crossing", c.Snapshot().Interventions[1].Intervention)
}

func TestEditCancel(t *testing.T) {
	c := newUploaded(t, mocks.NewMockClient(t))
	m := New(context.Background(), c)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, keyRunes("xyz"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.editing)
	assert.Equal(t, "Install crash barrier", c.Snapshot().Interventions[0].Intervention)
}

func TestSubmitThenSummaryAndAnalytics(t *testing.T) {
	backend := mocks.NewMockClient(t)
	backend.On("ProcessAll", mock.Anything, mock.Anything).Return(&roadsafety.EstimateResponse{
		GrandTotal: 1500,
		Interventions: []roadsafety.EstimatedIntervention{
			{Intervention: "Install crash barrier", ClauseUsed: "IRC:119 3.2", Cost: &roadsafety.Cost{TotalCost: 1000}},
			{Intervention: "Repaint zebra crossing", ClauseUsed: "IRC:35 4.1", Cost: &roadsafety.Cost{TotalCost: 500}},
		},
		Demographics: &roadsafety.Demographics{
			KPIs:      roadsafety.KPIs{TotalInterventions: 2, UniqueClauses: 2, GrandTotal: 1500},
			Materials: map[string]float64{"W-beam": 1000},
		},
	}, nil).Once()

	m := New(context.Background(), newUploaded(t, backend))

	m, cmd := update(t, m, keyRunes("s"))
	require.NotNil(t, cmd)
	assert.True(t, m.submitting)
	assert.Contains(t, m.View(), "Computing cost estimates")

	m, again := update(t, m, keyRunes("s"))
	assert.Nil(t, again, "second submit ignored while in flight")

	m, _ = update(t, m, cmd())
	assert.False(t, m.submitting)
	require.NotNil(t, m.Summary())
	assert.Equal(t, 2, m.Summary().TotalInterventions)
	assert.Contains(t, m.View(), "Cost Summary Report")

	m, _ = update(t, m, keyRunes("a"))
	assert.True(t, m.showAnalytics)
	assert.Contains(t, m.View(), "Cost Analytics")

	m, _ = update(t, m, keyRunes("a"))
	assert.False(t, m.showAnalytics)
}

func TestSubmitFailureKeepsReview(t *testing.T) {
	backend := mocks.NewMockClient(t)
	backend.On("ProcessAll", mock.Anything, mock.Anything).
		Return(nil, &roadsafety.StatusError{Op: "process-all", StatusCode: 503}).Once()

	c := newUploaded(t, backend)
	m := New(context.Background(), c)

	m, cmd := update(t, m, keyRunes("s"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Nil(t, m.Summary())
	assert.Equal(t, pipeline.StageReviewing, c.Stage())
	assert.Contains(t, m.notice, "unavailable")
	assert.Len(t, m.records, 2)
}

func TestQuit(t *testing.T) {
	m := New(context.Background(), newUploaded(t, mocks.NewMockClient(t)))

	_, cmd := update(t, m, keyRunes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestWindowSize(t *testing.T) {
	m := New(context.Background(), newUploaded(t, mocks.NewMockClient(t)))

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}
