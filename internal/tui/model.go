// Package tui is the terminal review screen: edit extracted interventions,
// submit them for estimation, then browse the summary and analytics.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sells-group/roadsafety-cli/internal/chainage"
	"github.com/sells-group/roadsafety-cli/internal/model"
	"github.com/sells-group/roadsafety-cli/internal/pipeline"
	"github.com/sells-group/roadsafety-cli/internal/report"
)

// Model is the root bubbletea model for the review screen.
type Model struct {
	ctx   context.Context
	coord *pipeline.Coordinator

	// Review
	records []model.Intervention
	cursor  int
	field   model.Field
	editing bool
	input   string

	// Estimation
	submitting    bool
	summary       *report.Summary
	analytics     *report.Analytics
	showAnalytics bool

	notice string
	width  int
	height int
}

// New creates a Model over a coordinator holding an uploaded run. The run is
// moved into review.
func New(ctx context.Context, coord *pipeline.Coordinator) Model {
	m := Model{ctx: ctx, coord: coord, field: model.FieldIntervention}
	records, err := coord.EnterReview()
	if err != nil {
		m.notice = pipeline.Notice(err)
		return m
	}
	m.records = records
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Summary returns the summary once estimation succeeded.
func (m Model) Summary() *report.Summary {
	return m.summary
}

func submitCmd(ctx context.Context, coord *pipeline.Coordinator) tea.Cmd {
	return func() tea.Msg {
		res, err := coord.Submit(ctx)
		return SubmitDoneMsg{Result: res, Err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		if m.editing {
			return m.handleEditKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SubmitDoneMsg:
		m.submitting = false
		if msg.Err != nil {
			m.notice = pipeline.Notice(msg.Err)
			m.records = m.coord.Snapshot().Interventions
			return m, nil
		}
		sum, err := m.coord.Summary()
		if err != nil {
			m.notice = pipeline.Notice(err)
			return m, nil
		}
		m.summary = sum
		m.notice = ""
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyCtrlC:
		return m, tea.Quit

	case KeyUp, KeyK:
		if m.cursor > 0 {
			m.cursor--
		}

	case KeyDown, KeyJ:
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}

	case KeyTab:
		if m.field == model.FieldIntervention {
			m.field = model.FieldChainage
		} else {
			m.field = model.FieldIntervention
		}

	case KeyEnter:
		if m.summary != nil || m.submitting || len(m.records) == 0 {
			return m, nil
		}
		m.editing = true
		m.input = m.records[m.cursor].Get(m.field)

	case KeySubmit:
		if m.submitting || m.summary != nil {
			return m, nil
		}
		if len(m.records) == 0 {
			m.notice = pipeline.Notice(pipeline.ErrEmptyBatch)
			return m, nil
		}
		m.submitting = true
		m.notice = ""
		return m, submitCmd(m.ctx, m.coord)

	case KeyAnalytics:
		if m.summary == nil {
			return m, nil
		}
		if m.analytics == nil {
			a, err := m.coord.Analytics()
			if err != nil {
				m.notice = pipeline.Notice(err)
				return m, nil
			}
			m.analytics = a
		}
		m.showAnalytics = !m.showAnalytics
	}

	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyCtrlC:
		return m, tea.Quit

	case KeyEsc:
		m.editing = false
		m.input = ""

	case KeyEnter:
		m.editing = false
		id := m.records[m.cursor].ID
		if _, err := m.coord.UpdateField(id, m.field, m.input); err != nil {
			m.notice = pipeline.Notice(err)
			return m, nil
		}
		m.records = m.coord.Snapshot().Interventions
		m.input = ""

	case KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}

	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.input += string(msg.Runes)
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	switch {
	case m.showAnalytics && m.analytics != nil:
		report.RenderAnalytics(&b, m.analytics) //nolint:errcheck
		b.WriteString(HelpStyle.Render("a summary · q quit"))
	case m.summary != nil:
		report.RenderSummary(&b, m.summary) //nolint:errcheck
		b.WriteString(HelpStyle.Render("a analytics · q quit"))
	default:
		m.renderReview(&b)
	}

	if m.notice != "" {
		b.WriteString("\n" + NoticeStyle.Render(m.notice))
	}
	return b.String()
}

func (m Model) renderReview(b *strings.Builder) {
	st := m.coord.Snapshot()
	b.WriteString(HeaderStyle.Render("Review Interventions"))
	if st.Filename != "" {
		b.WriteString(StatusStyle.Render("  " + st.Filename))
	}
	b.WriteString("\n")
	if st.Warning != "" {
		b.WriteString(StatusStyle.Render(st.Warning) + "\n")
	}
	b.WriteString("\n")

	if len(m.records) == 0 {
		b.WriteString(StatusStyle.Render("No interventions extracted.") + "\n")
	}

	for i, rec := range m.records {
		prefix := "  "
		if i == m.cursor {
			prefix = SelectedStyle.Render("> ")
		}

		desc := rec.Intervention
		chain := rec.Chainage
		if i == m.cursor {
			if m.editing {
				edited := EditStyle.Render(m.input + "█")
				if m.field == model.FieldIntervention {
					desc = edited
				} else {
					chain = edited
				}
			} else if m.field == model.FieldIntervention {
				desc = ActiveFieldStyle.Render(orPlaceholder(desc))
			} else {
				chain = ActiveFieldStyle.Render(orPlaceholder(chain))
			}
		}

		span := chainage.Parse(rec.Chainage)
		b.WriteString(fmt.Sprintf("%s%2d. %s\n", prefix, rec.ID, desc))
		b.WriteString(fmt.Sprintf("      Chainage: %s  %s\n", chain, StatusStyle.Render(spanLabel(span))))
	}

	b.WriteString("\n")
	if m.submitting {
		b.WriteString(StatusStyle.Render("Computing cost estimates...") + "\n")
	}
	b.WriteString(HelpStyle.Render("↑/↓ move · tab field · enter edit · s submit · q quit"))
}

func spanLabel(s chainage.Span) string {
	if s.IsZero() {
		return "(unparsed)"
	}
	return s.String()
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
