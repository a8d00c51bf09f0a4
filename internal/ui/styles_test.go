package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/PRDWing/internal/store"
)

func TestStyles(t *testing.T) {
	// Force color profile for testing
	lipgloss.SetColorProfile(termenv.ANSI256)
	t.Cleanup(func() { lipgloss.SetColorProfile(termenv.Ascii) })

	out := StyleSuccess.Render("Test")
	assert.Contains(t, out, "Test")
	assert.NotEqual(t, "Test", out, "Style should add ANSI codes when forced")

	icon := Icon("X", StyleError)
	assert.Contains(t, icon, "X")
	assert.NotEqual(t, "X", icon)
}

func TestTable(t *testing.T) {
	table := &Table{
		Headers: []string{"ID", "Name", "Status"},
		Rows: [][]string{
			{"abc123", "First item", "draft"},
			{"def456", "Second item with longer name", "in-progress"},
		},
	}
	assert.Equal(t, []int{6, 28, 11}, table.ColumnWidths())

	out := table.Render()
	assert.Contains(t, out, "Second item with longer name")
	assert.Contains(t, out, "─")

	table.MaxWidth = 10
	assert.Contains(t, table.Render(), "Second it…")

	assert.Empty(t, (&Table{}).Render())
}

func TestFit_MultiByte(t *testing.T) {
	assert.Equal(t, "Über…", fit("Überblick", 5))
	assert.Equal(t, "short", fit("short", 10))
}

func TestRenderSteps(t *testing.T) {
	p := &store.Project{Name: "Acme", Status: store.ProjectInProgress}
	statuses := []store.StepStatus{store.StepCompleted, store.StepInProgress, store.StepPending, store.StepPending, store.StepPending}
	for i, st := range statuses {
		p.Steps = append(p.Steps, store.Step{Order: i + 1, Title: store.StepTitle(i + 1), Status: st})
	}

	out := RenderSteps(p)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "Acme")
	assert.Contains(t, lines[1], "1. Input Analysis")
	assert.Contains(t, lines[1], "done")
	assert.Contains(t, lines[2], "active")
	assert.Contains(t, lines[5], "5. Project Finalization")
	assert.Contains(t, lines[5], "pending")
}

func TestRenderProjects(t *testing.T) {
	assert.Contains(t, RenderProjects(nil), "No projects yet")

	out := RenderProjects([]store.Project{{
		ID:        "0f8fad5b-d9cb-469f-a165-70867728950e",
		Name:      "Acme",
		Status:    store.ProjectDraft,
		UpdatedAt: time.Now(),
	}})
	assert.Contains(t, out, "0f8fad5b")
	assert.NotContains(t, out, "d9cb")
	assert.Contains(t, out, "draft")
}

func TestConfirmer(t *testing.T) {
	ok, err := Confirmer{AssumeYes: true}.Confirm(context.Background(), "Rewind?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Confirmer{}.Confirm(context.Background(), "Rewind?")
	assert.ErrorIs(t, err, ErrNotInteractive)
	assert.False(t, ok)
}

func TestConfirmModel(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want bool
		done bool
	}{
		{"yes", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")}, true, true},
		{"no", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")}, false, true},
		{"enter defaults to no", tea.KeyMsg{Type: tea.KeyEnter}, false, true},
		{"escape", tea.KeyMsg{Type: tea.KeyEsc}, false, true},
		{"other keys ignored", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := confirmModel{question: "Rewind?"}.Update(tt.key)
			got := m.(confirmModel)
			assert.Equal(t, tt.want, got.answer)
			assert.Equal(t, tt.done, got.done)
			assert.Equal(t, tt.done, cmd != nil)
		})
	}
}

func TestSpinnerModel(t *testing.T) {
	cancelled := false
	m := newSpinnerModel("Generating PRD", func() { cancelled = true })
	assert.Contains(t, m.View(), "Generating PRD")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(spinnerModel)
	assert.True(t, cancelled)
	assert.Contains(t, m.View(), "Cancelling")

	next, _ = m.Update(spinner.TickMsg{})
	m = next.(spinnerModel)
	assert.False(t, m.done)

	next, cmd := m.Update(spinnerDoneMsg{})
	assert.NotNil(t, cmd)
	assert.Empty(t, next.View())
}

func TestRunWithSpinner_NonTerminal(t *testing.T) {
	var buf strings.Builder
	want := errors.New("boom")
	err := RunWithSpinner(context.Background(), &buf, "Working", func(context.Context) error { return want })
	assert.ErrorIs(t, err, want)
	assert.Empty(t, buf.String())
}

func TestAPIKeyModel(t *testing.T) {
	m := apiKeyModel{textInput: textinput.New(), provider: "openai"}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, next.(apiKeyModel).quit)
	assert.Contains(t, m.View(), "llm.apiKeys.openai")
}
