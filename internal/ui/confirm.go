package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrNotInteractive is returned when a confirmation is needed but no
// terminal is attached.
var ErrNotInteractive = errors.New("confirmation required but no terminal is attached (rerun with --yes)")

// Confirmer asks yes/no questions. Its Confirm method has the shape of
// pipeline.ConfirmFunc.
type Confirmer struct {
	AssumeYes   bool
	Interactive bool
	In          io.Reader
	Out         io.Writer
}

// Confirm returns the user's answer. The default answer is no.
func (c Confirmer) Confirm(ctx context.Context, question string) (bool, error) {
	if c.AssumeYes {
		return true, nil
	}
	if !c.Interactive {
		return false, ErrNotInteractive
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.In != nil {
		opts = append(opts, tea.WithInput(c.In))
	}
	if c.Out != nil {
		opts = append(opts, tea.WithOutput(c.Out))
	}
	final, err := tea.NewProgram(confirmModel{question: question}, opts...).Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return final.(confirmModel).answer, nil
}

type confirmModel struct {
	question string
	answer   bool
	done     bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answer = true
	case "n", "N", "enter", "esc", "ctrl+c", "q":
		m.answer = false
	default:
		return m, nil
	}
	m.done = true
	return m, tea.Quit
}

func (m confirmModel) View() string {
	if m.done {
		answer := StyleError.Render("no")
		if m.answer {
			answer = StyleSuccess.Render("yes")
		}
		return StyleWarning.Render("? ") + m.question + " " + answer + "\n"
	}
	return StyleWarning.Render("? ") + m.question + StyleSubtle.Render(" [y/N] ")
}
