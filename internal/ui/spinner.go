package ui

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

type spinnerDoneMsg struct{}

type spinnerModel struct {
	spinner    spinner.Model
	title      string
	cancel     context.CancelFunc
	cancelling bool
	done       bool
}

func newSpinnerModel(title string, cancel context.CancelFunc) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StylePrimary
	return spinnerModel{spinner: s, title: title, cancel: cancel}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerDoneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && !m.cancelling {
			// Keep spinning until the call observes the cancellation.
			m.cancelling = true
			m.cancel()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	if m.cancelling {
		return m.spinner.View() + " " + StyleWarning.Render("Cancelling...") + "\n"
	}
	return m.spinner.View() + " " + m.title + StyleSubtle.Render("  (ctrl+c to cancel)") + "\n"
}

// RunWithSpinner runs fn while showing a spinner on out. Ctrl+C cancels the
// context passed to fn. When out is not a terminal fn runs without output.
func RunWithSpinner(ctx context.Context, out io.Writer, title string, fn func(context.Context) error) error {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSpinnerModel(title, cancel), tea.WithOutput(out))
	errc := make(chan error, 1)
	go func() {
		errc <- fn(ctx)
		p.Send(spinnerDoneMsg{})
	}()

	// A spinner failure never fails the call itself.
	_, _ = p.Run()
	return <-errc
}
