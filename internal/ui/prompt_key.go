package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrPromptCancelled is returned when the user leaves a prompt with Esc.
var ErrPromptCancelled = errors.New("input cancelled")

// PromptAPIKey asks for a provider API key without echoing it. The key is
// used for the current run only.
func PromptAPIKey(provider string) (string, error) {
	ti := textinput.New()
	ti.Placeholder = "api-key"
	ti.Focus()
	ti.EchoMode = textinput.EchoPassword
	ti.CharLimit = 256
	ti.Width = 50

	final, err := tea.NewProgram(apiKeyModel{textInput: ti, provider: provider}).Run()
	if err != nil {
		return "", fmt.Errorf("error running prompt: %w", err)
	}

	result := final.(apiKeyModel)
	if result.quit {
		return "", ErrPromptCancelled
	}
	return result.value, nil
}

type apiKeyModel struct {
	textInput textinput.Model
	provider  string
	value     string
	quit      bool
}

func (m apiKeyModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m apiKeyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.value = m.textInput.Value()
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quit = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m apiKeyModel) View() string {
	s := "\n" + StyleTitle.Render(fmt.Sprintf("API key required for %s", m.provider)) + "\n"
	s += StyleSubtle.Render(fmt.Sprintf("Used for this run only. Set llm.apiKeys.%s in .prdwing.yaml to keep it.", m.provider)) + "\n\n"
	s += m.textInput.View() + "\n\n"
	s += StyleSubtle.Render("Press Enter to confirm • Esc to cancel") + "\n"
	return s
}
