package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned when the user aborts a prompt
var ErrCancelled = errors.New("cancelled by user")

// messagePrompt is a single-line text entry with a live byte counter
type messagePrompt struct {
	title     string
	input     textinput.Model
	limit     int
	validate  func(string) error
	err       error
	submitted bool
	cancelled bool
}

func newMessagePrompt(title string, limit int, validate func(string) error) messagePrompt {
	ti := textinput.New()
	ti.Placeholder = "message to embed"
	ti.Prompt = "  › "
	ti.Focus()
	if limit > 0 {
		ti.CharLimit = limit
	}
	ti.Width = 50

	return messagePrompt{
		title:    title,
		input:    ti,
		limit:    limit,
		validate: validate,
	}
}

// Init implements tea.Model
func (m messagePrompt) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m messagePrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			value := m.input.Value()
			if value == "" {
				m.err = errors.New("message is empty")
				return m, nil
			}
			if m.validate != nil {
				if err := m.validate(value); err != nil {
					m.err = err
					return m, nil
				}
			}
			m.submitted = true
			return m, tea.Quit
		}
		m.err = nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m messagePrompt) View() string {
	if m.submitted || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(PromptStyle.Render("  " + m.title))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	counter := fmt.Sprintf("  %d bytes", len(m.input.Value()))
	if m.limit > 0 {
		counter = fmt.Sprintf("  %d/%d bytes", len(m.input.Value()), m.limit)
	}
	b.WriteString(HintStyle.Render(counter + "  •  enter to embed  •  esc to cancel"))

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(ErrorMessageStyle.Render("  " + m.err.Error()))
	}
	b.WriteString("\n")
	return b.String()
}

// PromptMessage asks for a message on the terminal. limit caps its length
// (0 for no cap) and validate, when set, rejects values on enter.
func PromptMessage(in io.Reader, out io.Writer, title string, limit int, validate func(string) error) (string, error) {
	opts := []tea.ProgramOption{}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}

	final, err := tea.NewProgram(newMessagePrompt(title, limit, validate), opts...).Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}

	m := final.(messagePrompt)
	if !m.submitted {
		return "", ErrCancelled
	}
	return m.input.Value(), nil
}
