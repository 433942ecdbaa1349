// Package prompt asks the user how to recover from an unusable decompiler
// configuration.
package prompt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/jdecomp/internal/config"
	"github.com/Iron-Ham/jdecomp/internal/console"
	"github.com/Iron-Ham/jdecomp/internal/envcheck"
)

var (
	primaryColor = lipgloss.Color("#A78BFA")
	errorColor   = lipgloss.Color("#F87171")
	mutedColor   = lipgloss.Color("#9CA3AF")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	boxStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2).
			Width(64)
)

// Terminal prompts on a terminal using bubbletea programs.
type Terminal struct {
	in      io.Reader
	out     io.Writer
	catalog *console.Catalog
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(t *Terminal) {
		t.in = in
		t.out = out
	}
}

// New creates a Terminal prompter.
func New(c *console.Catalog, opts ...Option) *Terminal {
	t := &Terminal{in: os.Stdin, out: os.Stdout, catalog: c}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Choose shows the failure and asks whether to fix the configuration.
func (t *Terminal) Choose(ctx context.Context, f envcheck.Failure) (envcheck.Choice, error) {
	m, err := t.run(ctx, newChoiceModel(t.catalog.Render(f.Entry)))
	if err != nil {
		return envcheck.ChoiceCancel, err
	}
	return m.(choiceModel).choice, nil
}

// Reconfigure asks for a new decompiler path. It returns nil when the user
// backs out.
func (t *Terminal) Reconfigure(ctx context.Context, cfg *config.Config) (*config.Config, error) {
	m, err := t.run(ctx, newPathModel(cfg.Decompiler.Path))
	if err != nil {
		return nil, err
	}
	pm := m.(pathModel)
	if !pm.submitted {
		return nil, nil
	}
	cfg.Decompiler.Path = pm.value
	return cfg, nil
}

func (t *Terminal) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("prompt: %w", err)
	}
	return final, nil
}

var choices = []struct {
	label  string
	choice envcheck.Choice
}{
	{"Configure the decompiler path", envcheck.ChoiceReconfigure},
	{"Cancel", envcheck.ChoiceCancel},
}

// choiceModel is a two-option menu under the failure message.
type choiceModel struct {
	message string
	cursor  int
	choice  envcheck.Choice
	done    bool
}

func newChoiceModel(message string) choiceModel {
	return choiceModel{message: message, choice: envcheck.ChoiceCancel}
}

func (m choiceModel) Init() tea.Cmd {
	return nil
}

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "tab":
		if m.cursor < len(choices)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.choice = choices[m.cursor].choice
		m.done = true
		return m, tea.Quit
	case "r":
		m.choice = envcheck.ChoiceReconfigure
		m.done = true
		return m, tea.Quit
	case "esc", "q", "ctrl+c":
		m.choice = envcheck.ChoiceCancel
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m choiceModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.message))
	b.WriteString("\n\n")
	for i, c := range choices {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + c.label))
		} else {
			b.WriteString("  " + c.label)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("j/k or arrows to move, enter to confirm, esc to cancel"))
	return boxStyle.Render(b.String()) + "\n"
}

// pathModel edits the decompiler path.
type pathModel struct {
	input     textinput.Model
	value     string
	errorMsg  string
	submitted bool
	done      bool
}

func newPathModel(current string) pathModel {
	ti := textinput.New()
	ti.Placeholder = "/usr/local/bin/jad"
	ti.CharLimit = 4096
	ti.Width = 56
	ti.SetValue(current)
	ti.Focus()
	return pathModel{input: ti}
}

func (m pathModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m pathModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		m.errorMsg = ""
		switch key.String() {
		case "esc", "ctrl+c":
			m.done = true
			return m, tea.Quit
		case "enter":
			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				m.errorMsg = "the path cannot be empty"
				return m, nil
			}
			m.value = value
			m.submitted = true
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m pathModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString("Decompiler executable:\n\n")
	b.WriteString(m.input.View())
	if m.errorMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(titleStyle.Render("Error: " + m.errorMsg))
	}
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("enter to save, esc to cancel"))
	return boxStyle.Render(b.String()) + "\n"
}
