// Package tui is the interactive terminal front end. Bubble Tea's update
// loop is the single writer of view state; fetch tasks run as commands and
// come back as messages.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rishi-o2/weather-app/internal/render"
	"github.com/rishi-o2/weather-app/internal/view"
)

const Title = "Weather App"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	cardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

// resultMsg carries a finished fetch back into the update loop.
type resultMsg struct {
	result view.Result
}

type Model struct {
	ctx      context.Context
	ctrl     *view.Controller
	renderer *render.Renderer
	input    textinput.Model
}

// New builds the model. ctx bounds every fetch started from the UI.
func New(ctx context.Context, ctrl *view.Controller, r *render.Renderer) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter City"
	ti.Prompt = "> "
	ti.CharLimit = 128
	ti.Width = 40
	ti.Focus()
	return Model{ctx: ctx, ctrl: ctrl, renderer: r, input: ti}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.ctrl.Apply(msg.result)
		return m, nil

	case tea.WindowSizeMsg:
		if w := msg.Width - len(m.input.Prompt) - 2; w > 10 {
			m.input.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m, m.search()
		case "tab", "ctrl+t":
			m.ctrl.ToggleDisplay()
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.ctrl.UpdateQuery(after)
	}
	return m, cmd
}

func (m Model) search() tea.Cmd {
	tasks, err := m.ctrl.Search()
	if err != nil {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(tasks))
	for _, task := range tasks {
		cmds = append(cmds, func() tea.Msg {
			return resultMsg{result: task(m.ctx)}
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) View() string {
	s := m.ctrl.State()

	var b strings.Builder
	b.WriteString(titleStyle.Render(Title))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if s.Error != "" {
		b.WriteString(errorStyle.Render(s.Error))
		b.WriteString("\n\n")
	}
	if s.Current != nil {
		b.WriteString(cardStyle.Render(strings.TrimRight(m.renderer.Current(*s.Current), "\n")))
		b.WriteString("\n\n")
	}
	if section := m.renderer.Forecast(s.Mode, s.Forecast, m.ctrl.Location()); section != "" {
		b.WriteString(section)
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter: search • tab: toggle forecast view • esc: quit"))
	b.WriteString("\n")
	return b.String()
}
