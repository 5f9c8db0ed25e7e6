package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	log      *zap.Logger
	session  *session
	result   string
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(log *zap.Logger) *interactiveModel {
	return &interactiveModel{log: log, state: stateSelectFunc}
}

type loadedMsg struct {
	err     error
	session *session
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	s, err := newSession(context.Background(), m.log)
	return loadedMsg{session: s, err: err}
}

func (m *interactiveModel) targets() []target {
	if m.session == nil {
		return nil
	}
	return m.session.targets
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break
			}
			if m.session != nil {
				m.session.Close(context.Background())
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.targets())-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.targets()) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	t := m.targets()[m.selected]
	m.inputs = make([]textinput.Model, len(t.params))
	for i, p := range t.params {
		ti := textinput.New()
		ti.Placeholder = p.typeStr
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	if m.session == nil {
		return callResultMsg{err: fmt.Errorf("runtime not loaded")}
	}
	t := m.targets()[m.selected]
	inputs := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		inputs[i] = input.Value()
	}
	result, err := m.session.call(context.Background(), t, inputs)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: result}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.session == nil {
		return "Loading runtime..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("SOM Runner"))
	b.WriteString(" ")
	b.WriteString(m.session.arthur.Format())
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, t := range m.targets() {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + m.formatFunc(t)))
			} else {
				b.WriteString("  " + m.formatFunc(t))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		t := m.targets()[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(t.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(t.params[i].typeStr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		t := m.targets()[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(t.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(t target) string {
	var params []string
	for _, p := range t.params {
		params = append(params, p.name+": "+typeStyle.Render(p.typeStr))
	}
	result := ""
	if t.result != "" {
		result = " -> " + typeStyle.Render(t.result)
	}
	return funcStyle.Render(t.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(log *zap.Logger) error {
	p := tea.NewProgram(newInteractiveModel(log), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
