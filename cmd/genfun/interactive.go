package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
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
	cfg      *Config
	pg       *Playground
	result   *CallResult
	baseDir  string
	funcs    []string
	input    textinput.Model
	selected int
	state    modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(cfg *Config, baseDir string) *interactiveModel {
	return &interactiveModel{
		cfg:     cfg,
		baseDir: baseDir,
		state:   stateSelectFunc,
	}
}

type loadedMsg struct {
	err error
	pg  *Playground
}

type callResultMsg struct {
	err    error
	result *CallResult
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.build
}

func (m *interactiveModel) build() tea.Msg {
	pg, err := Build(context.Background(), m.cfg, m.baseDir)
	return loadedMsg{pg: pg, err: err}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()

		case "q":
			if m.state != stateInputArgs {
				return m, m.quit()
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					return m, nil
				}
				m.prepareInput()
				m.state = stateInputArgs
				return m, textinput.Blink

			case stateInputArgs:
				return m, m.callFunction(m.input.Value())

			case stateShowResult:
				m.reset()
			}
			return m, nil

		case "esc":
			if m.state != stateSelectFunc {
				m.reset()
			}
			return m, nil
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.pg = msg.pg
		m.funcs = msg.pg.Names()

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) quit() tea.Cmd {
	if m.pg != nil {
		m.pg.Close(context.Background())
	}
	return tea.Quit
}

func (m *interactiveModel) reset() {
	m.state = stateSelectFunc
	m.result = nil
	m.err = nil
}

func (m *interactiveModel) prepareInput() {
	ti := textinput.New()
	ti.Placeholder = `1 "s" Dog{rex} 21:s32`
	ti.Prompt = m.funcs[m.selected] + " "
	ti.Width = 40
	ti.Focus()
	m.input = ti
}

func (m *interactiveModel) callFunction(line string) tea.Cmd {
	name := m.funcs[m.selected]
	pg := m.pg
	return func() tea.Msg {
		words, err := splitCall(line)
		if err != nil {
			return callResultMsg{err: err}
		}
		res, err := pg.CallArgs(context.Background(), name, words)
		return callResultMsg{result: res, err: err}
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.pg == nil {
		return "Building generic functions..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Generic Functions"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, name := range m.funcs {
			line := m.formatFunc(name)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + name))
				b.WriteString(line[len(name):])
			} else {
				b.WriteString("  " + funcStyle.Render(name) + line[len(name):])
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		name := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(name)))
		for _, sig := range strings.Split(m.pg.Signature(name), "\n") {
			if sig != "" {
				b.WriteString("  " + typeStyle.Render(sig) + "\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter call • esc back"))

	case stateShowResult:
		name := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else if m.result != nil {
			b.WriteString(resultStyle.Render(m.result.String()))
		}
		if m.result != nil && len(m.result.Methods) > 0 {
			b.WriteString("\n\nApplicable methods:\n")
			for i, method := range m.result.Methods {
				b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, typeStyle.Render(method)))
			}
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(name string) string {
	gf, ok := m.pg.Function(name)
	if !ok {
		return name
	}
	n := len(gf.Methods())
	suffix := "s"
	if n == 1 {
		suffix = ""
	}
	return fmt.Sprintf("%s (%d method%s)", name, n, suffix)
}

func runInteractive(cfg *Config, baseDir string) error {
	p := tea.NewProgram(newInteractiveModel(cfg, baseDir), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
