package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flowgrid/graph-runtime/graph"
	"github.com/flowgrid/graph-runtime/host"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2D7D46")).
			Padding(0, 1)

	netStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	shapeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2D7D46"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectNet modelState = iota
	stateInputVector
	stateShowResult
)

type interactiveModel struct {
	err        error
	manager    *host.Manager
	graphs     []*graph.Graph
	input      textinput.Model
	result     string
	configPath string
	selected   int
	state      modelState
}

type loadedMsg struct {
	err     error
	manager *host.Manager
}

type runResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(configPath string) *interactiveModel {
	return &interactiveModel{
		configPath: configPath,
		graphs:     demoGraphs(),
		state:      stateSelectNet,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

// load provisions the manager and registers every demo network.
func (m *interactiveModel) load() tea.Msg {
	mgr, err := newManager(m.configPath)
	if err != nil {
		return loadedMsg{err: err}
	}
	for _, g := range m.graphs {
		if err := mgr.AddNetwork(g); err != nil {
			mgr.Close()
			return loadedMsg{err: err}
		}
	}
	return loadedMsg{manager: mgr}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputVector && msg.String() == "q" {
				break // let the text input take the q
			}
			if m.manager != nil {
				m.manager.Close()
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectNet && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectNet && m.selected < len(m.graphs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectNet:
				m.prepareInput()
				m.state = stateInputVector

			case stateInputVector:
				return m, m.runSelected

			case stateShowResult:
				m.state = stateSelectNet
				m.result = ""
				m.err = nil
			}

		case "esc":
			switch m.state {
			case stateInputVector:
				m.state = stateSelectNet
			case stateShowResult:
				m.state = stateSelectNet
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.manager = msg.manager

	case runResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputVector {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) prepareInput() {
	g := m.graphs[m.selected]
	in := g.Inputs()[0]

	ti := textinput.New()
	ti.Placeholder = strings.TrimSuffix(strings.Repeat("0,", in.Size), ",")
	ti.Prompt = in.Name + ": "
	ti.Width = 40
	ti.Focus()
	m.input = ti
}

// runSelected dispatches one run and blocks the tea command goroutine
// (not the UI) until the completion callback fires.
func (m *interactiveModel) runSelected() tea.Msg {
	g := m.graphs[m.selected]
	in := g.Inputs()[0]

	values, err := parseVector(m.input.Value())
	if err != nil {
		return runResultMsg{err: err}
	}
	if len(values) != in.Size {
		return runResultMsg{err: fmt.Errorf("input %q needs %d values, got %d", in.Name, in.Size, len(values))}
	}

	ectx := graph.NewContext()
	ectx.Bind(in.Name, graph.NewVector(values...))

	done := make(chan runResultMsg, 1)
	m.manager.RunNetwork(g.Name(), ectx, func(id host.RunIdentifier, err error, returned *graph.ExecutionContext) {
		if err != nil {
			done <- runResultMsg{err: err}
			return
		}
		var b strings.Builder
		for _, out := range g.Outputs() {
			if t, ok := returned.Tensor(out.Name); ok {
				fmt.Fprintf(&b, "%s = %v\n", out.Name, t.Data())
			}
		}
		done <- runResultMsg{result: b.String()}
	})
	return <-done
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.manager == nil {
		return "Provisioning devices..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Graph Host"))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%v", m.manager.Devices()))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectNet:
		b.WriteString("Select a network to run:\n\n")
		for i, g := range m.graphs {
			line := netStyle.Render(g.Name()) + "  " + shapeStyle.Render(describeGraph(g))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + g.Name()))
				b.WriteString("  " + shapeStyle.Render(describeGraph(g)))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateInputVector:
		g := m.graphs[m.selected]
		b.WriteString(fmt.Sprintf("Input for %s\n\n", netStyle.Render(g.Name())))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter run • esc back"))

	case stateShowResult:
		g := m.graphs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", netStyle.Render(g.Name())))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runInteractive(configPath string) error {
	p := tea.NewProgram(newInteractiveModel(configPath), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
