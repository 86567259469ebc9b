package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wasmlink/ffigen/abi"
	"github.com/wasmlink/ffigen/lower"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	symbolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	slotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	instrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserState int

const (
	stateSelectImport browserState = iota
	stateShowInstrs
)

type browserModel struct {
	err      error
	filename string
	target   abi.Target
	imports  []*lower.Import
	visible  []*lower.Import
	filter   textinput.Model
	selected int
	state    browserState
}

type loweredMsg struct {
	err     error
	imports []*lower.Import
}

func newBrowserModel(filename string, target abi.Target) *browserModel {
	filter := textinput.New()
	filter.Placeholder = "filter symbols"
	filter.Prompt = "/ "
	filter.Width = 32
	return &browserModel{
		filename: filename,
		target:   target,
		filter:   filter,
		state:    stateSelectImport,
	}
}

func (m *browserModel) Init() tea.Cmd {
	return m.lowerInterface
}

func (m *browserModel) lowerInterface() tea.Msg {
	iface, err := loadInterface(m.filename)
	if err != nil {
		return loweredMsg{err: err}
	}
	imports, err := lower.Imports(iface, m.target)
	if err != nil {
		return loweredMsg{err: err}
	}
	return loweredMsg{imports: imports}
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filter.Focused() {
			switch msg.String() {
			case "enter", "esc":
				m.filter.Blur()
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				m.applyFilter()
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectImport && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectImport && m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateSelectImport {
				m.filter.Focus()
			}

		case "enter":
			if m.state == stateSelectImport && len(m.visible) > 0 {
				m.state = stateShowInstrs
			}

		case "esc":
			if m.state == stateShowInstrs {
				m.state = stateSelectImport
			}
		}

	case loweredMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.imports = msg.imports
		m.applyFilter()
	}

	return m, nil
}

func (m *browserModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for _, imp := range m.imports {
		if needle == "" || strings.Contains(strings.ToLower(imp.Symbol), needle) {
			m.visible = append(m.visible, imp)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = 0
	}
}

func (m *browserModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if len(m.imports) == 0 {
		return "Lowering interface..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("ffigen"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("  ")
	b.WriteString(slotStyle.Render(m.target.String()))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectImport:
		if m.filter.Focused() || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		for i, imp := range m.visible {
			line := symbolStyle.Render(imp.Symbol) + slotStyle.Render(slotSignature(imp))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + imp.Symbol + slotSignature(imp)))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("no imports match"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter instructions • / filter • q quit"))

	case stateShowInstrs:
		imp := m.visible[m.selected]
		b.WriteString(symbolStyle.Render(imp.Symbol))
		b.WriteString(slotStyle.Render(slotSignature(imp)))
		b.WriteString(fmt.Sprintf("  %d vars\n\n", imp.NumVars))
		for _, line := range instrLines(imp.Instrs, "  ") {
			b.WriteString(instrStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • q quit"))
	}

	return b.String()
}

func runInteractive(filename string, target abi.Target) error {
	p := tea.NewProgram(newBrowserModel(filename, target), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
