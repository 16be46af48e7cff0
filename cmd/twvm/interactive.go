package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Becavalier/TWVM/runtime"
)

type interactiveModel struct {
	filter   textinput.Model
	filename string
	sections []section
	visible  []item
	tab      int
	selected int
	state    modelState
}

type modelState int

const (
	stateBrowse modelState = iota
	stateFilter
	stateDetail
)

func newInteractiveModel(filename string, inst *runtime.WasmInstance) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "filter"
	ti.Prompt = "/ "
	ti.Width = 40

	m := &interactiveModel{
		filter:   ti,
		filename: filename,
		sections: buildSections(inst),
		state:    stateBrowse,
	}
	m.refresh()
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

// refresh recomputes the visible items of the current tab.
func (m *interactiveModel) refresh() {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]
	for _, it := range m.sections[m.tab].items {
		if query == "" ||
			strings.Contains(strings.ToLower(it.label), query) ||
			strings.Contains(strings.ToLower(it.detail), query) {
			m.visible = append(m.visible, it)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state == stateFilter {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter", "esc":
			if key.String() == "esc" {
				m.filter.SetValue("")
			}
			m.filter.Blur()
			m.state = stateBrowse
			m.refresh()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.refresh()
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.state == stateBrowse && m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.state == stateBrowse && m.selected < len(m.visible)-1 {
			m.selected++
		}

	case "tab", "right", "l":
		if m.state == stateBrowse {
			m.switchTab(1)
		}

	case "shift+tab", "left", "h":
		if m.state == stateBrowse {
			m.switchTab(len(m.sections) - 1)
		}

	case "/":
		if m.state == stateBrowse {
			m.state = stateFilter
			return m, m.filter.Focus()
		}

	case "enter":
		switch m.state {
		case stateBrowse:
			if len(m.visible) > 0 {
				m.state = stateDetail
			}
		case stateDetail:
			m.state = stateBrowse
		}

	case "esc":
		m.state = stateBrowse
	}

	return m, nil
}

func (m *interactiveModel) switchTab(step int) {
	m.tab = (m.tab + step) % len(m.sections)
	m.selected = 0
	m.refresh()
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TWVM Explorer"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	for i, s := range m.sections {
		label := fmt.Sprintf(" %s (%d) ", s.name, len(s.items))
		if i == m.tab {
			b.WriteString(selectedStyle.Render(label))
		} else {
			b.WriteString(typeStyle.Render(label))
		}
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse, stateFilter:
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("  (empty)"))
			b.WriteString("\n")
		}
		for i, it := range m.visible {
			line := funcStyle.Render(it.label) + "  " + it.detail
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + it.label + "  " + it.detail))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateFilter {
			b.WriteString(m.filter.View())
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("enter apply • esc clear"))
		} else {
			if v := m.filter.Value(); v != "" {
				b.WriteString(helpStyle.Render("filter: " + v))
				b.WriteString("\n")
			}
			b.WriteString(helpStyle.Render("←/→ section • ↑/↓ select • enter details • / filter • q quit"))
		}

	case stateDetail:
		it := m.visible[m.selected]
		b.WriteString(funcStyle.Render(it.label))
		b.WriteString("\n")
		b.WriteString(it.detail)
		b.WriteString("\n")
		if it.fn != nil {
			b.WriteString("\n")
			for _, line := range disassemble(it.fn) {
				if strings.HasPrefix(line, "(undecodable") {
					b.WriteString(errorStyle.Render(line))
				} else {
					b.WriteString(line)
				}
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}

	return b.String()
}

func runInteractive(filename string, inst *runtime.WasmInstance) error {
	p := tea.NewProgram(newInteractiveModel(filename, inst), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
