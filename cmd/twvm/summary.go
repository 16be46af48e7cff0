package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Becavalier/TWVM/runtime"
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

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

// renderSummary renders every section of the instance as one table. A
// width of zero leaves the table at its natural size.
func renderSummary(filename string, inst *runtime.WasmInstance, width int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(helpStyle).
		Headers("SECTION", "ITEM", "DETAIL").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle.Foreground(lipgloss.Color("#87CEEB"))
			default:
				return cellStyle
			}
		})
	if width > 0 {
		t = t.Width(width)
	}

	for _, s := range buildSections(inst) {
		if len(s.items) == 0 {
			t = t.Row(s.name, "-", "")
			continue
		}
		for i, it := range s.items {
			name := ""
			if i == 0 {
				name = s.name
			}
			t = t.Row(name, it.label, it.detail)
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("TWVM"))
	b.WriteString(" ")
	b.WriteString(filename)
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("store: %d functions, %d memories, %d globals, %d tables\n",
		inst.Store.NumFunctions(), inst.Store.NumMemories(), inst.Store.NumGlobals(), inst.Store.NumTables()))
	return b.String()
}
