// Package view is an interactive scrolling viewer for a result table.
package view

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/dkoosis/tabfy/pkg/render"
	tabtable "github.com/dkoosis/tabfy/pkg/table"
)

const (
	minColumnWidth = 3
	maxColumnWidth = 40
	chromeHeight   = 4 // title, status bar and header border
)

// Model is the bubbletea model for the viewer.
type Model struct {
	table  table.Model
	title  string
	total  int
	theme  render.Theme
	width  int
	height int
}

// New builds a viewer over tbl. title is shown above the grid.
func New(tbl *tabtable.Table, title string, theme render.Theme) Model {
	cols := tbl.Columns()
	columns := make([]table.Column, len(cols))
	for i, c := range cols {
		columns[i] = table.Column{Title: c, Width: clamp(runewidth.StringWidth(c))}
	}

	rows := make([]table.Row, tbl.Len())
	for i, r := range tbl.Rows {
		row := make(table.Row, len(cols))
		for j, c := range cols {
			v, ok := r.Get(c)
			if !ok {
				v = theme.Icons.Empty
			}
			row[j] = v
			if w := clamp(runewidth.StringWidth(v)); w > columns[j].Width {
				columns[j].Width = w
			}
		}
		rows[i] = row
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border.GetForeground()).
		BorderBottom(true).
		Inherit(theme.Header)
	styles.Selected = styles.Selected.Inherit(theme.Header)

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
		table.WithStyles(styles),
	)
	return Model{table: t, title: title, total: len(rows), theme: theme}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model. Navigation keys go to the table.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetWidth(msg.Width)
		if h := msg.Height - chromeHeight; h > 0 {
			m.table.SetHeight(h)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	status := "no rows"
	if m.total > 0 {
		status = fmt.Sprintf("row %d/%d", m.table.Cursor()+1, m.total)
	}
	status += "  ↑/k ↓/j scroll  q quit"
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Header.Render(m.title),
		m.table.View(),
		m.theme.Muted.Render(status),
	)
}

// Selected returns the index of the highlighted row.
func (m Model) Selected() int {
	return m.table.Cursor()
}

// Run shows tbl full-screen until the user quits or ctx is cancelled. A nil
// in reads keys from the controlling terminal.
func Run(ctx context.Context, tbl *tabtable.Table, title string, theme render.Theme, in io.Reader, out io.Writer) error {
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out), tea.WithAltScreen()}
	if in == nil {
		opts = append(opts, tea.WithInputTTY())
	} else {
		opts = append(opts, tea.WithInput(in))
	}
	program := tea.NewProgram(New(tbl, title, theme), opts...)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

func clamp(w int) int {
	return max(minColumnWidth, min(w, maxColumnWidth))
}
