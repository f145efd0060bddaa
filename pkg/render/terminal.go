package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dkoosis/tabfy/pkg/table"
)

// Terminal renders tables as a styled grid via lipgloss.
type Terminal struct {
	theme Theme
	width int
}

// NewTerminal creates a terminal renderer with the given theme.
func NewTerminal(theme Theme, width int) *Terminal {
	if width <= 0 {
		width = 80
	}
	return &Terminal{theme: theme, width: width}
}

// Render formats the table followed by a one-line summary.
func (t *Terminal) Render(tbl *table.Table) string {
	var sb strings.Builder
	if tbl.Len() > 0 {
		sb.WriteString(t.grid(tbl))
		sb.WriteString("\n")
	}
	sb.WriteString(t.footer(tbl))
	sb.WriteString("\n")
	return sb.String()
}

func (t *Terminal) grid(tbl *table.Table) string {
	cols := tbl.Columns()
	titler := cases.Title(language.English)
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = titler.String(strings.NewReplacer("_", " ", "-", " ").Replace(c))
	}

	rows := make([][]string, len(tbl.Rows))
	missing := make([][]bool, len(tbl.Rows))
	for i, r := range tbl.Rows {
		rows[i] = make([]string, len(cols))
		missing[i] = make([]bool, len(cols))
		for j, c := range cols {
			v, ok := r.Get(c)
			if !ok {
				v = t.theme.Icons.Empty
				missing[i][j] = true
			}
			rows[i][j] = oneLine(v)
		}
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	lt := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(t.theme.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == ltable.HeaderRow:
				return t.theme.Header.Padding(0, 1)
			case row >= 0 && row < len(missing) && col < len(missing[row]) && missing[row][col]:
				return t.theme.Muted.Padding(0, 1)
			default:
				return cell
			}
		})

	out := lt.Render()
	if lipgloss.Width(out) > t.width {
		out = lt.Width(t.width).Render()
	}
	return out
}

func (t *Terminal) footer(tbl *table.Table) string {
	n := tbl.Len()
	summary := fmt.Sprintf("%d rows", n)
	if n == 1 {
		summary = "1 row"
	}
	line := t.theme.Muted.Render(summary)

	if tbl != nil && len(tbl.Warnings) > 0 {
		skipped := fmt.Sprintf("%d skipped", len(tbl.Warnings))
		line += t.theme.Muted.Render(", ") + t.theme.Warning.Render(t.theme.Icons.Warn+" "+skipped)
	}
	return line
}

// RenderError formats a failure line for stderr.
func (t *Terminal) RenderError(code, msg string) string {
	return t.theme.Error.Render(t.theme.Icons.Error+" "+code) + " " + msg + "\n"
}

func oneLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ").Replace(s)
}
