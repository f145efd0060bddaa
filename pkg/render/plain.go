package render

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dkoosis/tabfy/pkg/table"
)

// DefaultMaxCell is the display width at which Plain truncates a cell.
const DefaultMaxCell = 120

// Plain renders tab-separated values with a header line and no ANSI codes.
// Output is deterministic so it can be diffed or fed to cut/awk.
type Plain struct {
	maxCell int
}

// NewPlain creates a plain renderer. maxCell <= 0 disables truncation.
func NewPlain(maxCell int) *Plain {
	return &Plain{maxCell: maxCell}
}

// Render formats the table. An empty table renders as nothing.
func (p *Plain) Render(tbl *table.Table) string {
	if tbl.Len() == 0 {
		return ""
	}
	cols := tbl.Columns()

	var sb strings.Builder
	p.writeLine(&sb, cols)
	fields := make([]string, len(cols))
	for _, r := range tbl.Rows {
		for i, c := range cols {
			v, _ := r.Get(c)
			fields[i] = v
		}
		p.writeLine(&sb, fields)
	}
	return sb.String()
}

func (p *Plain) writeLine(sb *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte('\t')
		}
		f = oneLine(f)
		if p.maxCell > 0 && runewidth.StringWidth(f) > p.maxCell {
			f = runewidth.Truncate(f, p.maxCell, "…")
		}
		sb.WriteString(f)
	}
	sb.WriteByte('\n')
}
