// Package render formats tables for terminals, pipes and programs.
package render

import (
	"fmt"

	"github.com/dkoosis/tabfy/pkg/table"
)

// Renderer converts a table to formatted output.
type Renderer interface {
	Render(t *table.Table) string
}

// Formats accepted by ForFormat.
const (
	FormatAuto     = "auto"
	FormatTerminal = "terminal"
	FormatPlain    = "plain"
	FormatJSON     = "json"
)

// ForFormat returns the renderer for format. Auto picks Terminal when tty is
// set and Plain otherwise.
func ForFormat(format string, tty bool, theme Theme, width int) (Renderer, error) {
	switch format {
	case FormatAuto, "":
		if tty {
			return NewTerminal(theme, width), nil
		}
		return NewPlain(DefaultMaxCell), nil
	case FormatTerminal:
		return NewTerminal(theme, width), nil
	case FormatPlain:
		return NewPlain(DefaultMaxCell), nil
	case FormatJSON:
		return NewJSON(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
