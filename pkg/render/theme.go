package render

import "github.com/charmbracelet/lipgloss"

// Theme defines colors and icons for terminal rendering.
type Theme struct {
	Name    string
	Header  lipgloss.Style
	Border  lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Icons   ThemeIcons
}

// ThemeIcons defines the icon set for a theme.
type ThemeIcons struct {
	Warn  string
	Error string
	Empty string // shown where a row lacks a column
}

// DefaultTheme returns a vibrant color theme.
func DefaultTheme() Theme {
	return Theme{
		Name:    "default",
		Header:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true), // blue
		Border:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // orange
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")), // red
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("242")), // gray
		Icons: ThemeIcons{
			Warn:  "⚠",
			Error: "✗",
			Empty: "·",
		},
	}
}

// OrcaTheme returns a muted, professional theme.
func OrcaTheme() Theme {
	return Theme{
		Name:    "orca",
		Header:  lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true), // pale blue
		Border:  lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("179")), // muted gold
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("167")), // muted red
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")), // lighter gray
		Icons: ThemeIcons{
			Warn:  "!",
			Error: "✗",
			Empty: "·",
		},
	}
}

// MonoTheme returns a monochrome theme (no colors).
func MonoTheme() Theme {
	return Theme{
		Name:    "mono",
		Header:  lipgloss.NewStyle().Bold(true),
		Border:  lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Muted:   lipgloss.NewStyle(),
		Icons: ThemeIcons{
			Warn:  "!",
			Error: "x",
			Empty: "-",
		},
	}
}

// ThemeByName returns a theme by name, defaulting to DefaultTheme.
func ThemeByName(name string) Theme {
	switch name {
	case "orca":
		return OrcaTheme()
	case "mono":
		return MonoTheme()
	default:
		return DefaultTheme()
	}
}
