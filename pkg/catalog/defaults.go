package catalog

// builtins are matched after any configured schemas. The tabfy entry only
// fires when the source command is tabfy itself.
var builtins = []Definition{
	{
		Name:    "git-status",
		Pattern: `^\s*git\s+status\b`,
		Recipe:  `lines | skip 4 | parse --regex '(?<status>modified|deleted)'`,
	},
	{
		Name:    "git-branch",
		Pattern: `^\s*git\s+branch\b`,
		Recipe:  `lines | parse --regex '^(?<current>[* ]) (?<branch>\S+)' | update current {|row| $row.current == '*'}`,
	},
	{
		Name:    "git-log-oneline",
		Pattern: `^\s*git\s+log\b.*--oneline`,
		Recipe:  `lines | parse '{hash} {subject}'`,
	},
	{
		Name:    "tabfy",
		Pattern: `^\s*tabfy\b`,
		Recipe:  "tabfy",
	},
}

// Defaults returns a copy of the built-in definitions.
func Defaults() []Definition {
	out := make([]Definition, len(builtins))
	copy(out, builtins)
	return out
}
