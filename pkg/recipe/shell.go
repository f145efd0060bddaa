package recipe

import (
	"context"
	"strings"
)

// Interpreter runs a recipe against input and returns the serialized result.
// Implementations must not retain input after Run returns.
type Interpreter interface {
	Run(ctx context.Context, recipe string, input []byte) ([]byte, error)
}

// InterpreterFunc adapts a function to Interpreter.
type InterpreterFunc func(ctx context.Context, recipe string, input []byte) ([]byte, error)

// Run calls f.
func (f InterpreterFunc) Run(ctx context.Context, recipe string, input []byte) ([]byte, error) {
	return f(ctx, recipe, input)
}

// ShellConfig describes how to launch the nested pipeline interpreter.
type ShellConfig struct {
	Command        string   // interpreter binary
	Args           []string // flags placed before the script argument
	Serialize      string   // step appended to every recipe
	MaxOutputBytes int64
}

// DefaultShellConfig launches nushell reading the program output on stdin.
func DefaultShellConfig() ShellConfig {
	return ShellConfig{
		Command:        "nu",
		Args:           []string{"--stdin", "-c"},
		Serialize:      "to json --raw",
		MaxOutputBytes: DefaultMaxOutputBytes,
	}
}

// Shell is the child-process Interpreter.
type Shell struct {
	cfg ShellConfig
}

// NewShell returns a Shell, filling unset fields from DefaultShellConfig.
func NewShell(cfg ShellConfig) *Shell {
	def := DefaultShellConfig()
	if cfg.Command == "" {
		cfg.Command = def.Command
		if cfg.Args == nil {
			cfg.Args = def.Args
		}
	}
	if cfg.Serialize == "" {
		cfg.Serialize = def.Serialize
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = def.MaxOutputBytes
	}
	return &Shell{cfg: cfg}
}

// Argv returns the full command line used for recipe.
func (s *Shell) Argv(recipe string) []string {
	argv := make([]string, 0, len(s.cfg.Args)+2)
	argv = append(argv, s.cfg.Command)
	argv = append(argv, s.cfg.Args...)
	return append(argv, Script(recipe, s.cfg.Serialize))
}

// Run starts the interpreter, writes input to its stdin, closes it, and
// returns everything it printed on stdout.
func (s *Shell) Run(ctx context.Context, recipe string, input []byte) ([]byte, error) {
	if input == nil {
		input = []byte{}
	}
	return runProcess(ctx, s.Argv(recipe), input, s.cfg.MaxOutputBytes)
}

// Script appends the serialization step to recipe.
func Script(recipe, serialize string) string {
	recipe = strings.TrimSpace(recipe)
	recipe = strings.TrimSuffix(recipe, "|")
	recipe = strings.TrimSpace(recipe)
	if serialize == "" {
		return recipe
	}
	return recipe + " | " + serialize
}
