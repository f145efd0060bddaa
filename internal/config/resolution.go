package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/dkoosis/tabfy/pkg/catalog"
	"github.com/dkoosis/tabfy/pkg/command"
	"github.com/dkoosis/tabfy/pkg/recipe"
	"github.com/dkoosis/tabfy/pkg/table"
)

// Sources recorded on Resolved, for `--debug` output.
const (
	SourceCLI     = "cli"
	SourceEnv     = "env"
	SourceFile    = "file"
	SourceDefault = "default"
)

// Defaults.
const (
	DefaultTimeout = 30 * time.Second
	DefaultFormat  = "auto"
	DefaultTheme   = "default"
)

var (
	validFormats = map[string]bool{"auto": true, "terminal": true, "plain": true, "json": true}
	validThemes  = map[string]bool{"default": true, "orca": true, "mono": true}
)

// Flags carries command-line values. The *Set fields distinguish an explicit
// zero value from an absent flag.
type Flags struct {
	ConfigPath string

	Delimiter string
	Format    string
	Theme     string
	Mode      string

	Timeout    time.Duration
	TimeoutSet bool

	Strict    bool
	StrictSet bool

	Debug bool
}

// Resolved is the final configuration after applying all priority rules.
type Resolved struct {
	Path string // config file used, "" when none

	Delimiter   rune
	Interpreter recipe.ShellConfig
	Timeout     time.Duration // 0 disables the per-process timeout
	Mode        table.Mode
	Strict      bool
	Theme       string
	Format      string
	NoColor     bool
	Debug       bool
	Schemas     []catalog.Definition

	// Resolution metadata
	DelimiterSource   string
	InterpreterSource string
	TimeoutSource     string
	ModeSource        string
	StrictSource      string
	ThemeSource       string
}

// Resolve merges flags, environment, config file and defaults, in that order
// of priority, and validates the result.
func Resolve(flags Flags) (*Resolved, error) {
	file, path, err := Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	r := &Resolved{
		Path:    path,
		Schemas: file.Schemas,
		Debug:   flags.Debug || file.Debug || os.Getenv("TABFY_DEBUG") != "",
	}

	delim, src := pick(flags.Delimiter, os.Getenv("TABFY_DELIMITER"), file.Delimiter)
	r.DelimiterSource = src
	if delim == "" {
		r.Delimiter = command.DefaultDelimiter
	} else {
		if utf8.RuneCountInString(delim) != 1 {
			return nil, fmt.Errorf("delimiter must be a single character, got %q (from %s)", delim, src)
		}
		r.Delimiter, _ = utf8.DecodeRuneInString(delim)
	}

	if r.Interpreter, r.InterpreterSource, err = resolveInterpreter(file); err != nil {
		return nil, err
	}

	if r.Timeout, r.TimeoutSource, err = resolveTimeout(flags, file); err != nil {
		return nil, err
	}

	mode, src := pick(flags.Mode, os.Getenv("TABFY_MODE"), file.Mode)
	r.ModeSource = src
	if r.Mode, err = table.ParseMode(mode); err != nil {
		return nil, fmt.Errorf("%w (from %s)", err, src)
	}

	envStrict, err := getEnvBool("TABFY_STRICT")
	if err != nil {
		return nil, err
	}
	switch {
	case flags.StrictSet:
		r.Strict, r.StrictSource = flags.Strict, SourceCLI
	case envStrict != nil:
		r.Strict, r.StrictSource = *envStrict, SourceEnv
	case file.Strict:
		r.Strict, r.StrictSource = true, SourceFile
	default:
		r.StrictSource = SourceDefault
	}

	r.NoColor = os.Getenv("NO_COLOR") != ""
	switch {
	case flags.Theme != "":
		r.Theme, r.ThemeSource = flags.Theme, SourceCLI
	case r.NoColor:
		r.Theme, r.ThemeSource = "mono", SourceEnv
	default:
		r.Theme, r.ThemeSource = pick("", os.Getenv("TABFY_THEME"), file.Theme)
	}
	if r.Theme == "" {
		r.Theme = DefaultTheme
	}

	r.Format, _ = pick(flags.Format, os.Getenv("TABFY_FORMAT"), file.Format)
	if r.Format == "" {
		r.Format = DefaultFormat
	}

	if err := validateResolved(r); err != nil {
		return nil, err
	}
	return r, nil
}

// pick returns the first non-empty value and the source it came from.
func pick(cli, env, file string) (string, string) {
	switch {
	case cli != "":
		return cli, SourceCLI
	case env != "":
		return env, SourceEnv
	case file != "":
		return file, SourceFile
	}
	return "", SourceDefault
}

func resolveInterpreter(file *FileConfig) (recipe.ShellConfig, string, error) {
	cfg := recipe.DefaultShellConfig()
	src := SourceDefault

	if line := os.Getenv("TABFY_INTERPRETER"); line != "" {
		argv, err := command.Split(line)
		if err != nil {
			return cfg, "", fmt.Errorf("invalid TABFY_INTERPRETER: %w", err)
		}
		cfg.Command, cfg.Args = argv[0], argv[1:]
		src = SourceEnv
	} else if file.Interpreter.Command != "" {
		cfg.Command, cfg.Args = file.Interpreter.Command, file.Interpreter.Args
		src = SourceFile
	}

	if file.Interpreter.Serialize != "" {
		cfg.Serialize = file.Interpreter.Serialize
	}
	if file.MaxOutputBytes < 0 {
		return cfg, "", fmt.Errorf("max_output_bytes must not be negative, got: %d", file.MaxOutputBytes)
	}
	if file.MaxOutputBytes > 0 {
		cfg.MaxOutputBytes = file.MaxOutputBytes
	}
	return cfg, src, nil
}

func resolveTimeout(flags Flags, file *FileConfig) (time.Duration, string, error) {
	if flags.TimeoutSet {
		return flags.Timeout, SourceCLI, nil
	}
	raw, src := pick("", os.Getenv("TABFY_TIMEOUT"), file.Timeout)
	if raw == "" {
		return DefaultTimeout, SourceDefault, nil
	}
	if raw == "0" {
		return 0, src, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, "", fmt.Errorf("invalid timeout %q (from %s): %w", raw, src, err)
	}
	return d, src, nil
}

// getEnvBool reads a boolean from the first of keys that is set. It returns
// nil when none are set and an error when the value is not a boolean.
func getEnvBool(keys ...string) (*bool, error) {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value %q (must be true or false)", key, val)
			}
			return &b, nil
		}
	}
	return nil, nil
}

func validateResolved(r *Resolved) error {
	if r.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got: %s", r.Timeout)
	}
	if !validFormats[r.Format] {
		return fmt.Errorf("invalid format value: %s (must be: auto, terminal, plain, json)", r.Format)
	}
	if !validThemes[r.Theme] {
		return fmt.Errorf("invalid theme value: %s (must be: default, orca, mono)", r.Theme)
	}
	if r.Interpreter.Command == "" {
		return fmt.Errorf("interpreter command cannot be empty")
	}
	return nil
}
