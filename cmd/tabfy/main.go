// tabfy runs a shell command, reshapes its text output with a per-command
// recipe, and prints the result as a table.
//
// Usage:
//
//	tabfy 'git status | tabfy'
//	echo 'git log --oneline -5 | tabfy' | tabfy --format json
//	tabfy --dry-run 'git branch | tabfy'
//	tabfy catalog
//
// The text before the first delimiter ('|' by default) is the source command.
// It is matched against the schema catalog; the matching schema's recipe runs
// in the configured interpreter (nushell by default) over the command's
// output, and the resulting JSON array of records is rendered.
//
// Output modes (auto-detected):
//
//	terminal  bordered table (default when TTY)
//	plain     tab-separated values (default when piped)
//	json      array of objects for automation
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/dkoosis/tabfy/internal/config"
	"github.com/dkoosis/tabfy/internal/logging"
	"github.com/dkoosis/tabfy/internal/version"
	"github.com/dkoosis/tabfy/pkg/catalog"
	"github.com/dkoosis/tabfy/pkg/engine"
	"github.com/dkoosis/tabfy/pkg/recipe"
	"github.com/dkoosis/tabfy/pkg/render"
	"github.com/dkoosis/tabfy/pkg/table"
	"github.com/dkoosis/tabfy/pkg/view"
)

const (
	exitOK      = 0
	exitFailure = 1 // request failed
	exitUsage   = 2 // bad flags, config or input
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// deps are the process-facing pieces swapped out in tests.
type deps struct {
	runner      func(cfg *config.Resolved) recipe.Runner
	interpreter func(cfg *config.Resolved) recipe.Interpreter
	isTTY       func(w io.Writer) bool
}

var defaultDeps = deps{
	runner: func(cfg *config.Resolved) recipe.Runner {
		return recipe.Exec{Timeout: cfg.Timeout, MaxOutputBytes: cfg.Interpreter.MaxOutputBytes}
	},
	interpreter: func(cfg *config.Resolved) recipe.Interpreter {
		return recipe.NewShell(cfg.Interpreter)
	},
	isTTY: isTTYWriter,
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return runWith(args, stdin, stdout, stderr, defaultDeps)
}

func runWith(args []string, stdin io.Reader, stdout, stderr io.Writer, d deps) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, deps: d}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var reqErr *engine.Error
	if errors.As(err, &reqErr) {
		if a.cfg != nil && d.isTTY(stderr) {
			fmt.Fprint(stderr, render.NewTerminal(errorTheme(a.cfg), 0).RenderError(reqErr.Kind.Code(), reqErr.Error()))
		} else {
			fmt.Fprintf(stderr, "tabfy: %s: %s\n", reqErr.Kind.Code(), reqErr.Error())
		}
		fmt.Fprint(stderr, diagnostic(a.text, reqErr))
		if engine.IsKind(err, engine.NoSchema) {
			fmt.Fprintln(stderr, "  run 'tabfy catalog' to list the known schemas")
		}
		return exitFailure
	}
	fmt.Fprintf(stderr, "tabfy: %v\n", err)
	return exitUsage
}

type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	deps           deps

	flags  config.Flags
	cfg    *config.Resolved // set once Resolve succeeds
	dryRun bool
	view   bool

	text     string // pipeline text of the current request
	textFrom string // "arg" or "stdin"
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tabfy [flags] [pipeline-text]",
		Short: "Turn a command's text output into a table",
		Long: `tabfy takes pipeline text such as "git status | tabfy", runs the command
before the first delimiter, reshapes its output with the recipe of the first
matching schema, and prints the records as a table.

The pipeline text is read from the argument, or from stdin when none is given.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.flags.TimeoutSet = cmd.Flags().Changed("timeout")
			a.flags.StrictSet = cmd.Flags().Changed("strict")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.tabulate(cmd.Context(), args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.ConfigPath, "config", "", "config file (default: ./.tabfy.yaml, ./.tabfy.toml or ~/.config/tabfy/config.yaml)")
	pf.StringVar(&a.flags.Format, "format", "", "output format: auto, terminal, plain, json")
	pf.StringVar(&a.flags.Theme, "theme", "", "theme: default, orca, mono")
	pf.BoolVar(&a.flags.Debug, "debug", false, "log each step to stderr")

	f := root.Flags()
	f.StringVar(&a.flags.Delimiter, "delimiter", "", "character that ends the source command (default '|')")
	f.StringVar(&a.flags.Mode, "mode", "", "row mode: record (one row per object) or per-key")
	f.BoolVar(&a.flags.Strict, "strict", false, "fail when the recipe emits non-object elements")
	f.DurationVar(&a.flags.Timeout, "timeout", 0, "per-process timeout, 0 for none (default 30s)")
	f.BoolVar(&a.dryRun, "dry-run", false, "show the matched command, schema and recipe without running anything")
	f.BoolVar(&a.view, "view", false, "browse the result in an interactive viewer")

	root.AddCommand(a.catalogCmd(), versionCmd())
	return root
}

func (a *app) tabulate(ctx context.Context, args []string) error {
	cfg, err := config.Resolve(a.flags)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logger := logging.New(a.stderr, cfg.Debug)
	defer func() { _ = logger.Sync() }()
	logger.Debug("config resolved",
		zap.String("path", cfg.Path),
		zap.String("delimiter", string(cfg.Delimiter)),
		zap.String("delimiter_source", cfg.DelimiterSource),
		zap.String("interpreter", cfg.Interpreter.Command),
		zap.String("interpreter_source", cfg.InterpreterSource),
		zap.Duration("timeout", cfg.Timeout),
		zap.String("mode", string(cfg.Mode)),
		zap.Bool("strict", cfg.Strict),
	)

	if err := a.readText(args); err != nil {
		return err
	}

	cat, _ := catalog.Load(cfg.Schemas, catalog.WithLogger(logger))
	exec := recipe.NewExecutor(a.deps.interpreter(cfg),
		recipe.WithTimeout(cfg.Timeout),
		recipe.WithLogger(logger),
	)
	eng := engine.New(cat, exec, a.deps.runner(cfg),
		engine.WithDelimiter(cfg.Delimiter),
		engine.WithTableOptions(table.WithMode(cfg.Mode), table.Strict(cfg.Strict)),
		engine.WithLogger(logger),
	)

	if a.dryRun {
		m, err := eng.Match(a.text)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "command: %s\nschema:  %s\nrecipe:  %s\n", m.Fragment, m.Schema.Name, m.Schema.Recipe)
		return nil
	}

	tbl, err := eng.Handle(ctx, engine.TextInput(a.text))
	if err != nil {
		return err
	}

	theme := render.ThemeByName(cfg.Theme)
	if a.view {
		if !a.deps.isTTY(a.stdout) {
			return errors.New("--view needs a terminal on stdout")
		}
		var in io.Reader = a.stdin
		if a.textFrom == "stdin" {
			in = nil
		}
		return view.Run(ctx, tbl, a.text, theme, in, a.stdout)
	}
	return a.print(cfg, theme, tbl)
}

func (a *app) print(cfg *config.Resolved, theme render.Theme, tbl *table.Table) error {
	width, _ := termSize(a.stdout)
	r, err := render.ForFormat(cfg.Format, a.deps.isTTY(a.stdout), theme, width)
	if err != nil {
		return err
	}
	_, err = io.WriteString(a.stdout, r.Render(tbl))
	return err
}

func (a *app) readText(args []string) error {
	if len(args) == 1 {
		a.text, a.textFrom = args[0], "arg"
	} else {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		a.text, a.textFrom = string(data), "stdin"
	}
	a.text = strings.TrimRight(a.text, "\r\n")
	if strings.TrimSpace(a.text) == "" {
		return errors.New("no pipeline text (pass it as an argument or on stdin)")
	}
	return nil
}

func (a *app) catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the schemas in match order, plus any rejected config entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(a.flags)
			if err != nil {
				return err
			}
			logger := logging.New(a.stderr, cfg.Debug)
			defer func() { _ = logger.Sync() }()

			cat, rejected := catalog.Load(cfg.Schemas, catalog.WithLogger(logger))
			active := &table.Table{}
			for _, s := range cat.Schemas() {
				active.Rows = append(active.Rows, table.Row{
					{Column: "name", Value: s.Name},
					{Column: "pattern", Value: s.Pattern},
					{Column: "recipe", Value: s.Recipe},
				})
			}
			theme := render.ThemeByName(cfg.Theme)
			if err := a.print(cfg, theme, active); err != nil {
				return err
			}
			if len(rejected) == 0 {
				return nil
			}

			dropped := &table.Table{}
			for _, r := range rejected {
				dropped.Rows = append(dropped.Rows, table.Row{
					{Column: "entry", Value: fmt.Sprintf("#%d", r.Index)},
					{Column: "name", Value: r.Name},
					{Column: "error", Value: r.Err.Error()},
				})
			}
			fmt.Fprintf(a.stdout, "\nrejected:\n")
			return a.print(cfg, theme, dropped)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// errorTheme is the resolved theme, forced to mono under NO_COLOR even when
// a theme flag was given.
func errorTheme(cfg *config.Resolved) render.Theme {
	if cfg.NoColor {
		return render.MonoTheme()
	}
	return render.ThemeByName(cfg.Theme)
}

// diagnostic underlines the span of e within text. It returns "" when the
// text spans several lines or the span does not fit.
func diagnostic(text string, e *engine.Error) string {
	s := e.Span
	if text == "" || strings.ContainsAny(text, "\r\n") || s.Start < 0 || s.End < s.Start || s.End > len(text) {
		return ""
	}
	pad := runewidth.StringWidth(text[:s.Start])
	width := max(1, runewidth.StringWidth(text[s.Start:s.End]))
	return fmt.Sprintf("  %s\n  %s%s %s\n", text, strings.Repeat(" ", pad), strings.Repeat("^", width), e.Label)
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termSize returns the terminal dimensions for w, defaulting to 80x24.
func termSize(w io.Writer) (width, height int) {
	width, height = 80, 24
	if f, ok := w.(*os.File); ok {
		if tw, th, err := term.GetSize(int(f.Fd())); err == nil {
			if tw > 0 {
				width = tw
			}
			if th > 0 {
				height = th
			}
		}
	}
	return width, height
}
