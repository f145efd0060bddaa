package engine

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/tabfy/pkg/catalog"
	"github.com/dkoosis/tabfy/pkg/command"
	"github.com/dkoosis/tabfy/pkg/recipe"
	"github.com/dkoosis/tabfy/pkg/table"
)

const gitStatusOutput = `On branch main
Changes not staged for commit:
  (use "git add <file>..." to update what will be committed)
  (use "git restore <file>..." to discard changes in working directory)
	modified:   README.md
	deleted:    old.go
	modified:   main.go
`

// fakes records every process the engine would have started.
type fakes struct {
	runs    [][]string
	recipes []string
	inputs  [][]byte

	output    []byte
	runErr    error
	doc       []byte
	interpErr error
}

func (f *fakes) Output(_ context.Context, argv []string) ([]byte, error) {
	f.runs = append(f.runs, argv)
	return f.output, f.runErr
}

func (f *fakes) Run(_ context.Context, rcp string, input []byte) ([]byte, error) {
	f.recipes = append(f.recipes, rcp)
	f.inputs = append(f.inputs, input)
	return f.doc, f.interpErr
}

func (f *fakes) calls() int { return len(f.runs) + len(f.recipes) }

func newTestEngine(t *testing.T, f *fakes, opts ...Option) *Engine {
	t.Helper()
	cat, rejected := catalog.Load(nil)
	require.Empty(t, rejected)
	return New(cat, recipe.NewExecutor(f), f, opts...)
}

func TestHandle_ReturnsStatusRows_When_GitStatusPiped(t *testing.T) {
	t.Parallel()

	f := &fakes{
		output: []byte(gitStatusOutput),
		doc:    []byte(`[{"status":"modified"},{"status":"deleted"},{"status":"modified"}]`),
	}
	e := newTestEngine(t, f)

	tbl, err := e.Handle(context.Background(), TextInput("git status | columns"))

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"git", "status"}}, f.runs)
	assert.Equal(t, []string{"lines | skip 4 | parse --regex '(?<status>modified|deleted)'"}, f.recipes)
	assert.Equal(t, gitStatusOutput, string(f.inputs[0]))
	require.Equal(t, 3, tbl.Len())
	v, _ := tbl.Rows[1].Get("status")
	assert.Equal(t, "deleted", v)
}

func TestHandle_FailsWithoutSideEffects_When_DelimiterMissing(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"git status", "", "ls -la"} {
		f := &fakes{}
		_, err := newTestEngine(t, f).Handle(context.Background(), TextInput(in))

		require.Error(t, err)
		assert.Equal(t, MissingDelimiter, KindOf(err), "input %q", in)
		assert.ErrorIs(t, err, command.ErrMissingDelimiter)
		assert.Zero(t, f.calls(), "no process may start for %q", in)
	}
}

func TestHandle_FailsWithSpan_When_NoSchemaMatches(t *testing.T) {
	t.Parallel()

	f := &fakes{}
	_, err := newTestEngine(t, f).Handle(context.Background(), TextInput("ls -la | columns"))

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, NoSchema, e.Kind)
	assert.Equal(t, Span{Start: 0, End: len("ls -la ")}, e.Span)
	assert.Contains(t, e.Msg, `"ls -la "`)
	assert.True(t, errors.Is(err, &Error{Kind: NoSchema}))
	assert.Zero(t, f.calls())
}

func TestHandle_FailsImmediately_When_ValueNotText(t *testing.T) {
	t.Parallel()

	f := &fakes{}
	in := Input{Value: 42, Head: Span{Start: 5, End: 10}, Source: TextSource("git status | tabfy")}
	_, err := newTestEngine(t, f).Handle(context.Background(), in)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, TypeMismatch, e.Kind)
	assert.Equal(t, "requires string input; got int", e.Label)
	assert.Equal(t, in.Head, e.Span)
	assert.Zero(t, f.calls())
}

func TestHandle_ReadsHostSpan_When_SourceGiven(t *testing.T) {
	t.Parallel()

	src := "cd repo; git status | tabfy"
	start := strings.Index(src, "git")
	head := strings.Index(src, "tabfy")
	f := &fakes{output: []byte("x"), doc: []byte(`[]`)}
	in := Input{
		Value:  "ignored",
		Span:   Span{Start: start, End: len(src)},
		Head:   Span{Start: head, End: len(src)},
		Source: TextSource(src),
	}

	tbl, err := newTestEngine(t, f).Handle(context.Background(), in)

	require.NoError(t, err)
	assert.Zero(t, tbl.Len())
	assert.Equal(t, [][]string{{"git", "status"}}, f.runs)
}

func TestHandle_SpanIsOffset_When_InputStartsLater(t *testing.T) {
	t.Parallel()

	src := "cd repo; ls -la | tabfy"
	start := strings.Index(src, "ls")
	in := Input{
		Value:  "",
		Span:   Span{Start: start, End: len(src)},
		Head:   Span{Start: strings.Index(src, "tabfy"), End: len(src)},
		Source: TextSource(src),
	}

	_, err := newTestEngine(t, &fakes{}).Handle(context.Background(), in)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, Span{Start: start, End: start + len("ls -la ")}, e.Span)
}

func TestHandle_Fails_When_SourceNotUTF8(t *testing.T) {
	t.Parallel()

	src := TextSource("git status \xff| tabfy")
	in := Input{Value: "", Span: Span{Start: 0}, Head: Span{Start: len(src)}, Source: src}

	_, err := newTestEngine(t, &fakes{}).Handle(context.Background(), in)

	assert.Equal(t, InvalidSource, KindOf(err))
	assert.ErrorContains(t, err, "invalid UTF-8")
}

func TestHandle_Fails_When_SpanOutOfRange(t *testing.T) {
	t.Parallel()

	in := Input{Value: "", Span: Span{Start: 0}, Head: Span{Start: 99}, Source: TextSource("short")}

	_, err := newTestEngine(t, &fakes{}).Handle(context.Background(), in)

	assert.Equal(t, InvalidSource, KindOf(err))
}

func TestHandle_ReadsValue_When_NoSource(t *testing.T) {
	t.Parallel()

	f := &fakes{doc: []byte(`[]`)}
	_, err := newTestEngine(t, f).Handle(context.Background(), Input{Value: "git status | x"})

	require.NoError(t, err)
	assert.Len(t, f.runs, 1)
}

func TestHandle_StopsAtFirstFailure_When_ProgramFails(t *testing.T) {
	t.Parallel()

	f := &fakes{runErr: errors.New("fatal: not a git repository")}
	_, err := newTestEngine(t, f).Handle(context.Background(), TextInput("git status | x"))

	assert.Equal(t, ExecutionFailed, KindOf(err))
	assert.ErrorIs(t, err, recipe.ErrExecutionFailed)
	assert.ErrorContains(t, err, "not a git repository")
	assert.Empty(t, f.recipes, "recipe must not run after the program failed")
}

func TestHandle_Fails_When_RecipeFails(t *testing.T) {
	t.Parallel()

	f := &fakes{interpErr: errors.New("nu: command not found")}
	_, err := newTestEngine(t, f).Handle(context.Background(), TextInput("git status | x"))

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ExecutionFailed, e.Kind)
	assert.Equal(t, "git-status", e.Label)
}

func TestHandle_Fails_When_CommandUnparseable(t *testing.T) {
	t.Parallel()

	cat, _ := catalog.Build([]catalog.Definition{{Pattern: "echo", Recipe: "lines"}})
	f := &fakes{}
	e := New(cat, recipe.NewExecutor(f), f)

	_, err := e.Handle(context.Background(), TextInput(`echo "open | x`))

	assert.Equal(t, ExecutionFailed, KindOf(err))
	assert.Zero(t, f.calls())
}

func TestHandle_ClassifiesMaterializerFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want Kind
	}{
		{"not json", "Error: nu::shell::external_command", MalformedOutput},
		{"empty output", "", MalformedOutput},
		{"object", `{"status":"modified"}`, UnexpectedShape},
		{"scalar", `"modified"`, UnexpectedShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakes{doc: []byte(tt.doc)}
			_, err := newTestEngine(t, f).Handle(context.Background(), TextInput("git status | x"))

			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestHandle_Fails_When_StrictAndElementNotObject(t *testing.T) {
	t.Parallel()

	f := &fakes{doc: []byte(`[{"a":1},"stray"]`)}
	e := newTestEngine(t, f, WithTableOptions(table.Strict(true)))

	_, err := e.Handle(context.Background(), TextInput("git status | x"))

	assert.Equal(t, UnexpectedShape, KindOf(err))
	assert.ErrorIs(t, err, table.ErrUnexpectedShape)
}

func TestHandle_ExplodesKeys_When_PerKeyMode(t *testing.T) {
	t.Parallel()

	f := &fakes{doc: []byte(`[{"a":"1","b":"2"}]`)}
	e := newTestEngine(t, f, WithTableOptions(table.WithMode(table.ModePerKey)))

	tbl, err := e.Handle(context.Background(), TextInput("git status | x"))

	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestHandle_UsesCustomDelimiter(t *testing.T) {
	t.Parallel()

	f := &fakes{doc: []byte(`[]`)}
	e := newTestEngine(t, f, WithDelimiter(';'))

	_, err := e.Handle(context.Background(), TextInput("git status ; tabfy"))
	require.NoError(t, err)

	_, err = e.Handle(context.Background(), TextInput("git status | tabfy"))
	assert.Equal(t, MissingDelimiter, KindOf(err))
}

func TestMatch_SelectsSchemaWithoutRunning(t *testing.T) {
	t.Parallel()

	f := &fakes{}
	m, err := newTestEngine(t, f).Match("git status | columns")

	require.NoError(t, err)
	assert.Equal(t, "git status ", m.Fragment)
	assert.Equal(t, "git-status", m.Schema.Name)
	assert.Zero(t, f.calls())
}

func TestHandle_RunsRealProcesses_When_ShellAvailable(t *testing.T) {
	for _, bin := range []string{"sh", "awk", "printf"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available", bin)
		}
	}
	t.Parallel()

	cat, rejected := catalog.Build([]catalog.Definition{{
		Name:    "lines",
		Pattern: `^printf`,
		Recipe:  `awk 'BEGIN{printf "["} {if (NR>1) printf ","; printf "{\"line\":\"%s\"}", $0} END{print "]"}'`,
	}})
	require.Empty(t, rejected)
	shell := recipe.NewShell(recipe.ShellConfig{Command: "sh", Args: []string{"-c"}, Serialize: "cat"})
	e := New(cat, recipe.NewExecutor(shell, recipe.WithTimeout(10*time.Second)), recipe.Exec{Timeout: 10 * time.Second})

	tbl, err := e.Handle(context.Background(), TextInput(`printf 'a\nb\n' | tabfy`))

	require.NoError(t, err)
	assert.Equal(t, []table.Row{
		{{Column: "line", Value: "a"}},
		{{Column: "line", Value: "b"}},
	}, tbl.Rows)
}

func TestKind_Code(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NO_SCHEMA", NoSchema.Code())
	assert.Equal(t, "MISSING_DELIMITER", MissingDelimiter.Code())
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.Zero(t, KindOf(errors.New("plain")))
	assert.True(t, IsKind(&Error{Kind: UnexpectedShape}, UnexpectedShape))
}
