// Package engine drives a tabfy request: pull the source command out of the
// pipeline text, find its schema, run the program and the recipe, and turn the
// result into a table.
package engine

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkoosis/tabfy/pkg/catalog"
	"github.com/dkoosis/tabfy/pkg/command"
	"github.com/dkoosis/tabfy/pkg/recipe"
	"github.com/dkoosis/tabfy/pkg/table"
)

// Span is a half-open byte range [Start, End) in the host's source text.
type Span struct {
	Start int
	End   int
}

// SourceReader gives access to the host's source text.
type SourceReader interface {
	SpanContents(span Span) ([]byte, error)
}

// TextSource serves spans out of an in-memory string.
type TextSource string

// SpanContents returns the bytes covered by span.
func (s TextSource) SpanContents(span Span) ([]byte, error) {
	if span.Start < 0 || span.End < span.Start || span.End > len(s) {
		return nil, fmt.Errorf("span %d..%d out of range (len %d)", span.Start, span.End, len(s))
	}
	return []byte(s[span.Start:span.End]), nil
}

// Input is one request from the host. Head is the span of the tabfy call
// itself; the source command is read from Span.Start up to Head.Start.
type Input struct {
	Value  any
	Span   Span
	Head   Span
	Source SourceReader // nil reads from Value directly
}

// TextInput builds an Input for a standalone pipeline string, with the call
// marker at its end.
func TextInput(text string) Input {
	end := len(text)
	return Input{
		Value:  text,
		Span:   Span{Start: 0, End: end},
		Head:   Span{Start: end, End: end},
		Source: TextSource(text),
	}
}

// Match is the schema selected for a command fragment.
type Match struct {
	Fragment string
	Schema   *catalog.Schema
}

// Engine handles requests. It is safe for concurrent use when its Runner and
// Interpreter are.
type Engine struct {
	catalog   *catalog.Catalog
	executor  *recipe.Executor
	runner    recipe.Runner
	delim     rune
	tableOpts []table.Option
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDelimiter sets the rune that ends the source command.
func WithDelimiter(r rune) Option {
	return func(e *Engine) {
		if r != 0 {
			e.delim = r
		}
	}
}

// WithTableOptions passes options through to table.Materialize.
func WithTableOptions(opts ...table.Option) Option {
	return func(e *Engine) { e.tableOpts = append(e.tableOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New returns an Engine over cat that runs programs with runner and recipes
// with exec.
func New(cat *catalog.Catalog, exec *recipe.Executor, runner recipe.Runner, opts ...Option) *Engine {
	e := &Engine{
		catalog:  cat,
		executor: exec,
		runner:   runner,
		delim:    command.DefaultDelimiter,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle runs one request. Steps run strictly in order and the first failure
// is returned as an *Error; no partial table is produced.
func (e *Engine) Handle(ctx context.Context, in Input) (*table.Table, error) {
	log := e.logger.With(zap.String("request_id", uuid.NewString()))

	text, ok := in.Value.(string)
	if !ok {
		return nil, &Error{
			Kind:  TypeMismatch,
			Msg:   "expected string input from pipeline",
			Label: fmt.Sprintf("requires string input; got %s", typeName(in.Value)),
			Span:  in.Head,
		}
	}

	raw, err := e.source(in, text)
	if err != nil {
		return nil, err
	}
	log.Debug("source", zap.String("text", raw))

	m, err := e.match(raw, in.Span.Start)
	if err != nil {
		log.Debug("no match", zap.Error(err))
		return nil, err
	}
	fragSpan := Span{Start: in.Span.Start, End: in.Span.Start + len(m.Fragment)}
	log.Debug("matched", zap.String("fragment", m.Fragment), zap.String("schema", m.Schema.Name))

	argv, err := command.Split(m.Fragment)
	if err != nil {
		return nil, &Error{Kind: ExecutionFailed, Msg: "cannot parse source command", Label: "here", Span: fragSpan, Err: err}
	}

	output, err := e.runner.Output(ctx, argv)
	if err != nil {
		return nil, &Error{Kind: ExecutionFailed, Msg: "source command failed", Label: argv[0], Span: fragSpan, Err: err}
	}

	doc, err := e.executor.Execute(ctx, m.Schema.Recipe, output)
	if err != nil {
		return nil, &Error{Kind: ExecutionFailed, Msg: "recipe failed", Label: m.Schema.Name, Span: fragSpan, Err: err}
	}

	tbl, err := table.Materialize(doc, e.tableOpts...)
	if err != nil {
		kind := MalformedOutput
		if errors.Is(err, table.ErrUnexpectedShape) {
			kind = UnexpectedShape
		}
		return nil, &Error{Kind: kind, Msg: "cannot build table from recipe output", Label: m.Schema.Name, Span: in.Head, Err: err}
	}
	for _, w := range tbl.Warnings {
		log.Warn("element skipped", zap.Int("index", w.Index), zap.String("shape", w.Shape))
	}
	log.Debug("done", zap.Int("rows", tbl.Len()))
	return tbl, nil
}

// Match extracts the source command from raw pipeline text and finds its
// schema without running anything.
func (e *Engine) Match(raw string) (Match, error) {
	return e.match(raw, 0)
}

func (e *Engine) match(raw string, base int) (Match, error) {
	whole := Span{Start: base, End: base + len(raw)}
	fragment, err := command.Extract(raw, e.delim)
	if err != nil {
		return Match{}, &Error{
			Kind:  MissingDelimiter,
			Msg:   fmt.Sprintf("expected %q in input string", e.delim),
			Label: fmt.Sprintf("input string does not contain %q", e.delim),
			Span:  whole,
			Err:   err,
		}
	}
	schema, ok := e.catalog.Find(fragment)
	if !ok {
		return Match{}, &Error{
			Kind:  NoSchema,
			Msg:   fmt.Sprintf("no schema for %q", fragment),
			Label: "unrecognized command",
			Span:  Span{Start: base, End: base + len(fragment)},
		}
	}
	return Match{Fragment: fragment, Schema: schema}, nil
}

func (e *Engine) source(in Input, text string) (string, error) {
	if in.Source == nil {
		return text, nil
	}
	span := Span{Start: in.Span.Start, End: in.Head.Start}
	data, err := in.Source.SpanContents(span)
	if err != nil {
		return "", &Error{Kind: InvalidSource, Msg: "cannot read source text", Label: "here", Span: span, Err: err}
	}
	if !utf8.Valid(data) {
		return "", &Error{Kind: InvalidSource, Msg: "invalid UTF-8 sequence", Label: "span contents are not valid UTF-8", Span: span}
	}
	return string(data), nil
}

func typeName(v any) string {
	if v == nil {
		return "nothing"
	}
	return fmt.Sprintf("%T", v)
}
