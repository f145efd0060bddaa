// Package command pulls the leading source command out of pipeline text and
// splits it into an argument vector.
package command

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// DefaultDelimiter separates the source command from the rest of a pipeline.
const DefaultDelimiter = '|'

// ErrMissingDelimiter means the text is not a pipeline tabfy should handle.
var ErrMissingDelimiter = errors.New("missing pipeline delimiter")

// ErrEmptyCommand is returned by Split when the fragment has no words.
var ErrEmptyCommand = errors.New("empty command")

// ErrExpansion is returned by Split when a word needs shell evaluation.
var ErrExpansion = errors.New("shell expansion not supported")

// Extract returns everything before the first delim in raw.
func Extract(raw string, delim rune) (string, error) {
	i := strings.IndexRune(raw, delim)
	if i < 0 {
		return "", fmt.Errorf("%w: expected %q in input", ErrMissingDelimiter, delim)
	}
	return raw[:i], nil
}

// Split breaks fragment into words the way a POSIX shell would for a simple
// command: quotes are removed, backslash escapes and line continuations are
// honored, and a leading ~ becomes $HOME. Parameter, command and arithmetic
// expansions are rejected. Globs are left as written.
func Split(fragment string) ([]string, error) {
	var words []*syntax.Word
	err := syntax.NewParser().Words(strings.NewReader(fragment), func(w *syntax.Word) bool {
		words = append(words, w)
		return true
	})
	if err != nil {
		if syntax.IsIncomplete(err) {
			return nil, fmt.Errorf("unterminated quote or escape in %q: %w", fragment, err)
		}
		return nil, fmt.Errorf("parsing %q: %w", fragment, err)
	}
	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}
	for _, w := range words {
		if err := literalOnly(w); err != nil {
			return nil, fmt.Errorf("%w in %q", err, fragment)
		}
	}

	argv, err := expand.Fields(&expand.Config{Env: expand.ListEnviron(os.Environ()...)}, words...)
	if err != nil {
		return nil, fmt.Errorf("expanding %q: %w", fragment, err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	return argv, nil
}

// literalOnly rejects the word parts that would need a shell to evaluate.
func literalOnly(w *syntax.Word) error {
	var err error
	syntax.Walk(w, func(n syntax.Node) bool {
		if err != nil {
			return false
		}
		switch n.(type) {
		case *syntax.ParamExp:
			err = ErrExpansion
		case *syntax.CmdSubst, *syntax.ProcSubst:
			err = fmt.Errorf("%w: command substitution", ErrExpansion)
		case *syntax.ArithmExp:
			err = fmt.Errorf("%w: arithmetic", ErrExpansion)
		}
		return err == nil
	})
	return err
}
