// Package catalog holds the ordered set of command schemas tabfy recognizes.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Definition is the uncompiled form of a schema, as written in config files
// or the built-in defaults.
type Definition struct {
	Name    string `yaml:"name" toml:"name"`
	Pattern string `yaml:"pattern" toml:"pattern"`
	Recipe  string `yaml:"recipe" toml:"recipe"`
}

// Schema is one recognized command shape: a compiled pattern and the recipe
// that reshapes the command's output.
type Schema struct {
	Name    string
	Pattern string
	Recipe  string

	re *regexp.Regexp
}

// Matches reports whether the pattern matches anywhere in fragment.
func (s *Schema) Matches(fragment string) bool {
	return s.re != nil && s.re.MatchString(fragment)
}

// Rejected describes a definition that was dropped while building a catalog.
type Rejected struct {
	Index   int
	Name    string
	Pattern string
	Err     error
}

func (r Rejected) Error() string {
	name := r.Name
	if name == "" {
		name = fmt.Sprintf("#%d", r.Index)
	}
	return fmt.Sprintf("schema %s: %v", name, r.Err)
}

var (
	errEmptyPattern = errors.New("empty pattern")
	errEmptyRecipe  = errors.New("empty recipe")
)

// Catalog is an immutable, ordered collection of schemas. Order is match
// priority. The zero value matches nothing.
type Catalog struct {
	schemas []Schema
}

type options struct {
	logger *zap.Logger
}

// Option configures Build and Load.
type Option func(*options)

// WithLogger reports rejected definitions to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Build compiles defs in order. Definitions that fail to compile are left out
// of the catalog and returned as rejects; Build itself never fails.
func Build(defs []Definition, opts ...Option) (*Catalog, []Rejected) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Catalog{schemas: make([]Schema, 0, len(defs))}
	var rejected []Rejected
	for i, def := range defs {
		schema, err := compile(def)
		if err != nil {
			r := Rejected{Index: i, Name: def.Name, Pattern: def.Pattern, Err: err}
			o.logger.Warn("dropping schema",
				zap.Int("index", i),
				zap.String("name", def.Name),
				zap.String("pattern", def.Pattern),
				zap.Error(err))
			rejected = append(rejected, r)
			continue
		}
		c.schemas = append(c.schemas, schema)
	}
	return c, rejected
}

// Load builds the active catalog: configured definitions first, then the
// built-in defaults, so configuration can shadow a built-in pattern.
func Load(extra []Definition, opts ...Option) (*Catalog, []Rejected) {
	defs := make([]Definition, 0, len(extra)+len(builtins))
	defs = append(defs, extra...)
	defs = append(defs, Defaults()...)
	return Build(defs, opts...)
}

func compile(def Definition) (Schema, error) {
	if strings.TrimSpace(def.Pattern) == "" {
		return Schema{}, errEmptyPattern
	}
	if strings.TrimSpace(def.Recipe) == "" {
		return Schema{}, errEmptyRecipe
	}
	re, err := regexp.Compile(def.Pattern)
	if err != nil {
		return Schema{}, fmt.Errorf("compile pattern: %w", err)
	}
	return Schema{Name: def.Name, Pattern: def.Pattern, Recipe: def.Recipe, re: re}, nil
}

// Find returns the first schema whose pattern matches anywhere in fragment.
func (c *Catalog) Find(fragment string) (*Schema, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.schemas {
		if c.schemas[i].Matches(fragment) {
			return &c.schemas[i], true
		}
	}
	return nil, false
}

// Schemas returns a copy of the active schemas in priority order.
func (c *Catalog) Schemas() []Schema {
	if c == nil {
		return nil
	}
	out := make([]Schema, len(c.schemas))
	copy(out, c.schemas)
	return out
}

// Len returns the number of active schemas.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.schemas)
}
