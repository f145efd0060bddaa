package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dkoosis/tabfy/internal/detect"
)

var (
	// ErrMalformedOutput means the document is not parseable JSON.
	ErrMalformedOutput = errors.New("malformed output")
	// ErrUnexpectedShape means the document parsed but is not shaped like a
	// table: the top level is not an array, or strict mode met a non-object.
	ErrUnexpectedShape = errors.New("unexpected shape")
)

// Mode selects how array elements map to rows.
type Mode string

const (
	// ModeRecord emits one row per object with one column per key.
	ModeRecord Mode = "record"
	// ModePerKey emits one single-cell row per key/value pair of each object.
	ModePerKey Mode = "per-key"
)

// ParseMode validates a mode name. The empty string selects ModeRecord.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeRecord:
		return ModeRecord, nil
	case ModePerKey:
		return ModePerKey, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected %s or %s)", s, ModeRecord, ModePerKey)
	}
}

type options struct {
	mode   Mode
	strict bool
}

// Option configures Materialize.
type Option func(*options)

// WithMode selects the row mapping.
func WithMode(m Mode) Option {
	return func(o *options) {
		if m != "" {
			o.mode = m
		}
	}
}

// Strict makes non-object array elements fail the whole document instead of
// being skipped with a warning.
func Strict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// Materialize converts a JSON document into a Table. Only a top-level array is
// accepted; an empty array yields an empty table.
func Materialize(doc []byte, opts ...Option) (*Table, error) {
	o := options{mode: ModeRecord}
	for _, opt := range opts {
		opt(&o)
	}

	switch shape := detect.Sniff(doc); shape {
	case detect.Array:
	case detect.Invalid:
		return nil, fmt.Errorf("%w: not valid JSON: %s", ErrMalformedOutput, excerpt(doc))
	default:
		return nil, fmt.Errorf("%w: top level is %s, want array", ErrUnexpectedShape, shape)
	}

	dec := json.NewDecoder(bytes.NewReader(doc))
	if _, err := dec.Token(); err != nil { // '['
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}

	t := &Table{Rows: []Row{}}
	for i := 0; dec.More(); i++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrMalformedOutput, i, err)
		}
		if shape := detect.Sniff(raw); shape != detect.Object {
			if o.strict {
				return nil, fmt.Errorf("%w: element %d is %s, want object", ErrUnexpectedShape, i, shape)
			}
			t.Warnings = append(t.Warnings, Warning{Index: i, Shape: shape.String()})
			continue
		}
		row, err := decodeObject(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrMalformedOutput, i, err)
		}
		switch o.mode {
		case ModePerKey:
			for _, c := range row {
				t.Rows = append(t.Rows, Row{c})
			}
		default:
			t.Rows = append(t.Rows, row)
		}
	}
	return t, nil
}

// decodeObject reads a JSON object into a row, keeping key order. A repeated
// key keeps its first position and its last value.
func decodeObject(raw []byte) (Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // '{'
		return nil, err
	}
	row := Row{}
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T", tok)
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		text, err := Text(val)
		if err != nil {
			return nil, err
		}
		if i, dup := index[key]; dup {
			row[i].Value = text
			continue
		}
		index[key] = len(row)
		row = append(row, Cell{Column: key, Value: text})
	}
	return row, nil
}

// Text coerces one JSON value to its cell text. Strings are unquoted, numbers
// keep their literal spelling, booleans become true/false, null becomes the
// empty string, and arrays and objects become compact JSON.
func Text(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", io.ErrUnexpectedEOF
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", err
		}
		return buf.String(), nil
	case 'n':
		return "", nil
	default:
		return string(raw), nil
	}
}

func excerpt(doc []byte) string {
	const limit = 80
	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 {
		return "(empty)"
	}
	if len(doc) > limit {
		return fmt.Sprintf("%q…", doc[:limit])
	}
	return fmt.Sprintf("%q", doc)
}
