// Package detect sniffs an interpreter's output to classify its top-level
// JSON shape.
package detect

import (
	"encoding/json"
)

// Shape represents the top-level kind of a JSON document.
type Shape int

const (
	Invalid Shape = iota // not a single well-formed JSON value
	Array                // [ ... ]
	Object               // { ... }
	Scalar               // string, number, bool or null
)

func (s Shape) String() string {
	switch s {
	case Array:
		return "array"
	case Object:
		return "object"
	case Scalar:
		return "scalar"
	default:
		return "invalid"
	}
}

// Sniff examines data to determine its top-level shape. The whole document is
// validated, so a truncated or doubled document is Invalid.
func Sniff(data []byte) Shape {
	// Trim leading whitespace
	for len(data) > 0 && (data[0] == ' ' || data[0] == '\t' || data[0] == '\n' || data[0] == '\r') {
		data = data[1:]
	}
	if len(data) == 0 || !json.Valid(data) {
		return Invalid
	}

	switch data[0] {
	case '[':
		return Array
	case '{':
		return Object
	default:
		return Scalar
	}
}
