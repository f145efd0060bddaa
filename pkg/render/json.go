package render

import (
	"encoding/json"

	"github.com/dkoosis/tabfy/pkg/table"
)

// JSON renders the table as an array of objects for automation. Key order
// within each object follows the row.
type JSON struct{}

// NewJSON creates a JSON renderer.
func NewJSON() *JSON {
	return &JSON{}
}

// Render formats the table as indented JSON.
func (j *JSON) Render(tbl *table.Table) string {
	if tbl == nil {
		tbl = &table.Table{}
	}
	data, err := json.MarshalIndent(tbl, "", "  ")
	if err != nil {
		errJSON, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(errJSON) + "\n"
	}
	return string(data) + "\n"
}
