package indexer

import (
	"encoding/json"
	"io"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

// ExportModel writes the full entity model as indented JSON. It is a
// write-only debug channel backing the -dump CLI flag; nothing reads the
// output back.
func ExportModel(model *types.Model, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(model)
}
