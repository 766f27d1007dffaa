package types

import (
	"errors"
	"strings"
)

// IDSeparator joins the file path and entity name into a composite identifier.
const IDSeparator = "::"

// CompositeID builds the identifier for a Function or Variable. The same value
// keys the vector index and the graph, so it must be computed in exactly one
// place.
func CompositeID(filePath, name string) string {
	return filePath + IDSeparator + name
}

// SplitID splits a composite identifier back into file path and entity name.
// The file path may itself contain the separator only if a path component does,
// which the repository layout does not allow; the last occurrence wins.
func SplitID(id string) (filePath, name string) {
	idx := strings.LastIndex(id, IDSeparator)
	if idx < 0 {
		return "", id
	}
	return id[:idx], id[idx+len(IDSeparator):]
}

// Function is a named function extracted from a source file. Snippet holds the
// exact source substring of the definition; it is embedded verbatim, so it must
// never be truncated or normalized.
type Function struct {
	// Identification
	ID       string `json:"id"`
	Name     string `json:"name"`
	FilePath string `json:"file_path"`

	// Content
	Snippet  string   `json:"snippet"`
	Params   []string `json:"params,omitempty"`
	Exported bool     `json:"exported"`

	// Relations gathered during parsing. Calls holds raw called identifiers in
	// source order with later duplicates collapsed; CallTargets is filled by
	// cross-file resolution and holds composite identifiers in the same order.
	Calls       []string `json:"calls,omitempty"`
	CallTargets []string `json:"call_targets,omitempty"`

	// Requires lists module specifiers required lazily inside the body.
	Requires []string `json:"requires,omitempty"`

	// Location
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// NewFunction constructs a Function with its composite identifier computed.
func NewFunction(filePath, name string) *Function {
	return &Function{
		ID:       CompositeID(filePath, name),
		Name:     name,
		FilePath: filePath,
	}
}

// AddCall records a called identifier, keeping source order and collapsing
// repeat calls to the same name.
func (f *Function) AddCall(name string) {
	for _, c := range f.Calls {
		if c == name {
			return
		}
	}
	f.Calls = append(f.Calls, name)
}

// AddRequire records a module specifier required inside the function body.
func (f *Function) AddRequire(module string) {
	for _, m := range f.Requires {
		if m == module {
			return
		}
	}
	f.Requires = append(f.Requires, module)
}

// Validate performs basic integrity checks on the function.
func (f *Function) Validate() error {
	if f.Name == "" {
		return errors.New("function name is required")
	}
	if f.FilePath == "" {
		return errors.New("function file path is required")
	}
	if f.ID != CompositeID(f.FilePath, f.Name) {
		return errors.New("function id does not match file path and name")
	}
	if f.Snippet == "" {
		return errors.New("function snippet is required")
	}
	if f.StartLine <= 0 || f.EndLine < f.StartLine {
		return errors.New("invalid function position")
	}
	return nil
}
