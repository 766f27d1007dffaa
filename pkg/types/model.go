package types

import "sort"

// Module is an import/require target referenced by one or more files. It is
// identified by the import specifier and is not itself a CodeFile; many files
// may reference the same Module.
type Module struct {
	Name string `json:"name"`
}

// Model is the full entity model for one indexing run: every parsed file with
// its functions, variables and dependencies, plus the deduplicated module set.
// A Model is produced fresh on each run and never patched incrementally.
type Model struct {
	Files   []*CodeFile `json:"files"`
	Modules []*Module   `json:"modules,omitempty"`

	moduleSet map[string]struct{}
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{moduleSet: make(map[string]struct{})}
}

// AddFile merges a parsed file into the model and registers its module
// dependencies. Files are kept in insertion order; callers that need
// deterministic cross-file resolution sort before adding.
func (m *Model) AddFile(cf *CodeFile) {
	m.Files = append(m.Files, cf)
	for _, mod := range cf.Requires {
		m.addModule(mod)
	}
	for _, fn := range cf.Functions {
		for _, mod := range fn.Requires {
			m.addModule(mod)
		}
	}
}

func (m *Model) addModule(name string) {
	if name == "" {
		return
	}
	if m.moduleSet == nil {
		m.moduleSet = make(map[string]struct{})
	}
	if _, ok := m.moduleSet[name]; ok {
		return
	}
	m.moduleSet[name] = struct{}{}
	m.Modules = append(m.Modules, &Module{Name: name})
}

// Functions returns every function across all files, in file order.
func (m *Model) Functions() []*Function {
	var fns []*Function
	for _, f := range m.Files {
		fns = append(fns, f.Functions...)
	}
	return fns
}

// Variables returns every variable across all files, in file order.
func (m *Model) Variables() []*Variable {
	var vars []*Variable
	for _, f := range m.Files {
		vars = append(vars, f.Variables...)
	}
	return vars
}

// FunctionIDs returns the sorted set of function identifiers in the model.
// This is the identifier set both stores must agree on after a build.
func (m *Model) FunctionIDs() []string {
	ids := make([]string, 0)
	for _, f := range m.Files {
		for _, fn := range f.Functions {
			ids = append(ids, fn.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// DynamicImportCount totals unresolved computed import targets across files.
func (m *Model) DynamicImportCount() int {
	n := 0
	for _, f := range m.Files {
		n += len(f.DynamicImports)
	}
	return n
}
