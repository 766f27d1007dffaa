package types

import (
	"fmt"
	"path"
)

// Language identifies the grammar used to parse a file.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
)

// DynamicImport records an import/require whose target expression is not a
// string literal. The target cannot be resolved to a Module identifier, so it
// is kept as a marker instead of being guessed or dropped.
type DynamicImport struct {
	Raw               string `json:"raw"`
	Line              int    `json:"line"`
	EnclosingFunction string `json:"enclosing_function,omitempty"`
}

// CodeFile is one parsed source file. It owns its Functions and Variables:
// every Function and Variable belongs to exactly one CodeFile, and their
// composite identifiers are unique within it (Functions and Variables share
// the namespace).
type CodeFile struct {
	// Path is repository-relative with forward slashes; it identifies the file
	// across runs and stores.
	Path     string   `json:"path"`
	Language Language `json:"language"`

	Functions []*Function `json:"functions,omitempty"`
	Variables []*Variable `json:"variables,omitempty"`

	// Requires lists every module specifier the file depends on: static
	// imports and requires plus lazy requires found inside function bodies.
	Requires []string `json:"requires,omitempty"`

	// DynamicImports holds unresolved computed import targets.
	DynamicImports []DynamicImport `json:"dynamic_imports,omitempty"`

	ids map[string]struct{}
}

// NewCodeFile constructs a CodeFile for the given repository-relative path.
func NewCodeFile(relPath string, lang Language) *CodeFile {
	return &CodeFile{
		Path:     relPath,
		Language: lang,
		ids:      make(map[string]struct{}),
	}
}

// Name returns the base name of the file.
func (cf *CodeFile) Name() string {
	return path.Base(cf.Path)
}

// AddFunction registers a function with the file, enforcing identifier
// uniqueness. On collision the existing entity is kept and
// ErrIdentifierCollision is returned wrapped with the offending identifier.
func (cf *CodeFile) AddFunction(fn *Function) error {
	if err := cf.claimID(fn.ID); err != nil {
		return err
	}
	cf.Functions = append(cf.Functions, fn)
	return nil
}

// AddVariable registers a variable with the file, enforcing identifier
// uniqueness against both variables and functions.
func (cf *CodeFile) AddVariable(v *Variable) error {
	if err := cf.claimID(v.ID); err != nil {
		return err
	}
	cf.Variables = append(cf.Variables, v)
	return nil
}

// AddRequire records a module specifier dependency, deduplicated, in the order
// first seen.
func (cf *CodeFile) AddRequire(module string) {
	if module == "" {
		return
	}
	for _, m := range cf.Requires {
		if m == module {
			return
		}
	}
	cf.Requires = append(cf.Requires, module)
}

// AddDynamicImport records an unresolved computed import target.
func (cf *CodeFile) AddDynamicImport(raw string, line int, enclosing string) {
	cf.DynamicImports = append(cf.DynamicImports, DynamicImport{
		Raw:               raw,
		Line:              line,
		EnclosingFunction: enclosing,
	})
}

func (cf *CodeFile) claimID(id string) error {
	if cf.ids == nil {
		cf.ids = make(map[string]struct{})
	}
	if _, ok := cf.ids[id]; ok {
		return fmt.Errorf("%w: %s", ErrIdentifierCollision, id)
	}
	cf.ids[id] = struct{}{}
	return nil
}
