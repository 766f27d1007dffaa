package types

import "errors"

// VariableScope distinguishes module-level declarations from declarations
// inside a function body.
type VariableScope string

const (
	ScopeModule   VariableScope = "module"
	ScopeFunction VariableScope = "function"
)

// Variable is a const/let/var declaration extracted from a source file.
type Variable struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	FilePath string        `json:"file_path"`
	Kind     string        `json:"kind"` // const, let, var
	Scope    VariableScope `json:"scope"`

	// EnclosingFunction holds the composite identifier of the containing
	// function for function-scoped variables; empty for module scope.
	EnclosingFunction string `json:"enclosing_function,omitempty"`

	Line int `json:"line"`
}

// NewVariable constructs a Variable with its composite identifier computed.
func NewVariable(filePath, name string) *Variable {
	return &Variable{
		ID:       CompositeID(filePath, name),
		Name:     name,
		FilePath: filePath,
		Scope:    ScopeModule,
	}
}

// Validate performs basic integrity checks on the variable.
func (v *Variable) Validate() error {
	if v.Name == "" {
		return errors.New("variable name is required")
	}
	if v.FilePath == "" {
		return errors.New("variable file path is required")
	}
	if v.ID != CompositeID(v.FilePath, v.Name) {
		return errors.New("variable id does not match file path and name")
	}
	switch v.Scope {
	case ScopeModule:
		if v.EnclosingFunction != "" {
			return errors.New("module-scoped variable cannot have an enclosing function")
		}
	case ScopeFunction:
		if v.EnclosingFunction == "" {
			return errors.New("function-scoped variable requires an enclosing function")
		}
	default:
		return errors.New("invalid variable scope")
	}
	return nil
}
