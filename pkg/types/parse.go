package types

import "fmt"

// ParseResult is the output of parsing one source file.
type ParseResult struct {
	File *CodeFile

	// Errors collects recoverable problems found while parsing: syntax
	// failures, identifier collisions, skipped constructs. A non-empty Errors
	// slice does not invalidate File.
	Errors []ParseError

	// SkippedFunctions counts named functions whose snippet fell under the
	// minimum-length threshold and were excluded together with their bodies.
	SkippedFunctions int
}

// ParseError is a recoverable per-file parsing problem. It is recorded and
// reported in the run summary; it never aborts the indexing run.
type ParseError struct {
	File    string
	Line    int
	Message string
}

// Error implements the error interface.
func (pe *ParseError) Error() string {
	if pe.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", pe.File, pe.Line, pe.Message)
	}
	return fmt.Sprintf("%s: %s", pe.File, pe.Message)
}

// HasErrors reports whether any parsing errors were recorded.
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError records a parsing error against the result.
func (pr *ParseResult) AddError(file string, line int, msg string) {
	pr.Errors = append(pr.Errors, ParseError{File: file, Line: line, Message: msg})
}
