package types

import "errors"

// Domain errors shared across the indexing and retrieval paths
var (
	// ErrIdentifierCollision is returned when two entities in the same file
	// compute the same composite identifier. The identifier joins the vector
	// index and the graph, so a collision is surfaced instead of overwritten.
	ErrIdentifierCollision = errors.New("identifier collision")

	// ErrRetrievalUnavailable is returned when the vector store or the query
	// embedding is unavailable; callers must not treat this as an empty result.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrStoreUnavailable is returned when a backing store cannot be reached
	// on the indexing write path.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotIndexed is returned when a query arrives before any index build.
	ErrNotIndexed = errors.New("codebase not indexed")

	// ErrEmptyQuery is returned for blank query text.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrUnsupportedLanguage is returned for files whose extension maps to no
	// registered grammar.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
