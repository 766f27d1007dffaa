package vecstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested snippet doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrEmptyVector is returned when a search or upsert carries no vector
	ErrEmptyVector = errors.New("vector cannot be empty")
)

// Store persists function snippets and their embeddings, keyed by the
// composite identifier shared with the graph store.
type Store interface {
	// UpsertSnippet inserts or replaces one snippet row.
	UpsertSnippet(ctx context.Context, snippet *Snippet) error

	// UpsertBatch inserts or replaces many snippet rows in one transaction.
	UpsertBatch(ctx context.Context, snippets []*Snippet) error

	// GetSnippet fetches a snippet by identifier.
	GetSnippet(ctx context.Context, identifier string) (*Snippet, error)

	// Search returns the limit nearest snippets to the query vector by
	// cosine similarity, best first. Ties break on identifier so results
	// are deterministic.
	Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error)

	// Identifiers returns every indexed identifier, sorted. The graph store
	// must report the same set after a build; this is the join invariant.
	Identifiers(ctx context.Context) ([]string, error)

	// PruneStale deletes rows whose run_id differs from the given run,
	// removing entities that vanished from the codebase since the last
	// index. Returns the number of rows deleted.
	PruneStale(ctx context.Context, runID string) (int, error)

	// Count returns the number of indexed snippets.
	Count(ctx context.Context) (int, error)

	// Stats reports index-level statistics for status reporting.
	Stats(ctx context.Context) (*Stats, error)

	// Reset drops all indexed data, keeping the schema.
	Reset(ctx context.Context) error

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close closes the underlying database.
	Close() error
}

// Snippet is one embedded function stored in the vector index.
type Snippet struct {
	Identifier string // composite "<file path>::<name>"
	Name       string
	FilePath   string
	Content    string // verbatim source text
	Vector     []float32
	Dimension  int
	Provider   string
	Model      string
	RunID      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SearchResult is one vector search hit.
type SearchResult struct {
	Identifier string
	Name       string
	FilePath   string
	Score      float64
}

// Stats describes the current state of the vector index.
type Stats struct {
	Snippets  int
	Files     int
	LastRunID string
	SizeMB    float64
	BuildMode string
}
