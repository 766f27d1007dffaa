package vecstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite. Vectors are kept
// as little-endian float32 blobs; similarity runs in SQL when the sqlite-vec
// extension is compiled in and falls back to Go otherwise.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore opens (creating if needed) the snippet index at dbPath and
// applies pending migrations. Use ":memory:" for tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}
	return nil
}

const upsertSnippetSQL = `
	INSERT INTO snippets (identifier, name, file_path, content, vector, dimension, provider, model, run_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(identifier) DO UPDATE SET
		name = excluded.name,
		file_path = excluded.file_path,
		content = excluded.content,
		vector = excluded.vector,
		dimension = excluded.dimension,
		provider = excluded.provider,
		model = excluded.model,
		run_id = excluded.run_id,
		updated_at = excluded.updated_at
`

// UpsertSnippet inserts or replaces one snippet row, keyed by identifier.
func (s *SQLiteStore) UpsertSnippet(ctx context.Context, snippet *Snippet) error {
	if len(snippet.Vector) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyVector, snippet.Identifier)
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx, upsertSnippetSQL,
		snippet.Identifier, snippet.Name, snippet.FilePath, snippet.Content,
		serializeVector(snippet.Vector), snippet.Dimension,
		snippet.Provider, snippet.Model, snippet.RunID, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert snippet %s: %w", snippet.Identifier, err)
	}
	snippet.UpdatedAt = now
	return nil
}

// UpsertBatch inserts or replaces many snippet rows in one transaction.
func (s *SQLiteStore) UpsertBatch(ctx context.Context, snippets []*Snippet) error {
	if len(snippets) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertSnippetSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, snippet := range snippets {
		if len(snippet.Vector) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyVector, snippet.Identifier)
		}
		_, err := stmt.ExecContext(ctx,
			snippet.Identifier, snippet.Name, snippet.FilePath, snippet.Content,
			serializeVector(snippet.Vector), snippet.Dimension,
			snippet.Provider, snippet.Model, snippet.RunID, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert snippet %s: %w", snippet.Identifier, err)
		}
		snippet.UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// GetSnippet fetches a snippet by identifier.
func (s *SQLiteStore) GetSnippet(ctx context.Context, identifier string) (*Snippet, error) {
	query := `
		SELECT identifier, name, file_path, content, vector, dimension, provider, model, run_id, created_at, updated_at
		FROM snippets
		WHERE identifier = ?
	`
	var snippet Snippet
	var blob []byte
	err := s.db.QueryRowContext(ctx, query, identifier).Scan(
		&snippet.Identifier, &snippet.Name, &snippet.FilePath, &snippet.Content,
		&blob, &snippet.Dimension, &snippet.Provider, &snippet.Model,
		&snippet.RunID, &snippet.CreatedAt, &snippet.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	snippet.Vector = deserializeVector(blob)
	return &snippet, nil
}

// Search returns the limit nearest snippets by cosine similarity, best first,
// ties broken on identifier.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}
	if limit <= 0 {
		return []SearchResult{}, nil
	}

	if VectorExtensionAvailable {
		return s.searchOptimized(ctx, vector, limit)
	}
	return s.searchFallback(ctx, vector, limit)
}

// searchOptimized computes cosine distance at the database layer via the
// sqlite-vec extension. Distance is converted to similarity (1 - distance) to
// match the fallback path.
func (s *SQLiteStore) searchOptimized(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	blob := serializeVector(vector)
	query := `
		SELECT identifier, name, file_path,
		       1.0 - vec_distance_cosine(vector, ?) as similarity
		FROM snippets
		ORDER BY similarity DESC, identifier ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, blob, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search failed: %v", types.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]SearchResult, 0, limit)
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Identifier, &r.Name, &r.FilePath, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// searchFallback loads every vector and computes cosine similarity in Go.
// Used when sqlite-vec is not compiled in (purego builds).
func (s *SQLiteStore) searchFallback(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT identifier, name, file_path, vector FROM snippets")
	if err != nil {
		return nil, fmt.Errorf("%w: vector search failed: %v", types.ErrStoreUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]SearchResult, 0, 256)
	for rows.Next() {
		var r SearchResult
		var blob []byte
		if err := rows.Scan(&r.Identifier, &r.Name, &r.FilePath, &blob); err != nil {
			return nil, err
		}
		candidate := deserializeVector(blob)
		if len(candidate) != len(vector) {
			continue // dimension mismatch, skip
		}
		r.Score = cosineSimilarity(vector, candidate)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Identifier < results[j].Identifier
	})

	if limit > len(results) {
		limit = len(results)
	}
	return results[:limit], nil
}

// Identifiers returns every indexed identifier, sorted.
func (s *SQLiteStore) Identifiers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT identifier FROM snippets ORDER BY identifier")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PruneStale deletes rows whose run_id differs from the given run.
func (s *SQLiteStore) PruneStale(ctx context.Context, runID string) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM snippets WHERE run_id != ?", runID)
	if err != nil {
		return 0, fmt.Errorf("failed to prune stale snippets: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Count returns the number of indexed snippets.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snippets").Scan(&n)
	return n, err
}

// Stats reports index-level statistics for status reporting.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{BuildMode: BuildMode}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COUNT(DISTINCT file_path) FROM snippets").
		Scan(&stats.Snippets, &stats.Files)
	if err != nil {
		return nil, err
	}

	var lastRun sql.NullString
	err = s.db.QueryRowContext(ctx, "SELECT run_id FROM snippets ORDER BY updated_at DESC LIMIT 1").Scan(&lastRun)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if lastRun.Valid {
		stats.LastRunID = lastRun.String
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return stats, nil
}

// Reset drops all indexed data, keeping the schema.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM snippets")
	return err
}
