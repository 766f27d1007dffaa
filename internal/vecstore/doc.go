// Package vecstore provides SQLite-based persistence for the semantic
// embedding index.
//
// One row is stored per indexed function, keyed by the composite identifier
// (<file path>::<name>) that also keys the Function node in the graph store.
// The identifier is the join key the hybrid retriever relies on, so it is
// persisted verbatim and never derived or normalized here.
//
// # Database Schema
//
// Tables:
//   - snippets: identifier, verbatim snippet text, embedding vector (BLOB of
//     little-endian float32), provider/model metadata, run_id
//   - schema_version: applied migrations
//
// # Basic Usage
//
//	store, err := vecstore.NewSQLiteStore("~/.jscontext/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.UpsertBatch(ctx, snippets)
//	hits, err := store.Search(ctx, queryVector, 5)
//
// # Rebuild Semantics
//
// Every upsert tags the row with the indexing run's ID. After a full build,
// PruneStale deletes rows carrying a stale run ID, removing functions that
// vanished from the codebase. Re-running on an unchanged codebase rewrites
// the same rows and prunes nothing.
//
// # Vector Search
//
// Search uses cosine similarity via the sqlite-vec extension (CGO build with
// the sqlite_vec tag) or a pure Go computation (purego build). Both paths
// return results ordered by score descending with ties broken on identifier,
// so rankings are deterministic across builds.
package vecstore
