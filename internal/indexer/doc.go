// Package indexer coordinates the indexing pipeline that turns a
// JavaScript/TypeScript codebase into the two retrieval stores.
//
// A run proceeds in phases:
//
//  1. Discovery: walk the tree, collecting supported source files and
//     skipping node_modules, vendor, dist, build and hidden directories.
//  2. Parse: files are parsed concurrently behind a worker-pool semaphore;
//     results merge into one entity model in sorted path order. Files with
//     syntax errors are skipped and recorded, never fatal.
//  3. Resolution: raw called-identifier names are resolved against a global
//     name table built from the complete model (ResolveCalls).
//  4. Build: the vector index (snippet embeddings) and the code graph are
//     written concurrently. Both stores key functions by the same composite
//     identifier, which is what makes hybrid retrieval joinable.
//  5. Prune: rows and nodes the run did not write are removed from both
//     stores, so deletions in the codebase propagate.
//
// Every write is tagged with the run's uuid. A failed embedding batch leaves
// its functions out of the vector index and is reported in Stats; a failed
// store write aborts the run. One run at a time per process, enforced by a
// non-blocking lock.
package indexer
