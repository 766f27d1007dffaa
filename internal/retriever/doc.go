// Package retriever answers natural-language code queries against the two
// indexes built by the indexer.
//
// A query is embedded with the same provider used at index time, the vector
// store supplies the k nearest snippets, and the code graph expands those
// seeds along calls, called_by, same_file and shared_module relations.
// Graph-only results are appended after the scored head with their relation
// provenance and no similarity score, so callers can always recover the pure
// vector answer as a prefix of the merged list.
//
// The vector store being unreachable, or the query embedding failing, aborts
// the call with types.ErrRetrievalUnavailable. The graph being unreachable
// only degrades the answer to vector-only.
package retriever
