// Package graph persists the code knowledge graph and answers expansion
// queries over it.
//
// The graph holds CodeFile, Function, Module and Variable nodes connected by
// CONTAINS, CALLS, REQUIRES and DECLARES_VARIABLE relationships. Function and
// Variable nodes are keyed by the composite identifier (<file path>::<name>)
// shared with the vector store; CodeFile nodes by path and Module nodes by
// import specifier.
//
// Two implementations are provided: Neo4jStore talks to a Neo4j instance and
// is the production backend, MemoryStore keeps everything in process for
// tests and single-binary use. Both write with merge semantics, so rebuilding
// an unchanged codebase leaves the graph untouched, and both support run-based
// pruning: nodes written with a stale run_id are removed after a fresh build.
//
// Builder maps a parsed entity model onto nodes and edges; Expand walks
// outward from seed function identifiers along the calls, called_by,
// same_file and shared_module relations.
package graph
