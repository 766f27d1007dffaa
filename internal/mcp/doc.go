// Package mcp exposes the indexing and retrieval pipeline as a Model Context
// Protocol server over stdio.
//
// Three tools are registered:
//
//   - index_codebase: parse a JavaScript/TypeScript tree and build both the
//     semantic snippet index and the code knowledge graph.
//   - query_code: hybrid retrieval — vector-ranked candidates expanded
//     through the graph, with a vector_only escape hatch.
//   - get_status: index statistics and per-store health.
//
// Tool failures are returned as MCPError values carrying a JSON-RPC style
// code: -32602/-32603 for the standard parameter and internal errors, and a
// -32001..-32005 family for domain conditions (bad path, run in progress,
// not indexed, empty query, retrieval unavailable).
package mcp
