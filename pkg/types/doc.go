// Package types defines the shared entity model for indexed JavaScript and
// TypeScript codebases.
//
// The model mirrors what the parser extracts from source: files, the functions
// and variables they own, the modules they depend on, and the typed
// relationships between them (CONTAINS, CALLS, REQUIRES, DECLARES_VARIABLE).
//
// # Composite Identifiers
//
// Functions and Variables are identified by "<file path>::<name>":
//
//	id := types.CompositeID("controllers/product.controller.js", "createProduct")
//	// "controllers/product.controller.js::createProduct"
//
// The identifier is the join key between the semantic vector index and the
// code graph: a function indexed under one identifier in the vector store must
// appear under the same identifier as a graph node, or hybrid retrieval cannot
// merge the two result sets. Identifiers are unique within a file; Functions
// and Variables share the namespace, and a collision surfaces
// ErrIdentifierCollision rather than silently overwriting:
//
//	cf := types.NewCodeFile("routes/user.js", types.LangJavaScript)
//	err := cf.AddFunction(fn)
//	if errors.Is(err, types.ErrIdentifierCollision) {
//	    // record and keep the first entity
//	}
//
// # Snippets
//
// Function.Snippet is the exact source substring of the definition. It is what
// gets embedded, and retrieval matches against it, so it is stored verbatim
// and never truncated or normalized.
//
// # Lifecycle
//
// A Model is produced fresh on each indexing run and handed to the vector
// index builder and the graph builder; it is never patched incrementally.
package types
