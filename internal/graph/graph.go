package graph

import (
	"context"
	"errors"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

// ErrUnknownRelation is returned when Expand receives a relation name it does
// not implement.
var ErrUnknownRelation = errors.New("unknown expansion relation")

// NodeLabel names a node type in the code graph.
type NodeLabel string

const (
	LabelCodeFile NodeLabel = "CodeFile"
	LabelFunction NodeLabel = "Function"
	LabelModule   NodeLabel = "Module"
	LabelVariable NodeLabel = "Variable"
)

// KeyProperty returns the property that uniquely identifies a node of the
// given label. Upserts merge on this property.
func (l NodeLabel) KeyProperty() string {
	switch l {
	case LabelCodeFile:
		return "path"
	case LabelModule:
		return "name"
	default:
		return "id"
	}
}

// Expansion relation names. These are the provenance strings attached to
// graph-expanded retrieval results.
const (
	RelationCalls        = "calls"
	RelationCalledBy     = "called_by"
	RelationSameFile     = "same_file"
	RelationSharedModule = "shared_module"
)

// AllRelations lists every expansion relation, in the order expansion
// results are reported.
var AllRelations = []string{RelationCalls, RelationCalledBy, RelationSameFile, RelationSharedModule}

// Node is one graph node to upsert, identified by its label's key property.
type Node struct {
	Label NodeLabel
	Key   string
	Props map[string]any
}

// Edge is one typed, directed edge between two nodes, identified by their
// keys. Upserting the same edge twice must not create a parallel edge.
type Edge struct {
	Kind      types.RelationKind
	FromLabel NodeLabel
	From      string
	ToLabel   NodeLabel
	To        string
}

// Neighbor is one function reached by graph expansion. Via is the identifier
// the expansion started from; Relation is how the two are connected.
type Neighbor struct {
	ID       string
	Relation string
	Via      string
}

// Stats describes the current state of the stored graph.
type Stats struct {
	Files     int
	Functions int
	Modules   int
	Variables int
	Edges     int
}

// Store is the graph-store boundary. The Neo4j adapter is the production
// implementation; MemoryStore backs tests and single-process use.
type Store interface {
	// EnsureSchema creates uniqueness constraints for node key properties.
	EnsureSchema(ctx context.Context) error

	// UpsertNodes merges nodes by key property; re-upserting is a no-op
	// apart from refreshed properties.
	UpsertNodes(ctx context.Context, nodes []Node) error

	// UpsertEdges merges edges; no duplicate parallel edges of one kind
	// between the same two nodes. An edge whose target is a Module merges
	// the Module node as a stub when absent.
	UpsertEdges(ctx context.Context, edges []Edge) error

	// Expand traverses from the given function identifiers along the named
	// relations, up to maxHops. Seed identifiers are never reported as
	// neighbors; each discovered identifier is reported once, with the
	// relation and seed that first reached it.
	Expand(ctx context.Context, ids []string, relations []string, maxHops int) ([]Neighbor, error)

	// Identifiers returns every Function node identifier, sorted. The
	// vector store must report the same set after a build.
	Identifiers(ctx context.Context) ([]string, error)

	// PruneStale detaches and deletes nodes whose run_id differs from the
	// given run. Returns the number of nodes deleted.
	PruneStale(ctx context.Context, runID string) (int, error)

	// Stats reports node and edge counts.
	Stats(ctx context.Context) (*Stats, error)

	// DropAll removes every node and edge. Exposed for the explicit reset
	// path only; never called implicitly.
	DropAll(ctx context.Context) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
