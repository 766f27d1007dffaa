package types

// RelationKind names a typed, directed edge between entities. The values are
// used verbatim as relationship types in the graph store.
type RelationKind string

const (
	// RelContains links a CodeFile to a Function or Variable it owns.
	RelContains RelationKind = "CONTAINS"
	// RelCalls links a Function to a Function it calls, resolved by name.
	RelCalls RelationKind = "CALLS"
	// RelRequires links a CodeFile or Function to a Module it depends on.
	RelRequires RelationKind = "REQUIRES"
	// RelDeclaresVariable links a CodeFile or Function to a Variable it declares.
	RelDeclaresVariable RelationKind = "DECLARES_VARIABLE"
)
