package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

type memEdge struct {
	Kind types.RelationKind
	From string
	To   string
}

// MemoryStore is an in-process Store. It backs tests and lets the retriever's
// degraded paths be exercised without a running Neo4j: SetError makes every
// subsequent call fail with the given error.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[NodeLabel]map[string]map[string]any
	edges map[memEdge]struct{}
	fail  error
}

// NewMemoryStore returns an empty in-process graph store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[NodeLabel]map[string]map[string]any),
		edges: make(map[memEdge]struct{}),
	}
}

// SetError makes every subsequent call return err. Pass nil to restore
// normal operation.
func (s *MemoryStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *MemoryStore) failing() error {
	return s.fail
}

// EnsureSchema is a no-op; uniqueness is inherent to the map layout.
func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failing()
}

// UpsertNodes merges nodes by label and key.
func (s *MemoryStore) UpsertNodes(ctx context.Context, nodes []Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return err
	}
	for _, n := range nodes {
		byKey, ok := s.nodes[n.Label]
		if !ok {
			byKey = make(map[string]map[string]any)
			s.nodes[n.Label] = byKey
		}
		props, ok := byKey[n.Key]
		if !ok {
			props = make(map[string]any)
			byKey[n.Key] = props
		}
		for k, v := range n.Props {
			props[k] = v
		}
	}
	return nil
}

// UpsertEdges merges edges; Module targets are created as stubs when absent.
func (s *MemoryStore) UpsertEdges(ctx context.Context, edges []Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return err
	}
	for _, e := range edges {
		if _, ok := s.nodes[e.FromLabel][e.From]; !ok {
			continue
		}
		if _, ok := s.nodes[e.ToLabel][e.To]; !ok {
			if e.ToLabel != LabelModule {
				continue
			}
			if s.nodes[LabelModule] == nil {
				s.nodes[LabelModule] = make(map[string]map[string]any)
			}
			s.nodes[LabelModule][e.To] = make(map[string]any)
		}
		s.edges[memEdge{e.Kind, e.From, e.To}] = struct{}{}
	}
	return nil
}

// Expand walks the in-memory edge set the same way the Neo4j adapter walks
// Cypher results: hop by hop, first relation to reach a node wins.
func (s *MemoryStore) Expand(ctx context.Context, ids []string, relations []string, maxHops int) ([]Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failing(); err != nil {
		return nil, err
	}
	if len(ids) == 0 || maxHops <= 0 {
		return []Neighbor{}, nil
	}
	for _, rel := range relations {
		switch rel {
		case RelationCalls, RelationCalledBy, RelationSameFile, RelationSharedModule:
		default:
			return nil, ErrUnknownRelation
		}
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}

	neighbors := make([]Neighbor, 0)
	frontier := ids
	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, rel := range relations {
			found := s.expandHop(rel, frontier)
			sort.Slice(found, func(i, j int) bool {
				if found[i].Via != found[j].Via {
					return found[i].Via < found[j].Via
				}
				return found[i].ID < found[j].ID
			})
			for _, n := range found {
				if seen[n.ID] {
					continue
				}
				seen[n.ID] = true
				neighbors = append(neighbors, n)
				next = append(next, n.ID)
			}
		}
		frontier = next
	}
	return neighbors, nil
}

func (s *MemoryStore) expandHop(relation string, frontier []string) []Neighbor {
	inFrontier := make(map[string]bool, len(frontier))
	for _, id := range frontier {
		inFrontier[id] = true
	}

	var found []Neighbor
	switch relation {
	case RelationCalls:
		for e := range s.edges {
			if e.Kind == types.RelCalls && inFrontier[e.From] {
				found = append(found, Neighbor{ID: e.To, Relation: relation, Via: e.From})
			}
		}
	case RelationCalledBy:
		for e := range s.edges {
			if e.Kind == types.RelCalls && inFrontier[e.To] {
				found = append(found, Neighbor{ID: e.From, Relation: relation, Via: e.To})
			}
		}
	case RelationSameFile:
		for _, id := range frontier {
			file := s.containingFile(id)
			if file == "" {
				continue
			}
			for _, fn := range s.functionsInFile(file) {
				if fn != id {
					found = append(found, Neighbor{ID: fn, Relation: relation, Via: id})
				}
			}
		}
	case RelationSharedModule:
		for _, id := range frontier {
			file := s.containingFile(id)
			if file == "" {
				continue
			}
			for _, other := range s.filesSharingModule(file) {
				for _, fn := range s.functionsInFile(other) {
					found = append(found, Neighbor{ID: fn, Relation: relation, Via: id})
				}
			}
		}
	}
	return found
}

// containingFile returns the CodeFile path owning the given function id.
func (s *MemoryStore) containingFile(fnID string) string {
	for e := range s.edges {
		if e.Kind == types.RelContains && e.To == fnID {
			if _, ok := s.nodes[LabelFunction][fnID]; ok {
				return e.From
			}
		}
	}
	return ""
}

func (s *MemoryStore) functionsInFile(path string) []string {
	var fns []string
	for e := range s.edges {
		if e.Kind == types.RelContains && e.From == path {
			if _, ok := s.nodes[LabelFunction][e.To]; ok {
				fns = append(fns, e.To)
			}
		}
	}
	sort.Strings(fns)
	return fns
}

// filesSharingModule returns other files requiring a module this file requires.
func (s *MemoryStore) filesSharingModule(path string) []string {
	modules := make(map[string]bool)
	for e := range s.edges {
		if e.Kind == types.RelRequires && e.From == path {
			modules[e.To] = true
		}
	}
	others := make(map[string]bool)
	for e := range s.edges {
		if e.Kind == types.RelRequires && e.From != path && modules[e.To] {
			if _, ok := s.nodes[LabelCodeFile][e.From]; ok {
				others[e.From] = true
			}
		}
	}
	sorted := make([]string, 0, len(others))
	for f := range others {
		sorted = append(sorted, f)
	}
	sort.Strings(sorted)
	return sorted
}

// Identifiers returns every Function node key, sorted.
func (s *MemoryStore) Identifiers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failing(); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(s.nodes[LabelFunction]))
	for id := range s.nodes[LabelFunction] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// PruneStale removes nodes whose run_id differs from runID, plus their edges.
func (s *MemoryStore) PruneStale(ctx context.Context, runID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return 0, err
	}

	stale := make(map[string]bool)
	deleted := 0
	for _, byKey := range s.nodes {
		for key, props := range byKey {
			run, ok := props["run_id"]
			if !ok {
				continue
			}
			if run != runID {
				delete(byKey, key)
				stale[key] = true
				deleted++
			}
		}
	}
	for e := range s.edges {
		if stale[e.From] || stale[e.To] {
			delete(s.edges, e)
		}
	}
	return deleted, nil
}

// Stats reports node counts per label and the total edge count.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failing(); err != nil {
		return nil, err
	}
	return &Stats{
		Files:     len(s.nodes[LabelCodeFile]),
		Functions: len(s.nodes[LabelFunction]),
		Modules:   len(s.nodes[LabelModule]),
		Variables: len(s.nodes[LabelVariable]),
		Edges:     len(s.edges),
	}, nil
}

// DropAll removes every node and edge.
func (s *MemoryStore) DropAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failing(); err != nil {
		return err
	}
	s.nodes = make(map[NodeLabel]map[string]map[string]any)
	s.edges = make(map[memEdge]struct{})
	return nil
}

// Ping reports the injected error, if any.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failing()
}

// Close is a no-op.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// Snapshot returns a deterministic dump of the stored node keys and edges,
// for asserting that two builds produced the same graph.
func (s *MemoryStore) Snapshot() (nodeKeys []string, edgeKeys []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for label, byKey := range s.nodes {
		for key := range byKey {
			nodeKeys = append(nodeKeys, string(label)+":"+key)
		}
	}
	for e := range s.edges {
		edgeKeys = append(edgeKeys, string(e.Kind)+":"+e.From+"->"+e.To)
	}
	sort.Strings(nodeKeys)
	sort.Strings(edgeKeys)
	return nodeKeys, edgeKeys
}
