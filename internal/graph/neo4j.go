package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

// Neo4jConfig holds connection settings for the graph database.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jStore implements Store against a Neo4j instance. All writes use MERGE
// so re-indexing an unchanged codebase leaves the graph byte-for-byte
// identical.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jStore connects to Neo4j and verifies connectivity. A failed
// verification wraps types.ErrStoreUnavailable so callers can distinguish a
// down graph store from a misconfigured one.
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig, logger *slog.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: neo4j at %s: %v", types.ErrStoreUnavailable, cfg.URI, err)
	}

	logger.Info("connected to neo4j", "uri", cfg.URI, "database", cfg.Database)
	return &Neo4jStore{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Close closes the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping verifies the connection is still alive.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

// executeWrite runs work in a write transaction.
func (s *Neo4jStore) executeWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := s.session(ctx)
	defer func() { _ = session.Close(ctx) }()
	return session.ExecuteWrite(ctx, work)
}

// executeRead runs work in a read transaction.
func (s *Neo4jStore) executeRead(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := s.session(ctx)
	defer func() { _ = session.Close(ctx) }()
	return session.ExecuteRead(ctx, work)
}

var schemaConstraints = []string{
	"CREATE CONSTRAINT unique_codefile_path IF NOT EXISTS FOR (f:CodeFile) REQUIRE f.path IS UNIQUE",
	"CREATE CONSTRAINT unique_function_id IF NOT EXISTS FOR (f:Function) REQUIRE f.id IS UNIQUE",
	"CREATE CONSTRAINT unique_module_name IF NOT EXISTS FOR (m:Module) REQUIRE m.name IS UNIQUE",
	"CREATE CONSTRAINT unique_variable_id IF NOT EXISTS FOR (v:Variable) REQUIRE v.id IS UNIQUE",
}

// EnsureSchema creates the uniqueness constraints the upserts merge on.
// Idempotent; safe to call on every startup.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	_, err := s.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, constraint := range schemaConstraints {
			if _, err := tx.Run(ctx, constraint, nil); err != nil {
				return nil, fmt.Errorf("failed to create constraint: %w", err)
			}
		}
		return nil, nil
	})
	return err
}

// UpsertNodes merges nodes in batches, one UNWIND statement per label.
func (s *Neo4jStore) UpsertNodes(ctx context.Context, nodes []Node) error {
	if len(nodes) == 0 {
		return nil
	}

	byLabel := make(map[NodeLabel][]map[string]any)
	for _, n := range nodes {
		byLabel[n.Label] = append(byLabel[n.Label], map[string]any{
			"key":   n.Key,
			"props": n.Props,
		})
	}

	_, err := s.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for label, batch := range byLabel {
			query := fmt.Sprintf(`
				UNWIND $nodes AS node
				MERGE (n:%s {%s: node.key})
				SET n += node.props
			`, label, label.KeyProperty())
			if _, err := tx.Run(ctx, query, map[string]any{"nodes": batch}); err != nil {
				return nil, fmt.Errorf("failed to upsert %s nodes: %w", label, err)
			}
		}
		return nil, nil
	})
	return err
}

// UpsertEdges merges edges in batches grouped by (kind, from label, to label).
// Module targets are merged rather than matched so a relation can point at a
// module no file in the codebase defines.
func (s *Neo4jStore) UpsertEdges(ctx context.Context, edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}

	type edgeGroup struct {
		kind     types.RelationKind
		from, to NodeLabel
	}
	grouped := make(map[edgeGroup][]map[string]any)
	for _, e := range edges {
		g := edgeGroup{e.Kind, e.FromLabel, e.ToLabel}
		grouped[g] = append(grouped[g], map[string]any{"from": e.From, "to": e.To})
	}

	_, err := s.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for g, batch := range grouped {
			targetClause := fmt.Sprintf("MATCH (b:%s {%s: edge.to})", g.to, g.to.KeyProperty())
			if g.to == LabelModule {
				targetClause = fmt.Sprintf("MERGE (b:%s {%s: edge.to})", g.to, g.to.KeyProperty())
			}
			query := fmt.Sprintf(`
				UNWIND $edges AS edge
				MATCH (a:%s {%s: edge.from})
				%s
				MERGE (a)-[:%s]->(b)
			`, g.from, g.from.KeyProperty(), targetClause, g.kind)
			if _, err := tx.Run(ctx, query, map[string]any{"edges": batch}); err != nil {
				return nil, fmt.Errorf("failed to upsert %s edges: %w", g.kind, err)
			}
		}
		return nil, nil
	})
	return err
}

// Cypher per expansion relation. Each query takes $ids (function identifiers)
// and returns via (the seed) and id (the neighbor) for one hop.
var expandQueries = map[string]string{
	RelationCalls: `
		MATCH (f:Function)-[:CALLS]->(g:Function)
		WHERE f.id IN $ids
		RETURN f.id AS via, g.id AS id`,
	RelationCalledBy: `
		MATCH (g:Function)-[:CALLS]->(f:Function)
		WHERE f.id IN $ids
		RETURN f.id AS via, g.id AS id`,
	RelationSameFile: `
		MATCH (c:CodeFile)-[:CONTAINS]->(f:Function)
		WHERE f.id IN $ids
		MATCH (c)-[:CONTAINS]->(g:Function)
		WHERE g.id <> f.id
		RETURN f.id AS via, g.id AS id`,
	RelationSharedModule: `
		MATCH (c:CodeFile)-[:CONTAINS]->(f:Function)
		WHERE f.id IN $ids
		MATCH (c)-[:REQUIRES]->(m:Module)<-[:REQUIRES]-(o:CodeFile)
		WHERE o <> c
		MATCH (o)-[:CONTAINS]->(g:Function)
		RETURN f.id AS via, g.id AS id`,
}

// Expand walks outward from the seed identifiers one hop at a time, running
// each relation's query against the current frontier. Each neighbor is
// reported once, with the relation and frontier identifier that first reached
// it; seeds are never reported.
func (s *Neo4jStore) Expand(ctx context.Context, ids []string, relations []string, maxHops int) ([]Neighbor, error) {
	if len(ids) == 0 || maxHops <= 0 {
		return []Neighbor{}, nil
	}
	for _, rel := range relations {
		if _, ok := expandQueries[rel]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRelation, rel)
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
			found, err := s.expandHop(ctx, rel, frontier)
			if err != nil {
				return nil, err
			}
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

// expandHop runs one relation's query against the frontier. Rows come back in
// database order, so they are sorted on (via, id) for determinism.
func (s *Neo4jStore) expandHop(ctx context.Context, relation string, frontier []string) ([]Neighbor, error) {
	result, err := s.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, expandQueries[relation], map[string]any{"ids": frontier})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		found := make([]Neighbor, 0, len(records))
		for _, record := range records {
			via, _ := record.Get("via")
			id, _ := record.Get("id")
			found = append(found, Neighbor{
				ID:       id.(string),
				Relation: relation,
				Via:      via.(string),
			})
		}
		return found, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: expand %s failed: %v", types.ErrStoreUnavailable, relation, err)
	}

	found := result.([]Neighbor)
	sort.Slice(found, func(i, j int) bool {
		if found[i].Via != found[j].Via {
			return found[i].Via < found[j].Via
		}
		return found[i].ID < found[j].ID
	})
	return found, nil
}

// Identifiers returns every Function node identifier, sorted.
func (s *Neo4jStore) Identifiers(ctx context.Context) ([]string, error) {
	result, err := s.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (f:Function) RETURN f.id AS id ORDER BY id", nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(records))
		for _, record := range records {
			id, _ := record.Get("id")
			ids = append(ids, id.(string))
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}
	return result.([]string), nil
}

// PruneStale detaches and deletes nodes whose run_id differs from runID.
// Nodes without a run_id (externally created) are left alone.
func (s *Neo4jStore) PruneStale(ctx context.Context, runID string) (int, error) {
	result, err := s.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n)
			WHERE n.run_id IS NOT NULL AND n.run_id <> $run
			DETACH DELETE n
			RETURN count(n) AS deleted
		`, map[string]any{"run": runID})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		deleted, _ := record.Get("deleted")
		return int(deleted.(int64)), nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune stale nodes: %w", err)
	}
	return result.(int), nil
}

// Stats reports node counts per label and the total edge count.
func (s *Neo4jStore) Stats(ctx context.Context) (*Stats, error) {
	result, err := s.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			RETURN count { MATCH (f:CodeFile) RETURN f } AS files,
			       count { MATCH (f:Function) RETURN f } AS functions,
			       count { MATCH (m:Module) RETURN m } AS modules,
			       count { MATCH (v:Variable) RETURN v } AS variables,
			       count { MATCH ()-[r]->() RETURN r } AS edges
		`, nil)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		get := func(key string) int {
			v, _ := record.Get(key)
			return int(v.(int64))
		}
		return &Stats{
			Files:     get("files"),
			Functions: get("functions"),
			Modules:   get("modules"),
			Variables: get("variables"),
			Edges:     get("edges"),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}
	return result.(*Stats), nil
}

// DropAll removes every node and relationship. Only the explicit reset path
// calls this.
func (s *Neo4jStore) DropAll(ctx context.Context) error {
	s.logger.Warn("dropping entire code graph")
	_, err := s.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
	})
	return err
}
