package retriever

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dkarlsven/jscontext-mcp/internal/embedder"
	"github.com/dkarlsven/jscontext-mcp/internal/graph"
	"github.com/dkarlsven/jscontext-mcp/internal/vecstore"
	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

const (
	// DefaultK is the result budget when the caller does not set one.
	DefaultK = 5
	// DefaultMaxHops bounds graph expansion depth.
	DefaultMaxHops = 1

	cacheSize = 1000
)

// Options controls one retrieval call.
type Options struct {
	// K is the scored result budget; the vector head honors it exactly.
	K int
	// MaxHops bounds graph expansion depth (default 1).
	MaxHops int
	// ExpansionLimit caps how many graph-only results are appended after the
	// scored head. 0 means "same as K".
	ExpansionLimit int
	// VectorOnly skips graph expansion entirely.
	VectorOnly bool
	// UseCache consults the in-process query cache.
	UseCache bool
}

// Response is one retrieval answer. Results is the ranked list: the scored
// vector head first, then graph-only results carrying relation provenance.
// VectorOnly is exactly the scored head; Results[:len(VectorOnly)] always
// equals it.
type Response struct {
	Results    []types.QueryResult
	VectorOnly []types.QueryResult
	Degraded   bool
	CacheHit   bool
	Duration   time.Duration
}

// Retriever answers code queries by vector-seeded candidates plus graph
// expansion. It is read-only and safe for concurrent callers.
type Retriever struct {
	embedder embedder.Embedder
	vectors  vecstore.Store
	graph    graph.Store
	logger   *slog.Logger
	cache    *lru.Cache[[32]byte, *Response]
}

// New creates a Retriever over the given stores.
func New(emb embedder.Embedder, vectors vecstore.Store, g graph.Store, logger *slog.Logger) *Retriever {
	cache, err := lru.New[[32]byte, *Response](cacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}
	return &Retriever{
		embedder: emb,
		vectors:  vectors,
		graph:    g,
		logger:   logger,
		cache:    cache,
	}
}

// Retrieve answers one query. The vector store or query embedding being
// unavailable is fatal (types.ErrRetrievalUnavailable); an unavailable graph
// store degrades the answer to vector-only with Degraded set.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts *Options) (*Response, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return nil, types.ErrEmptyQuery
	}
	if opts == nil {
		opts = &Options{}
	}
	k := opts.K
	if k <= 0 {
		k = DefaultK
	}
	maxHops := opts.MaxHops
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	expansionLimit := opts.ExpansionLimit
	if expansionLimit <= 0 {
		expansionLimit = k
	}

	key := cacheKey(query, k, maxHops, expansionLimit, opts.VectorOnly)
	if opts.UseCache {
		if cached, ok := r.cache.Get(key); ok {
			resp := copyResponse(cached)
			resp.CacheHit = true
			resp.Duration = time.Since(start)
			return resp, nil
		}
	}

	count, err := r.vectors.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: vector store: %v", types.ErrRetrievalUnavailable, err)
	}
	if count == 0 {
		return nil, types.ErrNotIndexed
	}

	qemb, err := r.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding failed: %v", types.ErrRetrievalUnavailable, err)
	}

	hits, err := r.vectors.Search(ctx, qemb.Vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search failed: %v", types.ErrRetrievalUnavailable, err)
	}

	resp := &Response{
		VectorOnly: make([]types.QueryResult, 0, len(hits)),
	}
	for _, hit := range hits {
		resp.VectorOnly = append(resp.VectorOnly, types.QueryResult{
			Identifier: hit.Identifier,
			Score:      hit.Score,
			Source:     types.SourceVector,
		})
	}
	resp.Results = append(make([]types.QueryResult, 0, len(resp.VectorOnly)), resp.VectorOnly...)

	if !opts.VectorOnly && len(hits) > 0 {
		r.expand(ctx, resp, maxHops, expansionLimit)
	}

	if opts.UseCache {
		r.cache.Add(key, copyResponse(resp))
	}
	resp.Duration = time.Since(start)
	return resp, nil
}

// expand appends graph-only results after the scored head. Expansion failure
// never fails the call; the response degrades to vector-only.
func (r *Retriever) expand(ctx context.Context, resp *Response, maxHops, limit int) {
	seeds := make([]string, len(resp.VectorOnly))
	for i, qr := range resp.VectorOnly {
		seeds[i] = qr.Identifier
	}

	neighbors, err := r.graph.Expand(ctx, seeds, graph.AllRelations, maxHops)
	if err != nil {
		resp.Degraded = true
		r.logger.Warn("graph expansion unavailable, returning vector-only results", "error", err)
		return
	}

	appended := 0
	for _, n := range neighbors {
		if appended >= limit {
			break
		}
		resp.Results = append(resp.Results, types.QueryResult{
			Identifier: n.ID,
			Source:     types.SourceGraph,
			Relations:  []string{n.Relation},
		})
		appended++
	}
}

func cacheKey(query string, k, maxHops, expansionLimit int, vectorOnly bool) [32]byte {
	return sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d|%d|%t", query, k, maxHops, expansionLimit, vectorOnly))
}

// copyResponse deep-copies the result slices so cached responses are never
// aliased by callers.
func copyResponse(resp *Response) *Response {
	out := &Response{Degraded: resp.Degraded}
	out.Results = make([]types.QueryResult, len(resp.Results))
	for i, qr := range resp.Results {
		out.Results[i] = qr
		if len(qr.Relations) > 0 {
			out.Results[i].Relations = append([]string(nil), qr.Relations...)
		}
	}
	out.VectorOnly = make([]types.QueryResult, len(resp.VectorOnly))
	copy(out.VectorOnly, resp.VectorOnly)
	return out
}
