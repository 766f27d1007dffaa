package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dkarlsven/jscontext-mcp/internal/embedder"
	"github.com/dkarlsven/jscontext-mcp/internal/graph"
	"github.com/dkarlsven/jscontext-mcp/internal/parser"
	"github.com/dkarlsven/jscontext-mcp/internal/vecstore"
	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

// ErrIndexInProgress is returned when an indexing run is requested while
// another run holds the build lock.
var ErrIndexInProgress = errors.New("an indexing run is already in progress")

// Directories never descended into during discovery.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

// Indexer coordinates the indexing pipeline: discover -> parse -> resolve ->
// build vector index and code graph.
type Indexer struct {
	parser   *parser.Parser
	embedder embedder.Embedder
	cache    *embedder.Cache
	vectors  vecstore.Store
	graph    graph.Store
	logger   *slog.Logger

	lock IndexLock
}

// Options controls one indexing run.
type Options struct {
	// Workers caps concurrent file parses (default: runtime.NumCPU()).
	Workers int
	// Prune removes entities from both stores that the run did not produce.
	Prune bool
	// MinFunctionLength overrides the indexer's default small-function
	// threshold for this run; nil keeps the default, 0 disables filtering.
	MinFunctionLength *int
}

// DefaultOptions returns the options used when the caller passes nil.
func DefaultOptions() *Options {
	return &Options{Workers: runtime.NumCPU(), Prune: true}
}

// Stats summarizes one indexing run. ErrorMessages aggregates per-file parse
// problems and failed embedding batches; they do not abort the run.
type Stats struct {
	RunID string

	FilesParsed  int
	FilesSkipped int
	FilesFailed  int

	Functions        int
	Variables        int
	Modules          int
	SkippedFunctions int
	DynamicImports   int

	CallsResolved int
	CallsDropped  int

	SnippetsEmbedded int
	BatchesFailed    int

	GraphNodes int
	GraphEdges int

	PrunedSnippets int
	PrunedNodes    int

	Duration      time.Duration
	ErrorMessages []string
}

// New creates an Indexer writing to the given stores.
func New(p *parser.Parser, emb embedder.Embedder, vectors vecstore.Store, g graph.Store, logger *slog.Logger) *Indexer {
	return &Indexer{
		parser:   p,
		embedder: emb,
		cache:    embedder.NewCache(4096),
		vectors:  vectors,
		graph:    g,
		logger:   logger,
	}
}

// IndexCodebase runs the full pipeline against the codebase rooted at
// rootPath. Only one run may be active per process; a second concurrent call
// returns ErrIndexInProgress immediately.
func (idx *Indexer) IndexCodebase(ctx context.Context, rootPath string, opts *Options) (*Stats, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexInProgress
	}
	defer idx.lock.Release()

	if opts == nil {
		opts = DefaultOptions()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	stats := &Stats{RunID: uuid.NewString(), ErrorMessages: make([]string, 0)}

	files, err := discoverFiles(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	idx.logger.Info("indexing run started", "run_id", stats.RunID, "root", rootPath, "files", len(files), "workers", workers)

	model, err := idx.buildModel(ctx, rootPath, files, workers, opts, stats)
	if err != nil {
		return nil, err
	}

	// The two stores are independent once the model is complete.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return idx.buildVectors(gctx, model, stats) })
	g.Go(func() error { return idx.buildGraph(gctx, model, stats) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Prune {
		if err := idx.prune(ctx, stats); err != nil {
			return nil, err
		}
	}

	stats.Duration = time.Since(start)
	idx.logger.Info("indexing run finished",
		"run_id", stats.RunID,
		"files_parsed", stats.FilesParsed,
		"files_skipped", stats.FilesSkipped,
		"files_failed", stats.FilesFailed,
		"functions", stats.Functions,
		"calls_resolved", stats.CallsResolved,
		"calls_dropped", stats.CallsDropped,
		"snippets_embedded", stats.SnippetsEmbedded,
		"batches_failed", stats.BatchesFailed,
		"errors", len(stats.ErrorMessages),
		"duration", stats.Duration)
	return stats, nil
}

// BuildModel runs discovery, parsing and call resolution without touching
// either store. It backs the debug model-export path.
func (idx *Indexer) BuildModel(ctx context.Context, rootPath string, opts *Options) (*types.Model, *Stats, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	stats := &Stats{ErrorMessages: make([]string, 0)}
	files, err := discoverFiles(rootPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to discover files: %w", err)
	}
	model, err := idx.buildModel(ctx, rootPath, files, workers, opts, stats)
	if err != nil {
		return nil, nil, err
	}
	return model, stats, nil
}

// buildModel parses the files into a model and resolves cross-file calls,
// filling the model-level stats.
func (idx *Indexer) buildModel(ctx context.Context, rootPath string, files []string, workers int, opts *Options, stats *Stats) (*types.Model, error) {
	p := idx.parser
	if opts.MinFunctionLength != nil {
		p = parser.New(*opts.MinFunctionLength)
	}
	model, err := idx.parseFiles(ctx, p, rootPath, files, workers, stats)
	if err != nil {
		return nil, err
	}

	stats.CallsResolved, stats.CallsDropped = ResolveCalls(model)
	stats.Functions = len(model.Functions())
	stats.Variables = len(model.Variables())
	stats.Modules = len(model.Modules)
	stats.DynamicImports = model.DynamicImportCount()
	return model, nil
}

// discoverFiles walks the tree collecting supported source files,
// repository-relative with forward slashes, in sorted order.
func discoverFiles(rootPath string) ([]string, error) {
	var files []string
	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if skipDirs[info.Name()] || strings.HasPrefix(info.Name(), ".") && path != rootPath {
				return filepath.SkipDir
			}
			return nil
		}
		if !parser.SupportedFile(path) {
			return nil
		}
		rel, err := filepath.Rel(rootPath, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// parseFiles parses all files concurrently and merges the results into one
// model in sorted path order, so cross-file resolution is deterministic.
func (idx *Indexer) parseFiles(ctx context.Context, p *parser.Parser, rootPath string, files []string, workers int, stats *Stats) (*types.Model, error) {
	results := make([]*types.ParseResult, len(files))
	semaphore := make(chan struct{}, workers)

	var parsed, skipped, failed int32
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, relPath := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			src, err := os.ReadFile(filepath.Join(rootPath, filepath.FromSlash(relPath)))
			if err != nil {
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", relPath, err))
				mu.Unlock()
				return nil
			}

			result, err := p.ParseFile(gctx, relPath, src)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", relPath, err))
				mu.Unlock()
				return nil
			}

			if result.File == nil {
				atomic.AddInt32(&skipped, 1)
			} else {
				atomic.AddInt32(&parsed, 1)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.FilesParsed = int(parsed)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)

	model := types.NewModel()
	for _, result := range results {
		if result == nil {
			continue
		}
		for _, pe := range result.Errors {
			stats.ErrorMessages = append(stats.ErrorMessages, pe.Error())
		}
		stats.SkippedFunctions += result.SkippedFunctions
		if result.File != nil {
			model.AddFile(result.File)
		}
	}
	return model, nil
}

// buildVectors embeds every function snippet and upserts the rows. A failed
// embedding batch is recorded and skipped; its identifiers stay absent from
// the index. A failed store write aborts the run.
func (idx *Indexer) buildVectors(ctx context.Context, model *types.Model, stats *Stats) error {
	fns := model.Functions()
	sort.Slice(fns, func(i, j int) bool { return fns[i].ID < fns[j].ID })

	for start := 0; start < len(fns); start += embedder.DefaultBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + embedder.DefaultBatchSize
		if end > len(fns) {
			end = len(fns)
		}
		batch := fns[start:end]

		embeddings, err := idx.embedBatch(ctx, batch)
		if err != nil {
			stats.BatchesFailed++
			stats.ErrorMessages = append(stats.ErrorMessages,
				fmt.Sprintf("embedding batch %s..%s: %v", batch[0].ID, batch[len(batch)-1].ID, err))
			idx.logger.Warn("embedding batch failed", "first", batch[0].ID, "error", err)
			continue
		}

		snippets := make([]*vecstore.Snippet, len(batch))
		for i, fn := range batch {
			snippets[i] = &vecstore.Snippet{
				Identifier: fn.ID,
				Name:       fn.Name,
				FilePath:   fn.FilePath,
				Content:    fn.Snippet,
				Vector:     embeddings[i].Vector,
				Dimension:  embeddings[i].Dimension,
				Provider:   embeddings[i].Provider,
				Model:      embeddings[i].Model,
				RunID:      stats.RunID,
			}
		}
		if err := idx.vectors.UpsertBatch(ctx, snippets); err != nil {
			return fmt.Errorf("vector index write failed: %w", err)
		}
		stats.SnippetsEmbedded += len(batch)
	}
	return nil
}

// embedBatch returns one embedding per function, consulting the snippet cache
// first and calling the provider only for misses.
func (idx *Indexer) embedBatch(ctx context.Context, fns []*types.Function) ([]*embedder.Embedding, error) {
	embeddings := make([]*embedder.Embedding, len(fns))
	var missTexts []string
	var missIdx []int
	var missHashes []string

	for i, fn := range fns {
		hash := embedder.ComputeHash(fn.Snippet)
		if cached, ok := idx.cache.Get(hash); ok {
			embeddings[i] = cached
			continue
		}
		missTexts = append(missTexts, fn.Snippet)
		missIdx = append(missIdx, i)
		missHashes = append(missHashes, hash)
	}
	if len(missTexts) == 0 {
		return embeddings, nil
	}

	resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: missTexts})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(missTexts) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(resp.Embeddings), len(missTexts))
	}
	for j, emb := range resp.Embeddings {
		embeddings[missIdx[j]] = emb
		idx.cache.Set(missHashes[j], emb)
	}
	return embeddings, nil
}

// buildGraph writes the model into the code graph.
func (idx *Indexer) buildGraph(ctx context.Context, model *types.Model, stats *Stats) error {
	if err := idx.graph.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("graph schema setup failed: %w", err)
	}
	result, err := graph.NewBuilder(idx.graph).Build(ctx, model, stats.RunID)
	if err != nil {
		return err
	}
	stats.GraphNodes = result.Nodes
	stats.GraphEdges = result.Edges
	return nil
}

// prune removes entities in either store that this run did not write,
// covering functions and files deleted from the codebase since the last run.
func (idx *Indexer) prune(ctx context.Context, stats *Stats) error {
	pruned, err := idx.vectors.PruneStale(ctx, stats.RunID)
	if err != nil {
		return fmt.Errorf("vector prune failed: %w", err)
	}
	stats.PrunedSnippets = pruned

	pruned, err = idx.graph.PruneStale(ctx, stats.RunID)
	if err != nil {
		return fmt.Errorf("graph prune failed: %w", err)
	}
	stats.PrunedNodes = pruned
	return nil
}
