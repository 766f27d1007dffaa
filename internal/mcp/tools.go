package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dkarlsven/jscontext-mcp/internal/indexer"
	"github.com/dkarlsven/jscontext-mcp/internal/parser"
	"github.com/dkarlsven/jscontext-mcp/internal/retriever"
	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams        = -32602 // Invalid method parameters
	ErrorCodeInternalError        = -32603 // Internal JSON-RPC error
	ErrorCodeInvalidPath          = -32001 // Path missing, unreadable, or without source files
	ErrorCodeIndexingInProgress   = -32002 // Another indexing run is already active
	ErrorCodeNotIndexed           = -32003 // Codebase not indexed yet
	ErrorCodeEmptyQuery           = -32004 // Query parameter is empty
	ErrorCodeRetrievalUnavailable = -32005 // Vector store or embedding provider down
)

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidPath, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	opts := &indexer.Options{
		Workers: s.cfg.ParseWorkers,
		Prune:   getBoolDefault(args, "prune", true),
	}
	if raw, present := args["min_function_length"]; present {
		minLen := getIntDefault(args, "min_function_length", s.cfg.MinFunctionLength)
		if minLen < 0 {
			return nil, newMCPError(ErrorCodeInvalidParams, "min_function_length cannot be negative", map[string]interface{}{
				"param": "min_function_length",
				"value": raw,
			})
		}
		opts.MinFunctionLength = &minLen
	}

	stats, err := s.indexer.IndexCodebase(ctx, path, opts)
	if errors.Is(err, indexer.ErrIndexInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "an indexing run is already in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":           true,
		"run_id":            stats.RunID,
		"files_parsed":      stats.FilesParsed,
		"files_skipped":     stats.FilesSkipped,
		"files_failed":      stats.FilesFailed,
		"functions":         stats.Functions,
		"variables":         stats.Variables,
		"modules":           stats.Modules,
		"calls_resolved":    stats.CallsResolved,
		"calls_dropped":     stats.CallsDropped,
		"dynamic_imports":   stats.DynamicImports,
		"snippets_embedded": stats.SnippetsEmbedded,
		"batches_failed":    stats.BatchesFailed,
		"pruned_snippets":   stats.PrunedSnippets,
		"pruned_nodes":      stats.PrunedNodes,
		"duration_ms":       stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		response["error_count"] = len(stats.ErrorMessages)
		messages := stats.ErrorMessages
		if len(messages) > 5 {
			messages = messages[:5]
		}
		response["errors"] = messages
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleQueryCode handles the query_code tool invocation
func (s *Server) handleQueryCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	k := getIntDefault(args, "k", s.cfg.TopK)
	if k < 1 || k > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "k must be between 1 and 100", map[string]interface{}{
			"param": "k",
			"value": k,
		})
	}

	opts := &retriever.Options{
		K:              k,
		MaxHops:        getIntDefault(args, "max_hops", s.cfg.MaxHops),
		ExpansionLimit: getIntDefault(args, "expansion_limit", s.cfg.ExpansionLimit),
		VectorOnly:     getBoolDefault(args, "vector_only", false),
		UseCache:       true,
	}

	resp, err := s.retriever.Retrieve(ctx, query, opts)
	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		return nil, newMCPError(ErrorCodeEmptyQuery, "query cannot be empty", nil)
	case errors.Is(err, types.ErrNotIndexed):
		return nil, newMCPError(ErrorCodeNotIndexed, "codebase not indexed; run index_codebase first", nil)
	case errors.Is(err, types.ErrRetrievalUnavailable):
		return nil, newMCPError(ErrorCodeRetrievalUnavailable, "retrieval unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"results":     formatResults(resp.Results),
		"vector_only": formatResults(resp.VectorOnly),
		"degraded":    resp.Degraded,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"server":  ServerName,
		"version": ServerVersion,
		"embedder": map[string]interface{}{
			"provider":  s.embedder.Provider(),
			"model":     s.embedder.Model(),
			"dimension": s.embedder.Dimension(),
		},
	}

	vectorHealthy := true
	vstats, err := s.vectors.Stats(ctx)
	if err != nil {
		vectorHealthy = false
		response["vector_index"] = map[string]interface{}{"error": err.Error()}
	} else {
		response["vector_index"] = map[string]interface{}{
			"snippets":    vstats.Snippets,
			"files":       vstats.Files,
			"last_run_id": vstats.LastRunID,
			"size_mb":     fmt.Sprintf("%.2f", vstats.SizeMB),
			"build_mode":  vstats.BuildMode,
		}
	}

	graphHealthy := true
	gstats, err := s.graph.Stats(ctx)
	if err != nil {
		graphHealthy = false
		response["graph"] = map[string]interface{}{"error": err.Error()}
	} else {
		response["graph"] = map[string]interface{}{
			"files":     gstats.Files,
			"functions": gstats.Functions,
			"modules":   gstats.Modules,
			"variables": gstats.Variables,
			"edges":     gstats.Edges,
		}
	}

	response["health"] = map[string]interface{}{
		"vector_store_accessible": vectorHealthy,
		"graph_store_accessible":  graphHealthy,
	}
	response["indexed"] = vectorHealthy && vstats.Snippets > 0

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatResults shapes ranked results for the JSON response. Graph results
// omit the score field entirely instead of reporting a misleading zero.
func formatResults(results []types.QueryResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		entry := map[string]interface{}{
			"identifier": r.Identifier,
			"source":     string(r.Source),
		}
		if r.Source == types.SourceVector {
			entry["score"] = r.Score
		}
		if len(r.Relations) > 0 {
			entry["relations"] = r.Relations
		}
		out = append(out, entry)
	}
	return out
}

// validatePath checks that path is an absolute, readable directory containing
// at least one supported source file.
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	hasSource := false
	_ = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() && (info.Name() == "node_modules" || info.Name() == ".git") {
			return filepath.SkipDir
		}
		if !info.IsDir() && parser.SupportedFile(p) {
			hasSource = true
			return filepath.SkipAll
		}
		return nil
	})
	if !hasSource {
		return ErrNoSourceFiles
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNoSourceFiles   = errors.New("directory does not contain JavaScript or TypeScript files")
)
