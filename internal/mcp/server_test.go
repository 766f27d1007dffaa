package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkarlsven/jscontext-mcp/internal/config"
	"github.com/dkarlsven/jscontext-mcp/internal/embedder"
	"github.com/dkarlsven/jscontext-mcp/internal/graph"
	"github.com/dkarlsven/jscontext-mcp/internal/vecstore"
)

// stubEmbedder returns a constant vector for any text.
type stubEmbedder struct{}

func (stubEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	return &embedder.Embedding{Vector: []float32{1, 0, 0}, Dimension: 3, Provider: "test", Model: "stub"}, nil
}

func (e stubEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	resp := &embedder.BatchEmbeddingResponse{Provider: "test", Model: "stub"}
	for range req.Texts {
		emb, _ := e.GenerateEmbedding(ctx, embedder.EmbeddingRequest{})
		resp.Embeddings = append(resp.Embeddings, emb)
	}
	return resp, nil
}

func (stubEmbedder) Dimension() int   { return 3 }
func (stubEmbedder) Provider() string { return "test" }
func (stubEmbedder) Model() string    { return "stub" }
func (stubEmbedder) Close() error     { return nil }

func testServer(t *testing.T) *Server {
	t.Helper()
	vectors, err := vecstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	cfg := &config.Config{
		MinFunctionLength: 0,
		ParseWorkers:      2,
		TopK:              5,
		MaxHops:           1,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewServerWithStores(cfg, stubEmbedder{}, vectors, graph.NewMemoryStore(), logger)
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func writeJSFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	src := `function greet(name) { return 'hello ' + name; }

function shout(name) { return greet(name).toUpperCase(); }
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "greet.js"), []byte(src), 0o644))
	return root
}

func TestIndexCodebaseTool(t *testing.T) {
	s := testServer(t)
	root := writeJSFixture(t)

	result, err := s.handleIndexCodebase(context.Background(),
		callRequest("index_codebase", map[string]interface{}{"path": root}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, true, payload["indexed"])
	assert.Equal(t, float64(1), payload["files_parsed"])
	assert.Equal(t, float64(2), payload["functions"])
	assert.NotEmpty(t, payload["run_id"])
}

func TestIndexCodebaseRejectsRelativePath(t *testing.T) {
	s := testServer(t)

	_, err := s.handleIndexCodebase(context.Background(),
		callRequest("index_codebase", map[string]interface{}{"path": "relative/dir"}))
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidPath, mcpErr.Code)
}

func TestIndexCodebaseRejectsMissingPath(t *testing.T) {
	s := testServer(t)

	_, err := s.handleIndexCodebase(context.Background(),
		callRequest("index_codebase", map[string]interface{}{}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestIndexCodebaseRejectsDirWithoutSources(t *testing.T) {
	s := testServer(t)
	empty := t.TempDir()

	_, err := s.handleIndexCodebase(context.Background(),
		callRequest("index_codebase", map[string]interface{}{"path": empty}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidPath, mcpErr.Code)
}

func TestQueryCodeTool(t *testing.T) {
	s := testServer(t)
	root := writeJSFixture(t)
	ctx := context.Background()

	_, err := s.handleIndexCodebase(ctx, callRequest("index_codebase", map[string]interface{}{"path": root}))
	require.NoError(t, err)

	result, err := s.handleQueryCode(ctx, callRequest("query_code", map[string]interface{}{
		"query": "greeting function",
		"k":     float64(2),
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	results, ok := payload["results"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, results)
	assert.Equal(t, false, payload["degraded"])

	first, ok := results[0].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, first["identifier"], "greet.js::")
	assert.Equal(t, "vector", first["source"])
}

func TestQueryCodeBeforeIndexing(t *testing.T) {
	s := testServer(t)

	_, err := s.handleQueryCode(context.Background(),
		callRequest("query_code", map[string]interface{}{"query": "anything"}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeNotIndexed, mcpErr.Code)
}

func TestQueryCodeEmptyQuery(t *testing.T) {
	s := testServer(t)

	_, err := s.handleQueryCode(context.Background(),
		callRequest("query_code", map[string]interface{}{"query": ""}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
}

func TestQueryCodeRejectsBadK(t *testing.T) {
	s := testServer(t)

	_, err := s.handleQueryCode(context.Background(),
		callRequest("query_code", map[string]interface{}{"query": "x", "k": float64(500)}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestGetStatusTool(t *testing.T) {
	s := testServer(t)
	root := writeJSFixture(t)
	ctx := context.Background()

	result, err := s.handleGetStatus(ctx, callRequest("get_status", map[string]interface{}{}))
	require.NoError(t, err)
	payload := resultJSON(t, result)
	assert.Equal(t, false, payload["indexed"])

	_, err = s.handleIndexCodebase(ctx, callRequest("index_codebase", map[string]interface{}{"path": root}))
	require.NoError(t, err)

	result, err = s.handleGetStatus(ctx, callRequest("get_status", map[string]interface{}{}))
	require.NoError(t, err)
	payload = resultJSON(t, result)
	assert.Equal(t, true, payload["indexed"])

	vectorIndex, ok := payload["vector_index"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), vectorIndex["snippets"])

	health, ok := payload["health"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, health["vector_store_accessible"])
	assert.Equal(t, true, health["graph_store_accessible"])
}
