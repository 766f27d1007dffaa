package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dkarlsven/jscontext-mcp/internal/config"
	"github.com/dkarlsven/jscontext-mcp/internal/embedder"
	"github.com/dkarlsven/jscontext-mcp/internal/graph"
	"github.com/dkarlsven/jscontext-mcp/internal/indexer"
	"github.com/dkarlsven/jscontext-mcp/internal/parser"
	"github.com/dkarlsven/jscontext-mcp/internal/retriever"
	"github.com/dkarlsven/jscontext-mcp/internal/vecstore"
)

const (
	// ServerName is the MCP server name
	ServerName = "jscontext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp       *server.MCPServer
	cfg       *config.Config
	vectors   vecstore.Store
	graph     graph.Store
	embedder  embedder.Embedder
	indexer   *indexer.Indexer
	retriever *retriever.Retriever
	logger    *slog.Logger
}

// NewServer builds a fully wired server from configuration: SQLite vector
// store, Neo4j graph store, embedding provider from the environment. A graph
// store that cannot be reached at startup does not prevent serving; queries
// degrade to vector-only until it comes back and indexing fails cleanly.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	dbPath, err := expandPath(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	vectors, err := vecstore.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = vectors.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var gstore graph.Store
	neo4jStore, err := graph.NewNeo4jStore(ctx, graph.Neo4jConfig{
		URI:      cfg.Neo4jURI,
		Username: cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	}, logger)
	if err != nil {
		logger.Warn("graph store unavailable, queries will degrade to vector-only", "error", err)
		unavailable := graph.NewMemoryStore()
		unavailable.SetError(err)
		gstore = unavailable
	} else {
		gstore = neo4jStore
	}

	return NewServerWithStores(cfg, emb, vectors, gstore, logger), nil
}

// NewServerWithStores wires a server over already constructed dependencies.
// Tests use it to swap in in-memory stores and scripted embedders.
func NewServerWithStores(cfg *config.Config, emb embedder.Embedder, vectors vecstore.Store, gstore graph.Store, logger *slog.Logger) *Server {
	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		cfg:      cfg,
		vectors:  vectors,
		graph:    gstore,
		embedder: emb,
		logger:   logger,
	}
	s.indexer = indexer.New(parser.New(cfg.MinFunctionLength), emb, vectors, gstore, logger)
	s.retriever = retriever.New(emb, vectors, gstore, logger)
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until the transport closes.
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close(ctx)
	s.logger.Info("serving MCP over stdio", "server", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// Indexer exposes the wired indexer for the one-shot CLI path.
func (s *Server) Indexer() *indexer.Indexer { return s.indexer }

// Retriever exposes the wired retriever for the one-shot CLI path.
func (s *Server) Retriever() *retriever.Retriever { return s.retriever }

// GraphStore exposes the wired graph store for the reset CLI path.
func (s *Server) GraphStore() graph.Store { return s.graph }

// VectorStore exposes the wired vector store for the reset CLI path.
func (s *Server) VectorStore() vecstore.Store { return s.vectors }

// Close releases every wired dependency.
func (s *Server) Close(ctx context.Context) {
	if err := s.vectors.Close(); err != nil {
		s.logger.Warn("failed to close vector store", "error", err)
	}
	if err := s.graph.Close(ctx); err != nil {
		s.logger.Warn("failed to close graph store", "error", err)
	}
	if err := s.embedder.Close(); err != nil {
		s.logger.Warn("failed to close embedder", "error", err)
	}
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(queryCodeTool(), s.handleQueryCode)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// expandPath resolves a leading ~ against the home directory.
func expandPath(path string) (string, error) {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
