package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dkarlsven/jscontext-mcp/internal/config"
	"github.com/dkarlsven/jscontext-mcp/internal/indexer"
	"github.com/dkarlsven/jscontext-mcp/internal/mcp"
	"github.com/dkarlsven/jscontext-mcp/internal/retriever"
	"github.com/dkarlsven/jscontext-mcp/internal/vecstore"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var (
		indexPath   = flag.String("index", "", "index the codebase at this path and exit")
		query       = flag.String("query", "", "run one retrieval query and exit")
		k           = flag.Int("k", 0, "result budget for -query (default from config)")
		vectorOnly  = flag.Bool("vector-only", false, "skip graph expansion for -query")
		dumpPath    = flag.String("dump", "", "with -index: parse only and write the entity model as JSON to this file")
		reset       = flag.Bool("reset", false, "drop all indexed data from both stores and exit")
		showVersion = flag.Bool("version", false, "print version information and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("jscontext MCP server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", vecstore.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", vecstore.DriverName)
		fmt.Printf("Vector Extension: %v\n", vecstore.VectorExtensionAvailable)
		return
	}

	// stdout is reserved for the MCP protocol and one-shot results.
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := mcp.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	switch {
	case *reset:
		runReset(ctx, server, logger)
	case *indexPath != "":
		runIndex(ctx, server, cfg, logger, *indexPath, *dumpPath)
	case *query != "":
		runQuery(ctx, server, cfg, logger, *query, *k, *vectorOnly)
	default:
		serve(ctx, server, logger)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// serve runs the MCP stdio server until the transport closes or a signal
// arrives.
func serve(ctx context.Context, server *mcp.Server, logger *slog.Logger) {
	logger.Info("starting", "version", version, "build_mode", vecstore.BuildMode, "driver", vecstore.DriverName)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errChan:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func runReset(ctx context.Context, server *mcp.Server, logger *slog.Logger) {
	defer server.Close(ctx)

	if err := server.VectorStore().Reset(ctx); err != nil {
		logger.Error("failed to reset vector index", "error", err)
		os.Exit(1)
	}
	if err := server.GraphStore().DropAll(ctx); err != nil {
		logger.Error("failed to drop code graph", "error", err)
		os.Exit(1)
	}
	logger.Info("all indexed data removed")
}

func runIndex(ctx context.Context, server *mcp.Server, cfg *config.Config, logger *slog.Logger, path, dumpPath string) {
	defer server.Close(ctx)

	opts := indexer.DefaultOptions()
	opts.Workers = cfg.ParseWorkers

	if dumpPath != "" {
		model, stats, err := server.Indexer().BuildModel(ctx, path, opts)
		if err != nil {
			logger.Error("parse failed", "error", err)
			os.Exit(1)
		}
		f, err := os.Create(dumpPath)
		if err != nil {
			logger.Error("failed to create dump file", "error", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		if err := indexer.ExportModel(model, f); err != nil {
			logger.Error("failed to write model dump", "error", err)
			os.Exit(1)
		}
		logger.Info("entity model written", "path", dumpPath,
			"files", stats.FilesParsed, "functions", stats.Functions)
		return
	}

	stats, err := server.Indexer().IndexCodebase(ctx, path, opts)
	if err != nil {
		logger.Error("indexing failed", "error", err)
		os.Exit(1)
	}
	printJSON(stats)
}

func runQuery(ctx context.Context, server *mcp.Server, cfg *config.Config, logger *slog.Logger, query string, k int, vectorOnly bool) {
	defer server.Close(ctx)

	if k <= 0 {
		k = cfg.TopK
	}
	resp, err := server.Retriever().Retrieve(ctx, query, &retriever.Options{
		K:              k,
		MaxHops:        cfg.MaxHops,
		ExpansionLimit: cfg.ExpansionLimit,
		VectorOnly:     vectorOnly,
	})
	if err != nil {
		logger.Error("query failed", "error", err)
		os.Exit(1)
	}
	if resp.Degraded {
		logger.Warn("graph store unavailable, results are vector-only")
	}
	printJSON(resp)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		os.Exit(1)
	}
}
