// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults for tunable knobs.
const (
	// DefaultMinFunctionLength excludes trivially small functions from the
	// index. Configurable because dropping small functions also drops
	// legitimate retrieval targets such as one-line getters; 0 disables the
	// filter.
	DefaultMinFunctionLength = 25

	// DefaultTopK is the result budget for a query when the caller does not
	// supply one.
	DefaultTopK = 5

	// DefaultMaxHops bounds graph expansion depth at query time.
	DefaultMaxHops = 1

	// DefaultParseWorkers bounds concurrent file parsing.
	DefaultParseWorkers = 4
)

// Config holds every runtime setting. Zero values are not usable; build one
// with Load or fill the fields explicitly in tests.
type Config struct {
	// DBPath locates the SQLite vector index.
	DBPath string

	// Neo4j connection settings for the code graph.
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// Indexing knobs.
	MinFunctionLength int
	ParseWorkers      int

	// Retrieval knobs. ExpansionLimit of 0 means "same as the result budget".
	TopK           int
	MaxHops        int
	ExpansionLimit int

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() *Config {
	// Ignore a missing .env; it is a development convenience only.
	_ = godotenv.Load()

	return &Config{
		DBPath:            getEnv("JSCONTEXT_DB_PATH", defaultDBPath()),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     os.Getenv("NEO4J_PASSWORD"),
		Neo4jDatabase:     getEnv("NEO4J_DATABASE", "neo4j"),
		MinFunctionLength: getEnvInt("JSCONTEXT_MIN_FUNCTION_LENGTH", DefaultMinFunctionLength),
		ParseWorkers:      getEnvInt("JSCONTEXT_PARSE_WORKERS", DefaultParseWorkers),
		TopK:              getEnvInt("JSCONTEXT_TOP_K", DefaultTopK),
		MaxHops:           getEnvInt("JSCONTEXT_MAX_HOPS", DefaultMaxHops),
		ExpansionLimit:    getEnvInt("JSCONTEXT_EXPANSION_LIMIT", 0),
		LogLevel:          getEnv("JSCONTEXT_LOG_LEVEL", "info"),
	}
}

// Validate checks settings required before touching the graph store. The
// vector index and embedding provider validate their own settings when opened.
func (c *Config) Validate() error {
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.MinFunctionLength < 0 {
		return fmt.Errorf("minimum function length cannot be negative")
	}
	if c.ParseWorkers < 1 {
		return fmt.Errorf("parse workers must be at least 1")
	}
	if c.TopK < 1 {
		return fmt.Errorf("top-k must be at least 1")
	}
	if c.MaxHops < 1 {
		return fmt.Errorf("max hops must be at least 1")
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "jscontext.db"
	}
	return filepath.Join(home, ".jscontext", "index.db")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
