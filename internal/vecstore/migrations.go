package vecstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Snippets table: one row per indexed function, keyed by the composite
-- identifier shared with the graph store.
CREATE TABLE IF NOT EXISTS snippets (
    identifier TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    file_path TEXT NOT NULL,
    content TEXT NOT NULL,
    vector BLOB NOT NULL,
    dimension INTEGER NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    run_id TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_snippets_file ON snippets(file_path);
CREATE INDEX IF NOT EXISTS idx_snippets_run ON snippets(run_id);
CREATE INDEX IF NOT EXISTS idx_snippets_provider ON snippets(provider, model);
`

const migrationV1Down = `
DROP TABLE IF EXISTS snippets;
DROP TABLE IF EXISTS schema_version;
`

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	// Check if schema_version table exists
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	// Parse current version (default to 0.0.0 if no migrations applied or table doesn't exist)
	var currentVersion *semver.Version
	if err == sql.ErrNoRows {
		currentVersion = semver.MustParse("0.0.0")
	} else if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	} else {
		var currentVersionStr string
		err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersionStr)
		if err == sql.ErrNoRows || currentVersionStr == "" {
			currentVersion = semver.MustParse("0.0.0")
		} else if err != nil {
			return fmt.Errorf("failed to read schema_version: %w", err)
		} else {
			currentVersion, err = semver.NewVersion(currentVersionStr)
			if err != nil {
				return fmt.Errorf("invalid current schema version %s: %w", currentVersionStr, err)
			}
		}
	}

	// Run migrations in order
	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		_, err = db.ExecContext(ctx, migration.Up)
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version)
		if err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	var currentVersion string
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	var migration *Migration
	for i := range AllMigrations {
		if AllMigrations[i].Version == currentVersion {
			migration = &AllMigrations[i]
			break
		}
	}

	if migration == nil {
		return fmt.Errorf("migration %s not found", currentVersion)
	}

	_, err = db.ExecContext(ctx, migration.Down)
	if err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", currentVersion, err)
	}

	_, err = db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", currentVersion)
	if err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", currentVersion, err)
	}

	return nil
}
