// Package migration creates the schema used by the postgres index backend.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id            UUID        PRIMARY KEY,
  filename      TEXT        NOT NULL,
  path          TEXT        NOT NULL,
  size          BIGINT      NOT NULL CHECK (size >= 0),
  content_type  TEXT        NOT NULL,
  upload_date   TIMESTAMPTZ NOT NULL DEFAULT now(),
  content       TEXT        NOT NULL DEFAULT '',
  author        TEXT        NOT NULL DEFAULT 'Unknown',
  creation_date TEXT        NOT NULL DEFAULT 'Unknown',
  checksum      TEXT        NOT NULL DEFAULT '',
  search_vector TSVECTOR GENERATED ALWAYS AS (
    setweight(to_tsvector('english'::regconfig, regexp_replace(filename, '[._-]+', ' ', 'g')), 'A') ||
    setweight(to_tsvector('english'::regconfig, content), 'B')
  ) STORED
);`,
	},
	{
		Name: "create_index_documents_filename",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents (filename);`,
	},
	{
		Name: "create_index_documents_search_vector",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_search_vector ON documents USING GIN (search_vector);`,
	},
	{
		Name: "create_index_documents_upload_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_upload_date ON documents (upload_date);`,
	},
}

// EnsureMigrated checks if the 'documents' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With(slog.String("component", "database"), slog.String("db_host", dbHost))

	log.Info("db_migration_check", slog.String("status", "starting"))

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			slog.String("status", "error"),
			slog.String("error_message", fmt.Sprintf("failed to check sentinel table: %v", err)),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			slog.String("status", "success"),
			slog.String("reason", "schema already exists"),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", slog.String("status", "in_progress"))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				slog.String("status", "error"),
				slog.String("migration_step", step.Name),
				slog.String("error_message", err.Error()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			slog.String("status", "success"),
			slog.String("migration_step", step.Name),
			slog.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		slog.String("status", "success"),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
