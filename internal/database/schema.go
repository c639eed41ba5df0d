package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements creates the servers table and its indexes. Domains are
// stored lowercased, so the unique index is case-insensitive in effect.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS servers (
		id                 SERIAL PRIMARY KEY,
		domain             TEXT NOT NULL UNIQUE,
		name               TEXT,
		description        TEXT,
		logo_url           TEXT,
		theme              TEXT,
		registration_open  BOOLEAN,
		public_rooms_count INTEGER,
		version            TEXT,
		federation_version TEXT,
		delegated_server   TEXT,
		room_versions      TEXT,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_servers_created_at ON servers (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_servers_public_rooms_count ON servers (public_rooms_count)`,
}

// EnsureSchema creates the servers table if it does not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
