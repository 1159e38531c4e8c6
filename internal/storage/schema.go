package storage

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all required tables and indexes.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	ddlStatements := []string{
		// edflex_activities: one row per imported activity. external_id is
		// deliberately not unique: the same remote content can be imported
		// into a course more than once, each import producing its own row.
		`CREATE TABLE IF NOT EXISTS edflex_activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id TEXT NOT NULL,
			module_id INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			duration TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			package_url TEXT NOT NULL DEFAULT '',
			last_synced_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_external_id ON edflex_activities(external_id)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_last_synced ON edflex_activities(last_synced_at, id)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_module ON edflex_activities(module_id)`,

		// settings: single-row connector configuration. The client secret is
		// stored AES-256-GCM encrypted.
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			base_url TEXT NOT NULL DEFAULT '',
			client_id TEXT NOT NULL DEFAULT '',
			client_secret_encrypted BLOB,
			catalog_id TEXT NOT NULL DEFAULT '',
			sync_interval_seconds INTEGER NOT NULL DEFAULT 86400,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}
