package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

// SchemaVersion is the current structural version of the store. It is
// independent of the archive format version used by export/import.
const SchemaVersion = 1

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end; migration i+1 brings the store to schema version i+1.
var migrations = []string{
	// Migration 1: initial schema, no statements beyond table creation.
	`SELECT 1`,
}

// Migrate creates the schema, applies any pending migrations and records
// the resulting schema version in the settings table.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	current, err := currentVersion(db)
	if err != nil {
		return err
	}

	for i, m := range migrations {
		version := i + 1
		if version <= current {
			continue
		}
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", version, err)
		}
	}

	_, err = db.Exec(
		`INSERT INTO settings (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(SchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}

// currentVersion reads the recorded schema version, 0 if none is stored.
func currentVersion(db *sql.DB) (int, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = 'schema_version'`).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing schema version %q: %w", value, err)
	}
	return v, nil
}
