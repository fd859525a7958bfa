package db

import (
	"strconv"
	"testing"
)

func TestMigrateRecordsSchemaVersion(t *testing.T) {
	database := NewTestDB(t)

	var value string
	err := database.QueryRow(`SELECT value FROM settings WHERE key = 'schema_version'`).Scan(&value)
	if err != nil {
		t.Fatalf("reading schema version: %v", err)
	}
	if value != strconv.Itoa(SchemaVersion) {
		t.Errorf("expected schema version %d, got %q", SchemaVersion, value)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	database := NewTestDB(t)

	if err := Migrate(database); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if err := Migrate(database); err != nil {
		t.Fatalf("third Migrate: %v", err)
	}
}
