package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db")+"?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func hasColumn(t *testing.T, db *sql.DB, table, column string) bool {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		t.Fatalf("table_info error = %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan error = %v", err)
		}
		if name == column {
			return true
		}
	}
	return false
}

func TestInitSchema_Fresh(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}

	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("getSchemaVersion() error = %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("version = %d, want %d", version, SchemaVersion)
	}
	if !hasColumn(t, db, "runs", "label") {
		t.Error("fresh schema is missing runs.label")
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := InitSchema(ctx, db); err != nil {
			t.Fatalf("InitSchema() call %d error = %v", i+1, err)
		}
	}
}

func TestInitSchema_MigratesV1(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Exec(schemaV1); err != nil {
		t.Fatalf("creating v1 schema: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (1, datetime('now'))`); err != nil {
		t.Fatalf("recording v1: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO runs (seed, agents, policy, mode, started_at) VALUES ('5', 3, 'trickle', 'window', '2026-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("inserting v1 run: %v", err)
	}

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}

	if !hasColumn(t, db, "runs", "label") {
		t.Error("migration did not add runs.label")
	}
	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("getSchemaVersion() error = %v", err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}

	var label string
	if err := db.QueryRow(`SELECT label FROM runs WHERE seed = '5'`).Scan(&label); err != nil {
		t.Fatalf("reading migrated run: %v", err)
	}
	if label != "" {
		t.Errorf("migrated label = %q, want empty", label)
	}
}

func TestValidateIntegrity(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	if err := ValidateIntegrity(ctx, db); err != nil {
		t.Errorf("ValidateIntegrity() on fresh db error = %v", err)
	}
}
