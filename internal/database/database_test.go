package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenAndMigrate(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	// Verify database file was created.
	dbPath := filepath.Join(dir, "tavolo.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	// Verify WAL mode is active.
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("querying journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want wal", journalMode)
	}

	// Verify all tables exist.
	tables := []string{
		"schema_migrations", "system_config", "dining_tables", "reservations",
		"sounds", "call_metrics", "call_quality", "conversation_turns",
	}
	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Errorf("checking table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s not found", table)
		}
	}

	// The seed migration should have created the default tables.
	var tableCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM dining_tables").Scan(&tableCount); err != nil {
		t.Fatalf("counting dining tables: %v", err)
	}
	if tableCount != 10 {
		t.Errorf("dining table count = %d, want 10", tableCount)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	// Open twice to verify migrations don't fail on re-run.
	db1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open() error: %v", err)
	}
	db1.Close()

	db2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	defer db2.Close()

	// Seed data must not be duplicated.
	var tableCount int
	if err := db2.QueryRow("SELECT COUNT(*) FROM dining_tables").Scan(&tableCount); err != nil {
		t.Fatalf("counting dining tables: %v", err)
	}
	if tableCount != 10 {
		t.Errorf("dining table count = %d, want 10", tableCount)
	}
}

func TestSystemConfigRepository(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	repo, err := NewSystemConfigRepository(ctx, db)
	if err != nil {
		t.Fatalf("NewSystemConfigRepository() error: %v", err)
	}

	// Missing key returns empty string.
	val, err := repo.Get(ctx, ConfigRestaurantName)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if val != "" {
		t.Errorf("Get() = %q, want empty", val)
	}

	if err := repo.Set(ctx, ConfigRestaurantName, "Luigi's Italian Restaurant"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	val, err = repo.Get(ctx, ConfigRestaurantName)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if val != "Luigi's Italian Restaurant" {
		t.Errorf("Get() = %q, want Luigi's Italian Restaurant", val)
	}

	// Overwrite.
	if err := repo.Set(ctx, ConfigRestaurantName, "Trattoria Da Mario"); err != nil {
		t.Fatalf("Set() overwrite error: %v", err)
	}
	val, _ = repo.Get(ctx, ConfigRestaurantName)
	if val != "Trattoria Da Mario" {
		t.Errorf("Get() after overwrite = %q", val)
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("GetAll() returned %d entries, want 1", len(all))
	}
}
