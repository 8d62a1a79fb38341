package database

import (
	"context"
	"embed"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"
)

//go:embed testdata/*.sql
var testdataFS embed.FS

func testMigrations(t *testing.T) fs.FS {
	t.Helper()
	sub, err := fs.Sub(testdataFS, "testdata")
	if err != nil {
		t.Fatalf("fs.Sub() error = %v", err)
	}
	return sub
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	return count == 1
}

// TestMigrate verifies migration application.
func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrations := testMigrations(t)
	if err := db.Migrate(ctx, migrations); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if !tableExists(t, db, "samples") {
		t.Fatal("table samples not created")
	}
	// Second migration added a column.
	if _, err := db.ExecContext(ctx, "INSERT INTO samples (name, value) VALUES (?, ?)", "a", 1.5); err != nil {
		t.Fatalf("INSERT error = %v", err)
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != "20260102_000000" {
		t.Errorf("SchemaVersion() = %q, want %q", version, "20260102_000000")
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx, migrations); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrateDown verifies migration rollback.
func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	migrations := testMigrations(t)

	if err := db.Migrate(ctx, migrations); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, want := range []string{"20260101_000000", ""} {
		if err := db.MigrateDown(ctx, migrations); err != nil {
			t.Fatalf("MigrateDown() error = %v", err)
		}
		version, err := db.SchemaVersion(ctx)
		if err != nil {
			t.Fatalf("SchemaVersion() error = %v", err)
		}
		if version != want {
			t.Errorf("SchemaVersion() after rollback = %q, want %q", version, want)
		}
	}

	if tableExists(t, db, "samples") {
		t.Error("table samples should have been dropped")
	}

	// Nothing left to roll back.
	if err := db.MigrateDown(ctx, migrations); err != nil {
		t.Errorf("MigrateDown() on empty schema error = %v", err)
	}
}

// TestMigrateNoMigrations verifies behaviour with no migrations.
func TestMigrateNoMigrations(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()

	if err := db.Migrate(ctx, nil); err != nil {
		t.Fatalf("Migrate(nil) error = %v", err)
	}
	if err := db.Migrate(ctx, fstest.MapFS{}); err != nil {
		t.Fatalf("Migrate(empty) error = %v", err)
	}
	if version, _ := db.SchemaVersion(ctx); version != "" {
		t.Errorf("SchemaVersion() = %q, want empty", version)
	}
}

// TestMigrateFailureStopsAtBrokenMigration verifies per-migration atomicity.
func TestMigrateFailureStopsAtBrokenMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	fsys := fstest.MapFS{
		"20260101_000000_good.up.sql":   {Data: []byte("CREATE TABLE good (id INTEGER);")},
		"20260102_000000_broken.up.sql": {Data: []byte("CREATE TABLE broken (id INTEGER); INSERT INTO missing VALUES (1);")},
		"20260103_000000_later.up.sql":  {Data: []byte("CREATE TABLE later (id INTEGER);")},
	}

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() expected error, got nil")
	}

	if !tableExists(t, db, "good") {
		t.Error("migration before the failure should stay committed")
	}
	if tableExists(t, db, "broken") {
		t.Error("failed migration should be rolled back")
	}
	if tableExists(t, db, "later") {
		t.Error("migrations after the failure should not run")
	}
	if version, _ := db.SchemaVersion(ctx); version != "20260101_000000" {
		t.Errorf("SchemaVersion() = %q, want %q", version, "20260101_000000")
	}
}

// TestParseMigrationFilename verifies filename parsing.
func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20261018_120000_activity_journal.up.sql",
			wantVersion: "20261018_120000",
			wantIsUp:    true,
			wantOk:      true,
		},
		{
			name:        "valid down migration",
			filename:    "20261018_120000_activity_journal.down.sql",
			wantVersion: "20261018_120000",
			wantIsUp:    false,
			wantOk:      true,
		},
		{
			name:     "not sql file",
			filename: "readme.txt",
			wantOk:   false,
		},
		{
			name:     "missing direction",
			filename: "20261018_120000_activity_journal.sql",
			wantOk:   false,
		},
		{
			name:     "invalid format",
			filename: "invalid.up.sql",
			wantOk:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Errorf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok {
				if version != tt.wantVersion {
					t.Errorf("version = %v, want %v", version, tt.wantVersion)
				}
				if isUp != tt.wantIsUp {
					t.Errorf("isUp = %v, want %v", isUp, tt.wantIsUp)
				}
			}
		})
	}
}

// TestExtractMigrationName verifies name extraction.
func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20261018_120000_activity_journal.up.sql", "activity_journal"},
		{"20260101_000000_create_samples.down.sql", "create_samples"},
		{"20260102_000000_add_sample_value.up.sql", "add_sample_value"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := extractMigrationName(tt.filename)
			if got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
