package database

import (
	"context"
	"testing"
	"testing/fstest"
)

// testMigrations is a two-step schema used by the migration tests.
var testMigrations = fstest.MapFS{
	"testdata/20260101_000000_create_sample.up.sql":   {Data: []byte("CREATE TABLE sample (id INTEGER PRIMARY KEY);")},
	"testdata/20260101_000000_create_sample.down.sql": {Data: []byte("DROP TABLE sample;")},
	"testdata/20260102_000000_add_label.up.sql":       {Data: []byte("ALTER TABLE sample ADD COLUMN label TEXT;")},
	"testdata/20260102_000000_add_label.down.sql":     {Data: []byte("ALTER TABLE sample DROP COLUMN label;")},
	"testdata/README.md":                              {Data: []byte("not a migration")},
}

// useMigrations swaps the package migration source for the test.
func useMigrations(t *testing.T, fsys fstest.MapFS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})
	MigrationsFS = fsys
	MigrationsDir = dir
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrations, "testdata")
	db := openTestDB(t)
	ctx := context.Background()

	n, err := db.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Migrate() applied %d, want 2", n)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO sample (label) VALUES ('x')"); err != nil {
		t.Fatalf("migrated schema unusable: %v", err)
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("status = %d applied / %d pending, want 2 / 0", len(applied), len(pending))
	}

	// Running again is a no-op.
	n, err = db.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second Migrate() applied %d, want 0", n)
	}
}

func TestMigrateDown(t *testing.T) {
	useMigrations(t, testMigrations, "testdata")
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	version, err := db.MigrateDown(ctx)
	if err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if version != "20260102_000000" {
		t.Errorf("MigrateDown() version = %q, want 20260102_000000", version)
	}

	version, err = db.MigrateDown(ctx)
	if err != nil {
		t.Fatalf("second MigrateDown() error = %v", err)
	}
	if version != "20260101_000000" {
		t.Errorf("second MigrateDown() version = %q, want 20260101_000000", version)
	}

	exists, err := db.TableExists(ctx, "sample")
	if err != nil {
		t.Fatalf("TableExists() error = %v", err)
	}
	if exists {
		t.Error("table sample should have been dropped")
	}

	// Nothing left to roll back.
	version, err = db.MigrateDown(ctx)
	if err != nil {
		t.Fatalf("third MigrateDown() error = %v", err)
	}
	if version != "" {
		t.Errorf("third MigrateDown() version = %q, want empty", version)
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	useMigrations(t, nil, ".")
	MigrationsFS = nil
	db := openTestDB(t)

	n, err := db.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
	if n != 0 {
		t.Errorf("Migrate() applied %d, want 0", n)
	}
}

func TestMigrateFailureStopsAtBrokenMigration(t *testing.T) {
	broken := fstest.MapFS{
		"m/20260101_000000_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"m/20260102_000000_broken.up.sql": {Data: []byte("CREATE TABLE ;")},
	}
	useMigrations(t, broken, "m")
	db := openTestDB(t)
	ctx := context.Background()

	n, err := db.Migrate(ctx)
	if err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}
	if n != 1 {
		t.Errorf("Migrate() applied %d before failing, want 1", n)
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("status = %d applied / %d pending, want 1 / 1", len(applied), len(pending))
	}
}

func TestGetMigrationStatus(t *testing.T) {
	useMigrations(t, testMigrations, "testdata")
	db := openTestDB(t)

	applied, pending, err := db.GetMigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 applied, got %d", len(applied))
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].Name != "create_sample" || pending[1].Name != "add_label" {
		t.Errorf("pending order = %q, %q", pending[0].Name, pending[1].Name)
	}
	if pending[0].DownSQL == "" {
		t.Error("pending[0].DownSQL should be loaded")
	}
}

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
			filename:    "20260301_090000_devices.up.sql",
			wantVersion: "20260301_090000",
			wantIsUp:    true,
			wantOk:      true,
		},
		{
			name:        "valid down migration",
			filename:    "20260301_090000_devices.down.sql",
			wantVersion: "20260301_090000",
			wantIsUp:    false,
			wantOk:      true,
		},
		{name: "not sql file", filename: "readme.txt"},
		{name: "missing direction", filename: "20260301_090000_devices.sql"},
		{name: "invalid format", filename: "invalid.up.sql"},
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

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260301_090000_devices.up.sql", "devices"},
		{"20260101_000000_create_sample.down.sql", "create_sample"},
		{"20260102_000000_add_label_to_sample.up.sql", "add_label_to_sample"},
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
