package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationVersion(t *testing.T) {
	tests := []struct {
		name    string
		version int
		ok      bool
	}{
		{"001_initial_schema.sql", 1, true},
		{"012_add_jobs.sql", 12, true},
		{"README.md", 0, false},
		{"001_initial_schema.sql.bak", 0, false},
		{"initial.sql", 0, false},
		{"000_zero.sql", 0, false},
		{"abc_schema.sql", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			version, ok := migrationVersion(tc.name)
			if ok != tc.ok || version != tc.version {
				t.Errorf("migrationVersion(%q) = (%d, %v), want (%d, %v)", tc.name, version, ok, tc.version, tc.ok)
			}
		})
	}
}

func TestPendingMigrations_SortedByVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"010_later.sql", "002_second.sql", "notes.txt", "001_first.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o700); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	got := pendingMigrations(entries)
	want := []int{1, 2, 10}
	if len(got) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(got))
	}
	for i, v := range want {
		if got[i].version != v {
			t.Errorf("migration %d: expected version %d, got %d", i, v, got[i].version)
		}
	}
}

func TestMigrationsDirectory_Parses(t *testing.T) {
	entries, err := os.ReadDir(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("failed to read migrations: %v", err)
	}
	if len(pendingMigrations(entries)) == 0 {
		t.Fatal("expected at least one migration file")
	}
}
