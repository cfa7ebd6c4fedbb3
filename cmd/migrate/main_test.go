package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseMigrationFile(t *testing.T) {
	dir := t.TempDir()
	sql := "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.entries` (id INT64);"
	if err := os.WriteFile(filepath.Join(dir, "0001_create_entries.sql"), []byte(sql), 0o644); err != nil {
		t.Fatal(err)
	}

	m, ok, err := parseMigrationFile(dir, "0001_create_entries.sql", "proj", "ledger")
	if err != nil || !ok {
		t.Fatalf("parseMigrationFile: ok=%v err=%v", ok, err)
	}
	if m.Version != 1 || m.Name != "create_entries" {
		t.Errorf("parsed %+v", m)
	}
	if !strings.Contains(m.SQL, "`proj.ledger.entries`") {
		t.Errorf("placeholders not substituted: %s", m.SQL)
	}
	if m.Checksum == "" {
		t.Error("checksum missing")
	}
}

func TestParseMigrationFile_SkipsInvalidNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"001_short.sql", "0001_missing_ext", "notes.txt", "0001.sql"} {
		if _, ok, err := parseMigrationFile(dir, name, "proj", "ledger"); ok || err != nil {
			t.Errorf("%s: ok=%v err=%v, want skipped", name, ok, err)
		}
	}
}

func TestParseMigrationFile_ChecksumIgnoresPlaceholders(t *testing.T) {
	dir := t.TempDir()
	sql := "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.entries` (id INT64);"
	if err := os.WriteFile(filepath.Join(dir, "0001_create_entries.sql"), []byte(sql), 0o644); err != nil {
		t.Fatal(err)
	}

	a, _, _ := parseMigrationFile(dir, "0001_create_entries.sql", "proj-a", "ledger")
	b, _, _ := parseMigrationFile(dir, "0001_create_entries.sql", "proj-b", "other")
	if a.Checksum != b.Checksum {
		t.Error("checksum must not depend on project or dataset substitution")
	}
}

func TestLoadMigrations_SortedByVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_add_index.sql", "0001_create_entries.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	migrations, err := loadMigrations(dir, "proj", "ledger")
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(migrations) != 2 || migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("migrations = %+v, want version order", migrations)
	}
}
