package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"

	"github.com/homease/homease-backend/pkg/migrate"
)

func writeMigration(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write migration %s: %v", name, err)
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}

func TestValidateDirReportsAllProblems(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20250901120000_good.sql", "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")
	writeMigration(t, dir, "20250901120000_duplicate.sql", "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")
	writeMigration(t, dir, "bad-name.sql", "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")
	writeMigration(t, dir, "20250901130000_no_down.sql", "-- +goose Up\nSELECT 1;\n")

	err := migrate.ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}

	problems := multierr.Errors(err)
	if len(problems) != 3 {
		t.Fatalf("expected 3 problems, got %d: %v", len(problems), problems)
	}

	combined := err.Error()
	for _, want := range []string{"duplicate migration version", "invalid migration filename", "goose Down"} {
		if !strings.Contains(combined, want) {
			t.Fatalf("missing %q in %v", want, combined)
		}
	}
}

func TestValidateDirIgnoresNonSQLFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "README.md", "notes")
	writeMigration(t, dir, "20250901120000_good.sql", "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")

	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}
}

func TestInitSchemaMigrationContainsCoreTables(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("no init schema migration found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE users",
		"CREATE TABLE contractor_profiles",
		"CREATE TABLE leads",
		"CREATE TABLE ar_assessments",
		"CREATE TABLE transactions",
		"CREATE TABLE pending_role_assignments",
		"USING gin (matched_contractor_ids)",
		"DROP TABLE IF EXISTS leads",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
