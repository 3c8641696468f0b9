package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"taskboard/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore_ReopenKeepsDataAndSkipsAppliedMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "board.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	p := &models.Project{Title: "Persisted", Code: "KEEP"}
	if err := first.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("failed to close store before reopening: %v", err)
	}

	second, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen sqlite store: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	got, err := second.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("expected project to persist: %v", err)
	}
	if got.Code != "KEEP" {
		t.Fatalf("expected KEEP, got %s", got.Code)
	}

	migrations, err := loadMigrations(sqliteDialect.name)
	if err != nil {
		t.Fatalf("loadMigrations failed: %v", err)
	}
	var applied int
	if err := second.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("failed to count schema migrations: %v", err)
	}
	if applied != len(migrations) {
		t.Fatalf("expected %d applied migrations, got %d", len(migrations), applied)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected db file to exist: %v", err)
	}
}

func TestSQLiteSchema_RejectsUnknownStatus(t *testing.T) {
	store := setupTestDB(t)
	p := createProject(t, store, "CHK")

	_, err := store.db.Exec(`INSERT INTO tasks (project_id, title, status, position) VALUES (?, 'Bad', 'archived', 10)`, p.ID)
	if err == nil {
		t.Fatal("expected status check constraint to reject 'archived'")
	}
}

func TestLoadMigrations_BothDialects(t *testing.T) {
	for _, d := range []dialect{sqliteDialect, postgresDialect} {
		migrations, err := loadMigrations(d.name)
		if err != nil {
			t.Fatalf("%s: loadMigrations failed: %v", d.name, err)
		}
		if len(migrations) == 0 || migrations[0].version != 1 || migrations[0].name != "init" {
			t.Errorf("%s: unexpected migrations %+v", d.name, migrations)
		}
		for i := 1; i < len(migrations); i++ {
			if migrations[i-1].version >= migrations[i].version {
				t.Errorf("%s: migrations out of order", d.name)
			}
		}
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion int
		wantName    string
		wantErr     bool
	}{
		{filename: "0001_init.sql", wantVersion: 1, wantName: "init"},
		{filename: "0012_add_labels.sql", wantVersion: 12, wantName: "add_labels"},
		{filename: "init.sql", wantErr: true},
		{filename: "abc_init.sql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, err := parseMigrationFilename(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && (version != tt.wantVersion || name != tt.wantName) {
				t.Errorf("expected %d/%s, got %d/%s", tt.wantVersion, tt.wantName, version, name)
			}
		})
	}
}

func TestDialectRebind(t *testing.T) {
	query := `UPDATE tasks SET position = ? WHERE id = ? AND project_id = ?`

	if got := sqliteDialect.rebind(query); got != query {
		t.Errorf("sqlite rebind changed query: %s", got)
	}

	want := `UPDATE tasks SET position = $1 WHERE id = $2 AND project_id = $3`
	if got := postgresDialect.rebind(query); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
