package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var sqliteDialect = dialect{
	name:        "sqlite",
	lockProject: `SELECT id FROM projects WHERE id = ?`,
	isUniqueViolation: func(err error) bool {
		var sqliteErr sqlite3.Error
		return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	},
}

// NewSQLiteStore creates a new SQLite store with the given database path.
// Transactions begin IMMEDIATE so a project's read-then-write sequence holds
// the write lock from its first read.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dbPath+sep+"_foreign_keys=on&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLStore{db: db, d: sqliteDialect}
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}
