package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/calebh/sift/internal/db"
)

// OpenTestDB opens a throwaway database with the full schema applied. A
// file in t.TempDir() rather than :memory: so every pooled connection sees
// the same database.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sift-test.db")
	database, err := db.OpenPath(path)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}
