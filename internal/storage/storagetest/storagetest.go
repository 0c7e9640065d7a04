// Package storagetest opens migrated throwaway databases for tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/playperu/hunts/internal/database"
	"github.com/playperu/hunts/internal/migrations"
	"github.com/playperu/hunts/internal/storage"
)

// Open returns a store over a fresh, migrated database file that is removed
// when the test ends.
func Open(t *testing.T) *storage.Store {
	t.Helper()

	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := migrations.Run(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return storage.New(db)
}
