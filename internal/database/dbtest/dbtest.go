// Package dbtest provides a migrated SQLite database for tests.
package dbtest

import (
	"context"
	"os"
	"testing"

	"gorm.io/gorm"

	"github.com/antonkondratyev/api-universal/internal/config"
	"github.com/antonkondratyev/api-universal/internal/database"
)

// Open creates a temporary SQLite file with the full schema applied. The
// file and connection are released when the test completes.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	// temp file rather than :memory: so every pooled connection sees the same data
	f, err := os.CreateTemp("", "api-universal-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	path := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(path) })

	db, err := database.Open(config.DatabaseConfig{Dialect: "sqlite", URL: path + "?_foreign_keys=on"})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db
}
