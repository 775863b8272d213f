package repositories

import (
	"database/sql"
	"testing"

	"github.com/desertthunder/tracklake/internal/shared"
)

// setupTestDB creates an in-memory SQLite warehouse with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db, "sqlite3"); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}
