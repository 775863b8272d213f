package shared

import (
	"database/sql"
	"testing"
)

func migrationTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	if err != nil {
		t.Fatalf("failed to check for table %s: %v", name, err)
	}
	return count > 0
}

func TestRunMigrations(t *testing.T) {
	t.Run("creates the warehouse schema", func(t *testing.T) {
		db := migrationTestDB(t)

		if err := RunMigrations(db, "sqlite3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, table := range []string{"schema_migrations", "tracks_staging", "track_dim"} {
			if !tableExists(t, db, table) {
				t.Errorf("expected table %s to exist", table)
			}
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		db := migrationTestDB(t)

		if err := RunMigrations(db, "sqlite3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := RunMigrations(db, "sqlite3"); err != nil {
			t.Fatalf("unexpected error on rerun: %v", err)
		}

		var applied int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if applied != 1 {
			t.Errorf("expected 1 applied migration, got %d", applied)
		}
	})

	t.Run("unknown driver fails", func(t *testing.T) {
		db := migrationTestDB(t)

		if err := RunMigrations(db, "oracle"); err == nil {
			t.Fatal("expected error for unknown driver")
		}
	})
}

func TestRollbackMigration(t *testing.T) {
	t.Run("drops the most recent migration", func(t *testing.T) {
		db := migrationTestDB(t)

		if err := RunMigrations(db, "sqlite3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := RollbackMigration(db, "sqlite3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if tableExists(t, db, "track_dim") {
			t.Error("expected track_dim dropped after rollback")
		}
		if tableExists(t, db, "tracks_staging") {
			t.Error("expected tracks_staging dropped after rollback")
		}

		var applied int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if applied != 0 {
			t.Errorf("expected no applied migrations, got %d", applied)
		}
	})

	t.Run("nothing applied fails", func(t *testing.T) {
		db := migrationTestDB(t)

		if err := createMigrationsTable(db); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := RollbackMigration(db, "sqlite3"); err == nil {
			t.Fatal("expected error with nothing to roll back")
		}
	})
}

func TestRebind(t *testing.T) {
	query := "INSERT INTO t (a, b, c) VALUES (?, ?, ?)"

	t.Run("sqlite keeps question marks", func(t *testing.T) {
		if got := Rebind("sqlite3", query); got != query {
			t.Errorf("expected query unchanged, got %q", got)
		}
	})

	t.Run("postgres numbers placeholders", func(t *testing.T) {
		want := "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)"
		if got := Rebind("postgres", query); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("no placeholders is a no-op", func(t *testing.T) {
		plain := "SELECT COUNT(*) FROM t"
		if got := Rebind("postgres", plain); got != plain {
			t.Errorf("expected %q, got %q", plain, got)
		}
	})
}
