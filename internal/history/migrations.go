// Package history persists run records to a SQL database.
//
// Two backends exist: PostgreSQL through pgxpool for the service, and SQLite
// for single-machine use. Both apply the embedded migrations on open.
package history

import (
	"database/sql"
	"embed"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
)

var (
	//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
	migrations embed.FS

	ErrMigrationsNotRun = fmt.Errorf("not all migrations applied")
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"
)

func migrationSource(dialect string) migrate.MigrationSource {
	root := "migrations/postgres"
	if dialect == dialectSQLite {
		root = "migrations/sqlite"
	}
	return migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       root,
	}
}

func migrationSet() migrate.MigrationSet {
	return migrate.MigrationSet{
		TableName: "migrations",
	}
}

// RunMigrations applies pending migrations and returns how many ran.
func RunMigrations(db *sql.DB, dialect string) (int, error) {
	ms := migrationSet()
	return ms.Exec(db, dialect, migrationSource(dialect), migrate.Up)
}

// CheckMigrations returns ErrMigrationsNotRun when migrations are pending.
func CheckMigrations(db *sql.DB, dialect string) error {
	ms := migrationSet()
	pending, _, err := ms.PlanMigration(db, dialect, migrationSource(dialect), migrate.Up, 0)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return fmt.Errorf("%w: %d pending", ErrMigrationsNotRun, len(pending))
	}
	return nil
}
