package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"path"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql
var migrationFiles embed.FS

var errNoDatabase = errors.New("db: no database handle")

// RunMigrations applies the dialect's pending migrations. A nil database is a
// no-op so memory-backed dev runs can share the bootstrap path.
func RunMigrations(ctx context.Context, database *sql.DB, dialect Dialect) error {
	if database == nil {
		return nil
	}
	if err := prepareGoose(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, migrationDir(dialect))
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(ctx context.Context, database *sql.DB, dialect Dialect) error {
	if database == nil {
		return errNoDatabase
	}
	if err := prepareGoose(dialect); err != nil {
		return err
	}
	return goose.DownContext(ctx, database, migrationDir(dialect))
}

// MigrationVersion reports the schema version currently applied.
func MigrationVersion(ctx context.Context, database *sql.DB, dialect Dialect) (int64, error) {
	if database == nil {
		return 0, errNoDatabase
	}
	if err := prepareGoose(dialect); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, database)
}

func prepareGoose(dialect Dialect) error {
	goose.SetBaseFS(migrationFiles)
	return goose.SetDialect(string(dialect))
}

func migrationDir(d Dialect) string {
	if d == MySQL {
		return path.Join("migrations", "mysql")
	}
	return path.Join("migrations", "postgres")
}
