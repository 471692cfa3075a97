package persist

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// RunMigrations applies all pending ledger migrations for the DB's dialect.
func RunMigrations(ctx context.Context, db *DB) error {
	dir := "migrations/postgres"
	if db.Dialect == "sqlite3" {
		dir = "migrations/sqlite"
	}

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(db.Dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.SQL, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
