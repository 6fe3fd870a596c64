package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

func prepareGoose() error {
	goose.SetBaseFS(migrationFiles)
	return goose.SetDialect("postgres")
}

// RunMigrations applies embedded SQL migrations via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	if err := prepareGoose(); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, migrationsDir)
}

// Migrate runs a goose command (up, down, status, version, reset) against the embedded migrations.
func Migrate(ctx context.Context, database *sql.DB, command string) error {
	if database == nil {
		return fmt.Errorf("database is required")
	}
	if err := prepareGoose(); err != nil {
		return err
	}
	switch command {
	case "up":
		return goose.UpContext(ctx, database, migrationsDir)
	case "down":
		return goose.DownContext(ctx, database, migrationsDir)
	case "status":
		return goose.StatusContext(ctx, database, migrationsDir)
	case "version":
		return goose.VersionContext(ctx, database, migrationsDir)
	case "reset":
		return goose.ResetContext(ctx, database, migrationsDir)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}
