package migrate

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const defaultMigrationsDir = "db/migrations"

// Run applies all pending migrations using goose. dir is the
// migrations directory from config; empty falls back to the in-repo
// db/migrations. It opens and closes its own DB handle so it is
// independent of the app store.
func Run(dsn, dir string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, dirOrDefault(dir)); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

func dirOrDefault(dir string) string {
	if dir == "" {
		return defaultMigrationsDir
	}
	return dir
}
