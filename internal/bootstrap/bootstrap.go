package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jackc/pgx/v5/pgconn"

	"gradex/internal/config"
	"gradex/internal/store"
)

// Run seeds departments from bootstrap configuration. It is designed
// to be idempotent and safe to run multiple times.
func Run(ctx context.Context, cfg *config.Config, st *store.Store) error {
	if cfg == nil || st == nil {
		return nil
	}

	for i := range cfg.Bootstrap.Departments {
		if err := bootstrapDepartment(ctx, st, &cfg.Bootstrap.Departments[i]); err != nil {
			return err
		}
	}
	return nil
}

func bootstrapDepartment(ctx context.Context, st *store.Store, d *config.BootstrapDepartmentConfig) error {
	name := strings.TrimSpace(d.Name)
	if name == "" || d.Password == "" {
		return nil
	}

	_, err := st.GetDepartmentByName(ctx, name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil {
		// Department already exists; never rewrite credentials from
		// bootstrap to avoid surprising changes.
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(d.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if _, err := st.InsertDepartment(ctx, name, string(hash)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Another process created this department concurrently.
			return nil
		}
		return err
	}
	return nil
}
