package store

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store wraps access to the database via a shared pooled *sql.DB.
// All query helpers open short transactions per logical operation;
// nothing holds a connection across scrape attempts.
type Store struct {
	DB *sql.DB
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// nullStr converts an optional string into its sql representation.
func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// strPtr converts a nullable column back into an optional string.
func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
