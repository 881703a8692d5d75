// Package store is the SQL persistence layer for the journal entities.
// Queries use $n placeholders, which both supported drivers accept.
package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Store handles database operations.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// isUniqueErr reports whether err is a unique-constraint violation on
// the given column or constraint name, for either backend.
func isUniqueErr(err error, name string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, name)
	}
	// SQLite: "UNIQUE constraint failed: table.column"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") && strings.Contains(msg, strings.ToLower(name))
}

// isCheckErr reports whether err is a CHECK constraint violation.
func isCheckErr(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	return strings.Contains(strings.ToLower(err.Error()), "check constraint failed")
}
