package db

import (
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the database named by dsn. Postgres URLs use the pgx
// driver; everything else is treated as a SQLite file path, the dev and
// test default.
func Open(dsn string) (*sql.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		return db, db.Ping()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Reduce contention and avoid long lock waits.
	_, _ = db.Exec(`PRAGMA journal_mode=WAL;`)  // readers do not block the writer
	_, _ = db.Exec(`PRAGMA busy_timeout=3000;`) // wait up to 3s before "database is locked"
	_, _ = db.Exec(`PRAGMA foreign_keys=ON;`)   // enforce referential integrity

	return db, nil
}
