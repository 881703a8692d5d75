package db

import (
	"database/sql"
	"os"
)

// Migrate executes the schema file against db. The schema is written to
// be idempotent (CREATE TABLE IF NOT EXISTS), so running it repeatedly
// is safe.
func Migrate(db *sql.DB, schemaPath string) error {
	b, err := os.ReadFile(schemaPath)
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}
