package database

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// ApplyMigrationFile reads a SQL file and executes it statement by
// statement.  Statements are idempotent (CREATE TABLE IF NOT EXISTS) so the
// file can be re-applied on every startup.  Errors caused by re-adding an
// existing column are tolerated to keep old databases working.
func ApplyMigrationFile(db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	for _, stmt := range strings.Split(string(b), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil && !isDuplicateErr(err) {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

func isDuplicateErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
