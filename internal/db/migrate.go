package db

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// ApplyMigrationFile runs every statement of the schema file. Statements are
// split on ";" at line end so drivers without multi-statement support work.
func ApplyMigrationFile(db *sql.DB, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	for _, stmt := range splitStatements(string(b)) {
		if _, err := db.Exec(stmt); err != nil && !isDuplicateColumnErr(err) {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	// Columns added after the first deployed schema.
	for _, stmt := range []string{
		`ALTER TABLE users ADD COLUMN bio TEXT`,
		`ALTER TABLE users ADD COLUMN last_login TIMESTAMP`,
		`ALTER TABLE issues ADD COLUMN comment_count INTEGER NOT NULL DEFAULT 0`,
	} {
		if _, err := db.Exec(stmt); err != nil && !isDuplicateColumnErr(err) {
			return fmt.Errorf("apply compatibility migration %q: %w", stmt, err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	var cur strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSpace(cur.String()); stmt != "" {
				out = append(out, stmt)
			}
			cur.Reset()
		}
	}
	if stmt := strings.TrimSpace(cur.String()); stmt != "" {
		out = append(out, stmt)
	}
	return out
}

func isDuplicateColumnErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
