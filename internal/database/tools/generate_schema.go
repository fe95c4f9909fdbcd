// generate_schema applies every migration to a scratch in-memory ledger and
// writes the resulting DDL to internal/database/sqlc/schema.sql, which sqlc
// and the in-memory test databases consume.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"herbtrace/internal/database"
	"herbtrace/internal/database/migrations"
)

const header = `-- This file is auto-generated from migration files.
-- DO NOT EDIT MANUALLY. Run 'go generate ./internal/database' to regenerate.
-- Source: internal/database/migrations/files/*.sql

`

func main() {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		fail("open database", err)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		fail("migrate", err)
	}

	schema, err := dumpSchema(db)
	if err != nil {
		fail("dump schema", err)
	}

	outPath := filepath.Join("internal", "database", "sqlc", "schema.sql")
	if err := os.WriteFile(outPath, []byte(header+schema), 0644); err != nil {
		fail("write schema", err)
	}
	fmt.Printf("wrote %s\n", outPath)
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "generate_schema: %s: %v\n", step, err)
	os.Exit(1)
}

// dumpSchema returns every user table and index definition, tables first,
// each group sorted by name. golang-migrate's bookkeeping and SQLite's
// internal objects are skipped.
func dumpSchema(db *sql.DB) (string, error) {
	rows, err := db.Query(`
		SELECT sql
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY CASE type WHEN 'table' THEN 1 ELSE 2 END, name
	`)
	if err != nil {
		return "", fmt.Errorf("query sqlite_master: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return "", fmt.Errorf("scan: %w", err)
		}
		b.WriteString(stmt)
		b.WriteString(";\n\n")
	}
	return b.String(), rows.Err()
}
