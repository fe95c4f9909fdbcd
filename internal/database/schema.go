package database

import _ "embed"

// Schema is the full DDL produced by the migrations, used by tests to build
// in-memory databases without running golang-migrate.
//
//go:embed sqlc/schema.sql
var Schema string
