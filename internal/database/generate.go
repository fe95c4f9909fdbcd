package database

// Regenerate the schema snapshot and the sqlc query layer after editing
// migrations/files or sqlc/queries.sql:
//
//	go generate ./internal/database

//go:generate sh -c "cd ../.. && go run internal/database/tools/generate_schema.go"
//go:generate sh -c "cd ../.. && sqlc generate -f internal/database/sqlc/sqlc.yaml"
