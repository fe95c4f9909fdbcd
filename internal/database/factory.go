package database

import (
	"fmt"
	"os"
	"path/filepath"

	"herbtrace/internal/config"
)

// NewDatabaseFromConfig creates a SQLite store based on the database config type.
// Memory databases are migrated immediately since they start empty.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, ledgerID string) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, ledgerID+".db"))
	case "memory":
		db, err := NewSQLiteDatabase(":memory:")
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating memory database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// DatabasePath returns where a sqlite ledger database lives for cfg.
func DatabasePath(cfg config.DatabaseConfig, ledgerID string) string {
	return filepath.Join(cfg.DataDir, ledgerID+".db")
}
