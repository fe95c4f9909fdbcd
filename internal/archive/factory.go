// Package archive stores sealed ledger snapshots off the host.
package archive

import (
	"fmt"

	"herbtrace/internal/config"
	"herbtrace/internal/ledger"
)

// NewArchiveFromConfig creates an Archive for the configured backend type.
func NewArchiveFromConfig(cfg config.ArchiveConfig) (ledger.Archive, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryArchive(cfg.Name), nil
	case "filesystem":
		if cfg.FSArchiveRoot == "" {
			return nil, fmt.Errorf("filesystem archive requires fs_archive_root to be set")
		}
		return NewFileSystemArchive(cfg.Name, cfg.FSArchiveRoot)
	case "s3":
		return NewS3Archive(cfg)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
