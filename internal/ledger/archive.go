package ledger

import "io"

// Archive keeps off-host copies of a ledger database.
// All operations stream through io.Reader/io.Writer.
type Archive interface {
	// PutSnapshot stores the snapshot for ledgerID, replacing any earlier one.
	// size is the number of bytes that will be read from r. version is stored
	// alongside for consistency checks.
	PutSnapshot(ledgerID string, r io.Reader, size int64, version int64) error

	// GetSnapshot writes the latest snapshot for ledgerID to w.
	GetSnapshot(ledgerID string, w io.Writer) error

	// GetSnapshotVersion returns the stored version, or 0 when there is none.
	GetSnapshotVersion(ledgerID string) (int64, error)

	// ValidateSetup verifies that the archive is reachable.
	ValidateSetup() error
}
