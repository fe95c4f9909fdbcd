package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"herbtrace/internal/ledger"
)

// FileSystemArchive stores snapshots under a directory, typically a mounted
// backup drive:
//
//	<root>/
//	  snapshots/
//	    <ledgerID>.db
//	    <ledgerID>.version
type FileSystemArchive struct {
	name string
	root string
	dir  string
}

var _ ledger.Archive = (*FileSystemArchive)(nil)

// NewFileSystemArchive creates the directory layout under root.
func NewFileSystemArchive(name, root string) (*FileSystemArchive, error) {
	dir := filepath.Join(root, "snapshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	return &FileSystemArchive{name: name, root: root, dir: dir}, nil
}

// PutSnapshot writes the snapshot, then its version. A reader never sees a
// version newer than the snapshot beside it.
func (a *FileSystemArchive) PutSnapshot(ledgerID string, r io.Reader, size int64, version int64) error {
	if err := a.writeAtomic(a.snapshotPath(ledgerID), r, size); err != nil {
		return err
	}
	v := strconv.FormatInt(version, 10)
	return a.writeAtomic(a.versionPath(ledgerID), strings.NewReader(v), int64(len(v)))
}

func (a *FileSystemArchive) GetSnapshot(ledgerID string, w io.Writer) error {
	f, err := os.Open(a.snapshotPath(ledgerID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no snapshot for ledger %s", ledgerID)
		}
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	return nil
}

// GetSnapshotVersion returns 0 when no version file exists.
func (a *FileSystemArchive) GetSnapshotVersion(ledgerID string) (int64, error) {
	data, err := os.ReadFile(a.versionPath(ledgerID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

func (a *FileSystemArchive) ValidateSetup() error {
	info, err := os.Stat(a.dir)
	if err != nil {
		return fmt.Errorf("archive %s not accessible: %w", a.name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("archive path is not a directory: %s", a.dir)
	}
	return nil
}

func (a *FileSystemArchive) snapshotPath(ledgerID string) string {
	return filepath.Join(a.dir, ledgerID+".db")
}

func (a *FileSystemArchive) versionPath(ledgerID string) string {
	return filepath.Join(a.dir, ledgerID+".version")
}

// writeAtomic copies r to a temp file beside dest and renames it into place.
func (a *FileSystemArchive) writeAtomic(dest string, r io.Reader, size int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	done := false
	defer func() {
		if !done {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(dest), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	done = true
	return nil
}
