package encryption

import (
	"bytes"
	"fmt"
	"io"

	"herbtrace/internal/ledger"
)

// NoneSealer copies data unchanged. For archives that are already private.
type NoneSealer struct{}

var _ ledger.Sealer = NoneSealer{}

func (NoneSealer) Setup(string) error { return nil }

func (NoneSealer) Seal(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying snapshot: %w", err)
	}
	return nil
}

func (NoneSealer) Unlock(string) (ledger.Opener, error) { return noneOpener{}, nil }

func (NoneSealer) IsConfigured() bool { return true }

type noneOpener struct{}

func (noneOpener) Open(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying snapshot: %w", err)
	}
	return nil
}

// testMarker is prepended by TestSealer so sealed output never equals its input.
var testMarker = []byte("HTSEAL\x00\x00")

// TestSealer is a deterministic, reversible sealer for tests.
type TestSealer struct {
	setupCalled bool
}

var _ ledger.Sealer = (*TestSealer)(nil)

func NewTestSealer() *TestSealer {
	return &TestSealer{}
}

func (s *TestSealer) Setup(string) error {
	s.setupCalled = true
	return nil
}

func (s *TestSealer) Seal(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testMarker); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (s *TestSealer) Unlock(string) (ledger.Opener, error) {
	return testOpener{}, nil
}

func (s *TestSealer) IsConfigured() bool { return true }

type testOpener struct{}

func (testOpener) Open(r io.Reader, w io.Writer) error {
	marker := make([]byte, len(testMarker))
	if _, err := io.ReadFull(r, marker); err != nil {
		return fmt.Errorf("reading marker: %w", err)
	}
	if !bytes.Equal(marker, testMarker) {
		return fmt.Errorf("data was not sealed by TestSealer")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
