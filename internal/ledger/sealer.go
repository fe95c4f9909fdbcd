package ledger

import "io"

// Sealer encrypts snapshots before they leave the host.
// Sealing needs only the public key; opening needs the passphrase.
type Sealer interface {
	// Setup performs one-time key generation, protecting the private key
	// with passphrase.
	Setup(passphrase string) error

	// Seal encrypts r into w.
	Seal(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns an Opener for this session.
	Unlock(passphrase string) (Opener, error)

	// IsConfigured reports whether keys exist.
	IsConfigured() bool
}

// Opener decrypts sealed snapshots. The unlocked key lives in memory only.
type Opener interface {
	Open(r io.Reader, w io.Writer) error
}
