// Package encryption seals ledger snapshots before they are archived.
package encryption

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"herbtrace/internal/config"
	"herbtrace/internal/ledger"
)

// AgeSealer seals snapshots to an X25519 recipient. The recipient file is
// plaintext; the identity file is itself age-encrypted under a scrypt
// passphrase, so a host can seal without being able to open.
type AgeSealer struct {
	recipientPath string
	identityPath  string
}

var _ ledger.Sealer = (*AgeSealer)(nil)

// NewAgeSealer returns a sealer using the key paths in cfg.
func NewAgeSealer(cfg config.EncryptionConfig) *AgeSealer {
	return &AgeSealer{
		recipientPath: cfg.PublicKeyPath,
		identityPath:  cfg.PrivateKeyPath,
	}
}

// Setup generates a key pair and writes both halves.
func (s *AgeSealer) Setup(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating identity: %w", err)
	}

	for _, p := range []string{s.recipientPath, s.identityPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}

	if err := os.WriteFile(s.recipientPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing recipient: %w", err)
	}

	wrap, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	var wrapped bytes.Buffer
	w, err := age.Encrypt(&wrapped, wrap)
	if err != nil {
		return fmt.Errorf("wrapping identity: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return fmt.Errorf("wrapping identity: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing wrapped identity: %w", err)
	}

	if err := os.WriteFile(s.identityPath, wrapped.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	return nil
}

// Seal encrypts r into w for the stored recipient.
func (s *AgeSealer) Seal(r io.Reader, w io.Writer) error {
	recipient, err := s.recipient()
	if err != nil {
		return err
	}

	sw, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("starting seal: %w", err)
	}
	if _, err := io.Copy(sw, r); err != nil {
		return fmt.Errorf("sealing: %w", err)
	}
	if err := sw.Close(); err != nil {
		return fmt.Errorf("finalizing seal: %w", err)
	}
	return nil
}

// Unlock unwraps the identity with passphrase.
func (s *AgeSealer) Unlock(passphrase string) (ledger.Opener, error) {
	wrapped, err := os.ReadFile(s.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}

	scrypt, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	plain, err := age.Decrypt(bytes.NewReader(wrapped), scrypt)
	if err != nil {
		return nil, fmt.Errorf("unwrapping identity: %w", err)
	}

	identities, err := age.ParseIdentities(plain)
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("identity file holds no identities")
	}

	return &AgeOpener{identity: identities[0]}, nil
}

// IsConfigured reports whether both key files exist.
func (s *AgeSealer) IsConfigured() bool {
	for _, p := range []string{s.recipientPath, s.identityPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

func (s *AgeSealer) recipient() (age.Recipient, error) {
	data, err := os.ReadFile(s.recipientPath)
	if err != nil {
		return nil, fmt.Errorf("reading recipient: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing recipient: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("recipient file holds no recipients")
	}
	return recipients[0], nil
}

// AgeOpener holds an unwrapped identity for the rest of a session.
type AgeOpener struct {
	identity age.Identity
}

var _ ledger.Opener = (*AgeOpener)(nil)

// Open decrypts a sealed snapshot from r into w.
func (o *AgeOpener) Open(r io.Reader, w io.Writer) error {
	pr, err := age.Decrypt(r, o.identity)
	if err != nil {
		return fmt.Errorf("opening sealed data: %w", err)
	}
	if _, err := io.Copy(w, pr); err != nil {
		return fmt.Errorf("reading sealed data: %w", err)
	}
	return nil
}
