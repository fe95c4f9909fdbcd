package encryption

import (
	"fmt"

	"herbtrace/internal/config"
	"herbtrace/internal/ledger"
)

// NewSealerFromConfig returns the sealer named by cfg.Type. Empty means age.
func NewSealerFromConfig(cfg config.EncryptionConfig) (ledger.Sealer, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeSealer(cfg), nil
	case "none":
		return NoneSealer{}, nil
	case "test":
		return NewTestSealer(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
