package ledger

import (
	"errors"

	"herbtrace/internal/compliance"
)

var (
	// ErrNotFound is returned when a serial or batch reference matches no batch.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSerial is returned for scanned text that is not a usable product
	// serial. It is terminal: retrying the same input cannot succeed.
	ErrInvalidSerial = errors.New("invalid serial")

	// ErrNotCompliant is wrapped by ComplianceError.
	ErrNotCompliant = errors.New("harvest not compliant")

	// ErrConflict is returned by a Store when a write lost a lock race.
	// The operation may be retried.
	ErrConflict = errors.New("write conflict")

	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// ComplianceError blocks a submission and carries the verdict that blocked it.
type ComplianceError struct {
	Verdict compliance.Verdict
}

func (e *ComplianceError) Error() string {
	return e.Verdict.Message
}

func (e *ComplianceError) Unwrap() error {
	return ErrNotCompliant
}
