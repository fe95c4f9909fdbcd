// Package serial encodes and decodes the per-unit product codes printed on
// labels. A serial carries only an 8-character prefix of its batch id.
package serial

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Tag starts every product serial.
	Tag = "PROD-"
	// PrefixLen is how much of the batch id a serial carries.
	PrefixLen = 8
	// MaxUnit is the largest unit number that fits the 4-digit suffix.
	MaxUnit = 9999
)

var (
	// ErrNotProductCode means the scanned text is not a product serial at all.
	ErrNotProductCode = errors.New("not a product code")
	// ErrMalformed means the serial has the tag but no batch segment.
	ErrMalformed = errors.New("malformed product code")
)

// Encode returns the serial for unit of batchID.
func Encode(batchID string, unit int) (string, error) {
	if len(batchID) < PrefixLen {
		return "", fmt.Errorf("batch id %q shorter than %d characters", batchID, PrefixLen)
	}
	if unit < 1 || unit > MaxUnit {
		return "", fmt.Errorf("unit %d out of range 1-%d", unit, MaxUnit)
	}
	return fmt.Sprintf("%s%s-%04d", Tag, batchID[:PrefixLen], unit), nil
}

// Generate returns serials for units 1..count.
func Generate(batchID string, count int) ([]string, error) {
	if count < 0 || count > MaxUnit {
		return nil, fmt.Errorf("label count %d out of range 0-%d", count, MaxUnit)
	}
	serials := make([]string, 0, count)
	for unit := 1; unit <= count; unit++ {
		s, err := Encode(batchID, unit)
		if err != nil {
			return nil, err
		}
		serials = append(serials, s)
	}
	return serials, nil
}

// Decode extracts the batch id prefix from s.
func Decode(s string) (string, error) {
	if !strings.HasPrefix(s, Tag) {
		return "", ErrNotProductCode
	}
	parts := strings.Split(s, "-")
	if parts[1] == "" {
		return "", ErrMalformed
	}
	return parts[1], nil
}
