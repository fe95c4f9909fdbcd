// Package chain builds and verifies hash-linked ledger blocks.
package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"herbtrace/internal/compliance"
	"herbtrace/internal/model"
)

// GenesisHash is the predecessor of the first block in a ledger.
var GenesisHash = strings.Repeat("0", 64)

// BlockContext is the caller-supplied part of a new block.
type BlockContext struct {
	Timestamp time.Time
	Farm      model.Farm
	Weather   model.Weather
}

// canonicalBlock fixes the field order of the hash input. The bonus and the id
// are deliberately absent.
type canonicalBlock struct {
	BotanicalName    string                 `json:"botanicalName"`
	Timestamp        string                 `json:"timestamp"`
	PreviousHash     string                 `json:"previousHash"`
	ComplianceStatus model.ComplianceStatus `json:"complianceStatus"`
	Farm             model.Farm             `json:"farm"`
	Weather          model.Weather          `json:"weather"`
}

// Canonical returns the bytes that are hashed to produce b's id: compact JSON
// in fixed field order, with &, < and > left unescaped.
func Canonical(b *model.HarvestBatch) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(canonicalBlock{
		BotanicalName:    b.BotanicalName,
		Timestamp:        b.Timestamp,
		PreviousHash:     b.PreviousHash,
		ComplianceStatus: b.ComplianceStatus,
		Farm:             b.Farm,
		Weather:          b.Weather,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding canonical block: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Digest returns the lowercase hex SHA-256 of b's canonical content.
func Digest(b *model.HarvestBatch) (string, error) {
	data, err := Canonical(b)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// BuildBlock creates a new block linked to previousHash. It does not look at
// verdict.IsCompliant; the status is recorded as given.
func BuildBlock(plant string, verdict compliance.Verdict, previousHash string, bc BlockContext) (*model.HarvestBatch, error) {
	if plant == "" {
		return nil, fmt.Errorf("building block: empty plant name")
	}
	if previousHash == "" {
		return nil, fmt.Errorf("building block: empty previous hash (use the genesis hash for the first block)")
	}
	if !verdict.Status.Valid() {
		return nil, fmt.Errorf("building block: unknown compliance status %q", verdict.Status)
	}

	b := &model.HarvestBatch{
		BotanicalName:    plant,
		Timestamp:        model.FormatTimestamp(bc.Timestamp),
		PreviousHash:     previousHash,
		ComplianceStatus: verdict.Status,
		Farm:             bc.Farm,
		Weather:          bc.Weather,
	}

	id, err := Digest(b)
	if err != nil {
		return nil, fmt.Errorf("building block: %w", err)
	}
	b.ID = id
	b.SustainabilityBonus = 0
	return b, nil
}

// VerifyBatch reports whether b's id matches its content.
func VerifyBatch(b *model.HarvestBatch) (bool, error) {
	id, err := Digest(b)
	if err != nil {
		return false, err
	}
	return id == b.ID, nil
}
