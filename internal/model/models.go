package model

import "time"

// TimestampLayout is the ISO-8601 form stored on every ledger record.
// Fixed width and always UTC, so lexicographic order equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in the ledger's timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a ledger timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// ComplianceStatus is the verdict frozen into a batch at creation time.
type ComplianceStatus string

const (
	StatusCompliant     ComplianceStatus = "COMPLIANT"
	StatusOutOfSeason   ComplianceStatus = "OUT_OF_SEASON"
	StatusProtectedZone ComplianceStatus = "PROTECTED_ZONE"
	StatusNoRules       ComplianceStatus = "NO_RULES"
)

// Valid reports whether s is one of the known statuses.
func (s ComplianceStatus) Valid() bool {
	switch s {
	case StatusCompliant, StatusOutOfSeason, StatusProtectedZone, StatusNoRules:
		return true
	}
	return false
}

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Farm describes where a batch was harvested. Opaque to the ledger rules.
type Farm struct {
	Name      string  `json:"name"`
	Notes     string  `json:"notes"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Weather describes conditions at harvest. Opaque to the ledger rules.
type Weather struct {
	Temperature string `json:"temperature"`
	Condition   string `json:"condition"`
}

// HarvestBatch is one block of the ledger: a single producer submission.
// Everything except SustainabilityBonus is immutable after creation, and
// ID is the SHA-256 digest of the hashed fields.
type HarvestBatch struct {
	ID                  string           `json:"_id"`
	BotanicalName       string           `json:"botanicalName"`
	Timestamp           string           `json:"timestamp"`
	PreviousHash        string           `json:"previousHash"`
	ComplianceStatus    ComplianceStatus `json:"complianceStatus"`
	Farm                Farm             `json:"farm"`
	Weather             Weather          `json:"weather"`
	SustainabilityBonus int64            `json:"sustainabilityBonus"`
}

// EventType is the kind of downstream supply chain event.
type EventType string

const (
	EventLabTest EventType = "LAB_TEST"
	EventMfgStep EventType = "MFG_STEP"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t == EventLabTest || t == EventMfgStep
}

// SupplyChainEvent is a write-once record attached to a batch by BatchID.
// Only the fields for its Type are populated.
type SupplyChainEvent struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batchId"`
	Timestamp string    `json:"timestamp"`
	Type      EventType `json:"type"`

	// LAB_TEST
	Analyst string `json:"analyst,omitempty"`
	Result  string `json:"result,omitempty"`

	// MFG_STEP
	Facility string `json:"facility,omitempty"`
	Action   string `json:"action,omitempty"`
}

// FullHistory is the provenance of one product: its harvest block and every
// later event in chronological order.
type FullHistory struct {
	Harvest HarvestBatch       `json:"harvest"`
	Events  []SupplyChainEvent `json:"events"`
}

// ScanReceipt records that a printed serial has already earned a reward.
type ScanReceipt struct {
	Serial    string `json:"serial"`
	BatchID   string `json:"batchId"`
	ScannedAt string `json:"scannedAt"`
}

// Operation is one mutating command recorded in the operation log.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
}
