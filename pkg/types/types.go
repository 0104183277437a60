package types

import "time"

// Operation kinds recorded against a DID subject.
const (
	OpDIDCreation     = "did_creation"
	OpDIDUpdate       = "did_update"
	OpKeyRotation     = "key_rotation"
	OpOwnershipChange = "ownership_change"
)

// EventRecord is one attested operation on a DID subject, produced by an
// external attestation store and never mutated once hashed.
//
// StoreID is assigned by whichever store persisted the record and is
// excluded from the content hash, so the same logical event hashes
// identically regardless of which store it came from.
type EventRecord struct {
	StoreID   string                 `json:"id,omitempty"`
	Subject   string                 `json:"subject"`
	Kind      string                 `json:"kind"`
	Payload   map[string]interface{} `json:"payload"`
	Signature string                 `json:"signature"`
	Timestamp string                 `json:"timestamp"` // ISO-8601, UTC
}

// IntegrityAlert is the durable record raised against a subject when an
// audit of an anchored batch fails.
type IntegrityAlert struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	BatchID      string    `json:"batchId,omitempty"`
	TxHash       string    `json:"txHash,omitempty"`
	ComputedRoot string    `json:"computedRoot"`
	ExpectedRoot string    `json:"expectedRoot"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"createdAt"`
}
