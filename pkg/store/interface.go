package store

import "github.com/anchorline/did-audit/pkg/types"

// IAuditStore defines persistence for attested event records and the
// integrity alerts raised against them. All implementations must be
// thread-safe; the auditor and CLI may call concurrently.
//
// Absence is never an error: listing a subject with no data returns an
// empty slice. Errors are reserved for storage failures.
type IAuditStore interface {
	// SaveEvent persists an event record. A record without a StoreID is
	// assigned one; saving the same StoreID again overwrites (idempotent).
	SaveEvent(record *types.EventRecord) error

	// ListEvents returns all event records for a subject sorted
	// ascending by timestamp.
	ListEvents(subject string) ([]*types.EventRecord, error)

	// ListAllEvents returns every stored event record sorted ascending
	// by timestamp.
	ListAllEvents() ([]*types.EventRecord, error)

	// SaveAlert persists an integrity alert.
	SaveAlert(alert *types.IntegrityAlert) error

	// ListAlerts returns all alerts recorded against a subject sorted
	// ascending by creation time.
	ListAlerts(subject string) ([]*types.IntegrityAlert, error)

	// Close releases underlying resources. Idempotent.
	Close() error

	// HealthCheck verifies the store is operational.
	HealthCheck() error
}
