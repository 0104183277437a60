package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/anchorline/did-audit/pkg/store"
	"github.com/anchorline/did-audit/pkg/types"
)

// MemoryStore is an in-memory implementation of IAuditStore, intended
// for tests and one-shot CLI runs. All data is lost when the process
// exits. Thread-safe; data is deep-copied on the way in and out to
// prevent external mutation.
type MemoryStore struct {
	mu sync.RWMutex

	// events: StoreID -> record
	events map[string]*types.EventRecord

	// alerts: subject -> alerts in insertion order
	alerts map[string][]*types.IntegrityAlert

	closed bool
}

var _ store.IAuditStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*types.EventRecord),
		alerts: make(map[string][]*types.IntegrityAlert),
	}
}

// SaveEvent persists an event record, assigning a StoreID when missing.
func (m *MemoryStore) SaveEvent(record *types.EventRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil EventRecord")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}

	cp, err := copyEvent(record)
	if err != nil {
		return err
	}
	if cp.StoreID == "" {
		cp.StoreID = uuid.New().String()
	}
	m.events[cp.StoreID] = cp
	return nil
}

// ListEvents returns all records for a subject sorted by timestamp.
func (m *MemoryStore) ListEvents(subject string) ([]*types.EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}

	records := make([]*types.EventRecord, 0)
	for _, rec := range m.events {
		if rec.Subject != subject {
			continue
		}
		cp, err := copyEvent(rec)
		if err != nil {
			return nil, err
		}
		records = append(records, cp)
	}

	sortEvents(records)
	return records, nil
}

// ListAllEvents returns every stored record sorted by timestamp.
func (m *MemoryStore) ListAllEvents() ([]*types.EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}

	records := make([]*types.EventRecord, 0, len(m.events))
	for _, rec := range m.events {
		cp, err := copyEvent(rec)
		if err != nil {
			return nil, err
		}
		records = append(records, cp)
	}

	sortEvents(records)
	return records, nil
}

// SaveAlert persists an integrity alert.
func (m *MemoryStore) SaveAlert(alert *types.IntegrityAlert) error {
	if alert == nil {
		return fmt.Errorf("cannot save nil IntegrityAlert")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}

	cp := *alert
	m.alerts[alert.Subject] = append(m.alerts[alert.Subject], &cp)
	return nil
}

// ListAlerts returns all alerts for a subject sorted by creation time.
func (m *MemoryStore) ListAlerts(subject string) ([]*types.IntegrityAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("store is closed")
	}

	alerts := make([]*types.IntegrityAlert, 0, len(m.alerts[subject]))
	for _, alert := range m.alerts[subject] {
		cp := *alert
		alerts = append(alerts, &cp)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
	})
	return alerts, nil
}

// Close marks the store closed. Idempotent.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// HealthCheck reports whether the store is usable.
func (m *MemoryStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// copyEvent deep-copies a record via its JSON form; the payload map may
// be nested arbitrarily.
func copyEvent(rec *types.EventRecord) (*types.EventRecord, error) {
	data, err := store.MarshalEvent(rec)
	if err != nil {
		return nil, err
	}
	return store.UnmarshalEvent(data)
}

func sortEvents(records []*types.EventRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})
}
