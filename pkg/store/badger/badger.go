package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anchorline/did-audit/pkg/store"
	"github.com/anchorline/did-audit/pkg/types"
)

// Key prefixes for namespacing
const (
	keyPrefixEvent       = "event:"
	keyPrefixAlert       = "alert:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerStore is a durable, disk-based IAuditStore implementation.
type BadgerStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ store.IAuditStore = (*BadgerStore)(nil)

// NewBadgerStore opens a badger-backed audit store at dataPath with
// SyncWrites enabled and starts a background value-log GC goroutine.
func NewBadgerStore(dataPath string, logger *zap.Logger) (*BadgerStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bs := &BadgerStore{
		db:     db,
		logger: logger,
	}

	if err := bs.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(ctx)

	logger.Sugar().Infow("Badger audit store initialized", "path", absPath)

	return bs, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerStore) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

// runGC runs periodic value-log garbage collection in the background
func (b *BadgerStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// SaveEvent persists an event record, assigning a StoreID when missing.
func (b *BadgerStore) SaveEvent(record *types.EventRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil EventRecord")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("store is closed")
	}

	if record.StoreID == "" {
		record.StoreID = uuid.New().String()
	}

	data, err := store.MarshalEvent(record)
	if err != nil {
		return fmt.Errorf("failed to marshal EventRecord: %w", err)
	}

	key := fmt.Sprintf("%s%s:%s", keyPrefixEvent, record.Subject, record.StoreID)
	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// ListEvents returns all records for a subject sorted by timestamp.
func (b *BadgerStore) ListEvents(subject string) ([]*types.EventRecord, error) {
	return b.listEvents(fmt.Sprintf("%s%s:", keyPrefixEvent, subject))
}

// ListAllEvents returns every stored record sorted by timestamp.
func (b *BadgerStore) ListAllEvents() ([]*types.EventRecord, error) {
	return b.listEvents(keyPrefixEvent)
}

func (b *BadgerStore) listEvents(prefix string) ([]*types.EventRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("store is closed")
	}

	records := make([]*types.EventRecord, 0)

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var data []byte
			err := item.Value(func(val []byte) error {
				data = append([]byte{}, val...) // Copy value
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			rec, err := store.UnmarshalEvent(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal EventRecord, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}

			records = append(records, rec)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list EventRecords: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})

	return records, nil
}

// SaveAlert persists an integrity alert.
func (b *BadgerStore) SaveAlert(alert *types.IntegrityAlert) error {
	if alert == nil {
		return fmt.Errorf("cannot save nil IntegrityAlert")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("store is closed")
	}

	data, err := store.MarshalAlert(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal IntegrityAlert: %w", err)
	}

	key := fmt.Sprintf("%s%s:%s", keyPrefixAlert, alert.Subject, alert.ID)
	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// ListAlerts returns all alerts for a subject sorted by creation time.
func (b *BadgerStore) ListAlerts(subject string) ([]*types.IntegrityAlert, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("store is closed")
	}

	alerts := make([]*types.IntegrityAlert, 0)

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(fmt.Sprintf("%s%s:", keyPrefixAlert, subject))

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var data []byte
			err := item.Value(func(val []byte) error {
				data = append([]byte{}, val...) // Copy value
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			alert, err := store.UnmarshalAlert(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal IntegrityAlert, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}

			alerts = append(alerts, alert)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list IntegrityAlerts: %w", err)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
	})

	return alerts, nil
}

// Close stops the GC goroutine and closes the database. Idempotent.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger audit store closed")
	return nil
}

// HealthCheck verifies the store is operational.
func (b *BadgerStore) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("store is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
