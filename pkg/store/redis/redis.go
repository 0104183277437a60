package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/anchorline/did-audit/pkg/store"
	"github.com/anchorline/did-audit/pkg/types"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixEvent       = "audit:event:"
	keyPrefixAlert       = "audit:alert:"
	keySchemaVersion     = "audit:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Index sets for listing (Redis doesn't support prefix iteration natively)
	keySetAllEvents     = "audit:events:index"
	keySetSubjectEvents = "audit:events:subject:"
	keySetSubjectAlerts = "audit:alerts:subject:"
)

const opTimeout = 5 * time.Second

// RedisStore is a distributed IAuditStore implementation suitable for
// multi-instance deployments.
type RedisStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ store.IAuditStore = (*RedisStore)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys, for
	// multi-tenant setups.
	KeyPrefix string
}

// NewRedisStore creates a new Redis-backed audit store and verifies
// connectivity with a ping.
func NewRedisStore(cfg *RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	rs := &RedisStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rs.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis audit store initialized", "address", cfg.Address, "db", cfg.DB)

	return rs, nil
}

func (r *RedisStore) key(k string) string {
	return r.keyPrefix + k
}

// initSchema sets or validates the schema version key
func (r *RedisStore) initSchema(ctx context.Context) error {
	existing, err := r.client.Get(ctx, r.key(keySchemaVersion)).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, r.key(keySchemaVersion), currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return err
	}
	if existing != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
	}
	return nil
}

// SaveEvent persists an event record, assigning a StoreID when missing.
func (r *RedisStore) SaveEvent(record *types.EventRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil EventRecord")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("store is closed")
	}

	if record.StoreID == "" {
		record.StoreID = uuid.New().String()
	}

	data, err := store.MarshalEvent(record)
	if err != nil {
		return fmt.Errorf("failed to marshal EventRecord: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(keyPrefixEvent+record.StoreID), data, 0)
	pipe.SAdd(ctx, r.key(keySetAllEvents), record.StoreID)
	pipe.SAdd(ctx, r.key(keySetSubjectEvents+record.Subject), record.StoreID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save EventRecord: %w", err)
	}
	return nil
}

// ListEvents returns all records for a subject sorted by timestamp.
func (r *RedisStore) ListEvents(subject string) ([]*types.EventRecord, error) {
	return r.listEventsBySet(r.key(keySetSubjectEvents + subject))
}

// ListAllEvents returns every stored record sorted by timestamp.
func (r *RedisStore) ListAllEvents() ([]*types.EventRecord, error) {
	return r.listEventsBySet(r.key(keySetAllEvents))
}

func (r *RedisStore) listEventsBySet(setKey string) ([]*types.EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ids, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list event index: %w", err)
	}

	records := make([]*types.EventRecord, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.Get(ctx, r.key(keyPrefixEvent+id)).Bytes()
		if err == redis.Nil {
			continue // index entry without a value, skip
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load EventRecord %s: %w", id, err)
		}

		rec, err := store.UnmarshalEvent(data)
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal EventRecord, skipping",
				"id", id, "error", err)
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})

	return records, nil
}

// SaveAlert persists an integrity alert.
func (r *RedisStore) SaveAlert(alert *types.IntegrityAlert) error {
	if alert == nil {
		return fmt.Errorf("cannot save nil IntegrityAlert")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("store is closed")
	}

	data, err := store.MarshalAlert(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal IntegrityAlert: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(keyPrefixAlert+alert.ID), data, 0)
	pipe.SAdd(ctx, r.key(keySetSubjectAlerts+alert.Subject), alert.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save IntegrityAlert: %w", err)
	}
	return nil
}

// ListAlerts returns all alerts for a subject sorted by creation time.
func (r *RedisStore) ListAlerts(subject string) ([]*types.IntegrityAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ids, err := r.client.SMembers(ctx, r.key(keySetSubjectAlerts+subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list alert index: %w", err)
	}

	alerts := make([]*types.IntegrityAlert, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.Get(ctx, r.key(keyPrefixAlert+id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load IntegrityAlert %s: %w", id, err)
		}

		alert, err := store.UnmarshalAlert(data)
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal IntegrityAlert, skipping",
				"id", id, "error", err)
			continue
		}
		alerts = append(alerts, alert)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
	})

	return alerts, nil
}

// Close closes the Redis client. Idempotent.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis audit store closed")
	return nil
}

// HealthCheck verifies the store is reachable.
func (r *RedisStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.client.Ping(ctx).Err()
}
