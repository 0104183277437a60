package redis

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorline/did-audit/pkg/logger"
	"github.com/anchorline/did-audit/pkg/types"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test when no Redis server is reachable.
func requireRedis(t *testing.T) *RedisStore {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address: getTestRedisAddress(),
		DB:      15, // Use DB 15 for tests to avoid conflicts
		// Unique prefix per run so concurrent test runs don't collide
		KeyPrefix: fmt.Sprintf("test:%s:", uuid.New().String()[:8]),
	}

	rs, err := NewRedisStore(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}

	t.Cleanup(func() { _ = rs.Close() })
	return rs
}

func testEvent(subject string, seq int) *types.EventRecord {
	return &types.EventRecord{
		Subject:   subject,
		Kind:      types.OpDIDUpdate,
		Payload:   map[string]interface{}{"seq": float64(seq)},
		Signature: fmt.Sprintf("sig-%d", seq),
		Timestamp: fmt.Sprintf("2024-02-%02dT00:00:00Z", seq+1),
	}
}

func TestRedisStore_SaveAndListEvents(t *testing.T) {
	rs := requireRedis(t)

	require.NoError(t, rs.SaveEvent(testEvent("did:example:a", 1)))
	require.NoError(t, rs.SaveEvent(testEvent("did:example:a", 0)))
	require.NoError(t, rs.SaveEvent(testEvent("did:example:b", 2)))

	events, err := rs.ListEvents("did:example:a")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "sig-0", events[0].Signature)
	assert.Equal(t, "sig-1", events[1].Signature)

	all, err := rs.ListAllEvents()
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestRedisStore_Alerts(t *testing.T) {
	rs := requireRedis(t)

	alert := &types.IntegrityAlert{
		ID:           uuid.New().String(),
		Subject:      "did:example:a",
		ComputedRoot: "0xaa",
		ExpectedRoot: "0xbb",
		Reason:       "computed merkle root does not match anchored root",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, rs.SaveAlert(alert))

	alerts, err := rs.ListAlerts("did:example:a")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.ID, alerts[0].ID)

	other, err := rs.ListAlerts("did:example:other")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestRedisStore_Close(t *testing.T) {
	rs := requireRedis(t)

	require.NoError(t, rs.HealthCheck())
	require.NoError(t, rs.Close())
	require.NoError(t, rs.Close()) // idempotent

	require.Error(t, rs.HealthCheck())
	require.Error(t, rs.SaveEvent(testEvent("did:example:a", 0)))
}

func TestRedisStore_InvalidConfig(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisStore(nil, testLogger)
	require.Error(t, err)

	_, err = NewRedisStore(&RedisConfig{}, testLogger)
	require.Error(t, err)
}
