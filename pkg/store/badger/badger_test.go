package badger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorline/did-audit/pkg/logger"
	"github.com/anchorline/did-audit/pkg/types"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bs, err := NewBadgerStore(tmpDir, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	return bs
}

func testEvent(subject string, seq int) *types.EventRecord {
	return &types.EventRecord{
		Subject:   subject,
		Kind:      types.OpKeyRotation,
		Payload:   map[string]interface{}{"seq": float64(seq)},
		Signature: fmt.Sprintf("sig-%d", seq),
		Timestamp: fmt.Sprintf("2024-02-%02dT00:00:00Z", seq+1),
	}
}

func TestBadgerStore_SaveAndListEvents(t *testing.T) {
	bs := newTestStore(t)

	require.NoError(t, bs.SaveEvent(testEvent("did:example:a", 1)))
	require.NoError(t, bs.SaveEvent(testEvent("did:example:a", 0)))
	require.NoError(t, bs.SaveEvent(testEvent("did:example:b", 2)))

	events, err := bs.ListEvents("did:example:a")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "sig-0", events[0].Signature)
	assert.Equal(t, "sig-1", events[1].Signature)

	all, err := bs.ListAllEvents()
	require.NoError(t, err)
	require.Len(t, all, 3)

	// StoreIDs assigned on save
	for _, rec := range all {
		assert.NotEmpty(t, rec.StoreID)
	}
}

func TestBadgerStore_ListEventsEmptySubject(t *testing.T) {
	bs := newTestStore(t)

	events, err := bs.ListEvents("did:example:unknown")
	require.NoError(t, err)
	require.NotNil(t, events)
	require.Empty(t, events)
}

func TestBadgerStore_Alerts(t *testing.T) {
	bs := newTestStore(t)

	alert := &types.IntegrityAlert{
		ID:           "alert-1",
		Subject:      "did:example:a",
		BatchID:      "batch-9",
		TxHash:       "0xabc",
		ComputedRoot: "0xaa",
		ExpectedRoot: "0xbb",
		Reason:       "computed merkle root does not match anchored root",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, bs.SaveAlert(alert))

	alerts, err := bs.ListAlerts("did:example:a")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.ID, alerts[0].ID)
	assert.Equal(t, alert.BatchID, alerts[0].BatchID)
	assert.Equal(t, alert.ExpectedRoot, alerts[0].ExpectedRoot)
	assert.True(t, alert.CreatedAt.Equal(alerts[0].CreatedAt))

	other, err := bs.ListAlerts("did:example:other")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bs, err := NewBadgerStore(tmpDir, testLogger)
	require.NoError(t, err)
	require.NoError(t, bs.SaveEvent(testEvent("did:example:a", 0)))
	require.NoError(t, bs.Close())

	reopened, err := NewBadgerStore(tmpDir, testLogger)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	events, err := reopened.ListEvents("did:example:a")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestBadgerStore_NilInputs(t *testing.T) {
	bs := newTestStore(t)

	require.Error(t, bs.SaveEvent(nil))
	require.Error(t, bs.SaveAlert(nil))
}

func TestBadgerStore_Close(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bs, err := NewBadgerStore(tmpDir, testLogger)
	require.NoError(t, err)

	require.NoError(t, bs.HealthCheck())
	require.NoError(t, bs.Close())
	require.NoError(t, bs.Close()) // idempotent

	require.Error(t, bs.HealthCheck())
	require.Error(t, bs.SaveEvent(testEvent("did:example:a", 0)))
}
