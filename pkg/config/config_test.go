package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStoreBackend(t *testing.T) {
	testCases := []struct {
		input   string
		want    StoreBackend
		wantErr bool
	}{
		{"memory", StoreBackendMemory, false},
		{"badger", StoreBackendBadger, false},
		{"redis", StoreBackendRedis, false},
		{"", "", true},
		{"bolt", "", true},
		{"BADGER", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseStoreBackend(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAuditConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     AuditConfig
		wantErr bool
	}{
		{"memory needs nothing", AuditConfig{StoreBackend: StoreBackendMemory}, false},
		{"badger with data dir", AuditConfig{StoreBackend: StoreBackendBadger, DataDir: "/tmp/audit"}, false},
		{"badger without data dir", AuditConfig{StoreBackend: StoreBackendBadger}, true},
		{"redis with address", AuditConfig{StoreBackend: StoreBackendRedis, RedisAddress: "localhost:6379"}, false},
		{"redis without address", AuditConfig{StoreBackend: StoreBackendRedis}, true},
		{"redis db out of range", AuditConfig{StoreBackend: StoreBackendRedis, RedisAddress: "localhost:6379", RedisDB: 16}, true},
		{"unknown backend", AuditConfig{StoreBackend: "bolt"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
