package config

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for audit configuration
const (
	EnvAuditStoreBackend = "AUDIT_STORE_BACKEND"
	EnvAuditDataDir      = "AUDIT_DATA_DIR"
	EnvAuditRedisAddress = "AUDIT_REDIS_ADDRESS"
	EnvAuditRedisDB      = "AUDIT_REDIS_DB"
	EnvAuditVerbose      = "AUDIT_VERBOSE"
)

// StoreBackend selects the audit store implementation.
type StoreBackend string

func (s StoreBackend) String() string {
	return string(s)
}

const (
	StoreBackendMemory StoreBackend = "memory"
	StoreBackendBadger StoreBackend = "badger"
	StoreBackendRedis  StoreBackend = "redis"
)

// ParseStoreBackend validates a backend name.
func ParseStoreBackend(s string) (StoreBackend, error) {
	switch StoreBackend(s) {
	case StoreBackendMemory:
		return StoreBackendMemory, nil
	case StoreBackendBadger:
		return StoreBackendBadger, nil
	case StoreBackendRedis:
		return StoreBackendRedis, nil
	default:
		return "", fmt.Errorf("unsupported store backend: %s (supported: %s, %s, %s)",
			s, StoreBackendMemory, StoreBackendBadger, StoreBackendRedis)
	}
}

// AuditConfig is the complete configuration for the audit CLI and the
// auditor service.
type AuditConfig struct {
	// Store selection
	StoreBackend StoreBackend `json:"store_backend"`
	DataDir      string       `json:"data_dir"`      // required for badger
	RedisAddress string       `json:"redis_address"` // required for redis
	RedisDB      int          `json:"redis_db"`

	// Operational settings
	Verbose bool `json:"verbose"`
}

// Validate validates the configuration.
func (c *AuditConfig) Validate() error {
	var allErrors field.ErrorList

	if _, err := ParseStoreBackend(string(c.StoreBackend)); err != nil {
		allErrors = append(allErrors, field.NotSupported(
			field.NewPath("storeBackend"), c.StoreBackend,
			[]string{string(StoreBackendMemory), string(StoreBackendBadger), string(StoreBackendRedis)}))
	}

	if c.StoreBackend == StoreBackendBadger && c.DataDir == "" {
		allErrors = append(allErrors, field.Required(
			field.NewPath("dataDir"), "data dir is required for the badger backend"))
	}

	if c.StoreBackend == StoreBackendRedis {
		if c.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(
				field.NewPath("redisAddress"), "redis address is required for the redis backend"))
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(
				field.NewPath("redisDB"), c.RedisDB, "redis DB must be between 0 and 15"))
		}
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
