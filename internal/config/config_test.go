package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"DATABASE_URL", "STORE_DRIVER", "JWT_SECRET", "PORT", "MAX_INSTALLMENTS",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "IDEMPOTENCY_CLEANUP_INTERVAL_S",
}

// clearEnv unsets keys for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 120, cfg.MaxInstallments)
	assert.Equal(t, "ledger.entries", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 3600, cfg.IdempotencyCleanupIntervalS)
}

func TestLoad_KafkaBrokers(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"STORE_DRIVER": "memory"}},
		{"postgres without url", map[string]string{"JWT_SECRET": "s"}},
		{"unknown driver", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "sqlite"}},
		{"max installments too low", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "memory", "MAX_INSTALLMENTS": "1"}},
		{"cleanup interval zero", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "memory", "IDEMPOTENCY_CLEANUP_INTERVAL_S": "0"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
