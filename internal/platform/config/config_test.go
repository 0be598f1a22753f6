package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PASSPORT_JWT_SIGNING_KEY", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Workflow.SuggestedMaxLoves)
	assert.Equal(t, 4, cfg.Workflow.SuggestedMaxHates)
	assert.Equal(t, 3, cfg.Workflow.CASAttempts)
	assert.Equal(t, 2*time.Second, cfg.Workflow.StoreTimeout)
	assert.Equal(t, 5*time.Second, cfg.Workflow.LockTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PASSPORT_JWT_SIGNING_KEY", "secret")
	t.Setenv("PASSPORT_STORE", "Redis")
	t.Setenv("PASSPORT_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PASSPORT_KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("PASSPORT_LOCK_TIMEOUT", "750ms")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Workflow.LockTimeout)
}

func TestFromEnvRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"missing signing key", map[string]string{}, "PASSPORT_JWT_SIGNING_KEY"},
		{"bad duration", map[string]string{"PASSPORT_JWT_SIGNING_KEY": "k", "PASSPORT_STORE_TIMEOUT": "soon"}, "PASSPORT_STORE_TIMEOUT"},
		{"postgres without dsn", map[string]string{"PASSPORT_JWT_SIGNING_KEY": "k", "PASSPORT_STORE": "postgres"}, "PASSPORT_POSTGRES_DSN"},
		{"unknown backend", map[string]string{"PASSPORT_JWT_SIGNING_KEY": "k", "PASSPORT_STORE": "mongo"}, "unknown store backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PASSPORT_JWT_SIGNING_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
