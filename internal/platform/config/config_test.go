package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvRequiresSalt(t *testing.T) {
	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CERTPASS_SALT", "Linpack2025")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "png", cfg.RenderFormat)
	assert.Equal(t, 30*time.Second, cfg.ItemTimeout)
	assert.Equal(t, "certpass.audit", cfg.Kafka.Topic)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.PostgresURL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CERTPASS_SALT", "Linpack2025")
	t.Setenv("CERTPASS_ADDR", ":9090")
	t.Setenv("CERTPASS_BASE_URL", "https://verify.example.com")
	t.Setenv("CERTPASS_KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("CERTPASS_ITEM_TIMEOUT", "90s")
	t.Setenv("CERTPASS_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "https://verify.example.com", cfg.LinkBaseURL)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.ItemTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CERTPASS_SALT", "Linpack2025")
	t.Setenv("CERTPASS_ITEM_TIMEOUT", "soon")
	t.Setenv("CERTPASS_REDIS_POOL_SIZE", "many")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.ItemTimeout)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
}
