package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceWindow)
	assert.False(t, cfg.DBConfig.Enabled())
	assert.False(t, cfg.KafkaConfig.Enabled())
	assert.False(t, cfg.RedisConfig.Enabled())
	assert.Empty(t, cfg.AdminToken)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("QUOTE_SERVICE_PORT", "9090")
	t.Setenv("QUOTE_DEBOUNCE_WINDOW", "250ms")
	t.Setenv("QUOTE_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("QUOTE_CORS_ORIGINS", "https://quote.example.com")
	t.Setenv("QUOTE_REDIS_ADDR", "localhost:6379")
	t.Setenv("QUOTE_LOOKUP_BURST", "5")
	t.Setenv("QUOTE_ADMIN_TOKEN", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, []string{"https://quote.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.RedisConfig.Enabled())
	assert.Equal(t, 5, cfg.LookupBurst)
	assert.Equal(t, "s3cret", cfg.AdminToken)
}
