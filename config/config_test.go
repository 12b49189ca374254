package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	cfg := LoadEnv()
	require.NotNil(t, cfg)

	assert.Equal(t, "omnipos_inventory", cfg.Postgres.DBName)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "orders.events", cfg.Kafka.OrdersTopic)
	assert.Equal(t, 5, cfg.Stock.LockTTLSeconds)
	assert.True(t, cfg.Logger.DisableStacktrace)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "25")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("MIGRATE_ON_START", "false")

	cfg := LoadEnv()

	assert.Equal(t, "development", cfg.Server.AppEnv)
	assert.Equal(t, 25, cfg.Postgres.MaxOpenConns)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Postgres.MigrateOnStart)
}

func TestSplitListDropsBlanks(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList("a,,b,"))
}
