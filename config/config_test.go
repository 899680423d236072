package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
database:
  driver: postgres
  dsn: postgres://localhost/bank?sslmode=disable
kafka:
  brokers: ["localhost:9092"]
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/bank?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)

	// Fields the file does not mention keep their defaults.
	assert.Equal(t, "ledger_notifications", cfg.Kafka.Topic)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_TOPIC", "events")

	cfg := config.Default()
	cfg.ApplyEnv()

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "events", cfg.Kafka.Topic)
}

func TestApplyEnv_IgnoresGarbagePort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	cfg := config.Default()
	cfg.ApplyEnv()
	assert.Equal(t, 8080, cfg.Server.Port)
}
