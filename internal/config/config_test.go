package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/laptop-store/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_PASSWORD", "123456")
	t.Setenv("DB_NAME", "laptop_store")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "5432", cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.Equal(t, 30*time.Minute, cfg.Postgres.MaxConnLifetime)
	assert.Equal(t, 5*time.Second, cfg.Postgres.LockTimeout)
	assert.Equal(t, "product-index", cfg.Kafka.ProductTopic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=123456 dbname=laptop_store sslmode=disable", cfg.Postgres.DSN())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")

	cfg, err := config.Load("")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DB_HOST is required")
	assert.Contains(t, err.Error(), "DB_NAME is required")
}

func TestLoad_EnvFile(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_BROKERS", "")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT=9090\nDB_LOCK_TIMEOUT=2s\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("APP_PORT")
		os.Unsetenv("DB_LOCK_TIMEOUT")
	})

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 2*time.Second, cfg.Postgres.LockTimeout)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	setRequired(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestValidate_PoolBounds(t *testing.T) {
	cfg := config.Config{Postgres: config.PostgresConfig{
		Host: "h", User: "u", DBName: "d", MaxConns: 2, MinConns: 5,
	}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MIN_CONNS (5) exceeds DB_MAX_CONNS (2)")
}
