package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Distribuidora-api/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_LOCK_TIMEOUT_MS", "")
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "ORD", cfg.Ledger.OrderPrefix)
	assert.Equal(t, "PV", cfg.Ledger.VoucherPrefix)
	assert.Equal(t, "RET", cfg.Ledger.ReturnPrefix)
	assert.Equal(t, 7, cfg.Ledger.ReturnDaysLimit)
	assert.Equal(t, time.Hour, cfg.Ledger.ReconcileInterval)
	assert.False(t, cfg.Ledger.Autocorrect)
	assert.Equal(t, 5*time.Second, cfg.DB.LockTimeout)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_LOCK_TIMEOUT_MS", "250")
	t.Setenv("RETURN_DAYS_LIMIT", "10")
	t.Setenv("RECONCILE_AUTOCORRECT", "true")
	t.Setenv("RECONCILE_INTERVAL_MINUTES", "5")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.DB.LockTimeout)
	assert.Equal(t, 10, cfg.Ledger.ReturnDaysLimit)
	assert.True(t, cfg.Ledger.Autocorrect)
	assert.Equal(t, 5*time.Minute, cfg.Ledger.ReconcileInterval)
	assert.True(t, cfg.Redis.Enabled())
}

func TestDSN_EscapesPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/d?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
