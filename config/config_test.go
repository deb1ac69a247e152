package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/drawbot/config"
	"github.com/alejandrodnm/drawbot/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_SampleFile(t *testing.T) {
	cfg, err := config.Load("config.yaml")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultWeights(), cfg.Optimizer.Weights)
	assert.Equal(t, "America/Caracas", cfg.Optimizer.Timezone)
	assert.Equal(t, 5*time.Minute, cfg.LeadTime())
	assert.Equal(t, "9108", cfg.Metrics.Port)
	assert.Equal(t, 15, cfg.Report.Limit)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, domain.DefaultWeights(), cfg.Optimizer.Weights)
	assert.Equal(t, 70.0, cfg.Optimizer.DefaultPayoutPct)
	assert.Equal(t, 30, cfg.Optimizer.DaysCap)
	assert.Equal(t, "0 * * * * *", cfg.Scheduler.Cron)
	assert.Equal(t, 30*time.Second, cfg.EventTimeout())
	assert.Equal(t, time.Minute, cfg.LockTTL())
	assert.Equal(t, "drawbot.db", cfg.Storage.DSN)
	assert.Empty(t, cfg.Lock.RedisAddr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DRAWBOT_DSN", ":memory:")
	t.Setenv("DRAWBOT_REDIS_ADDR", "redis:6379")
	t.Setenv("DRAWBOT_TIMEZONE", "UTC")

	cfg, err := config.Load(writeConfig(t, "storage:\n  dsn: other.db\n"))
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "redis:6379", cfg.Lock.RedisAddr)
	assert.Equal(t, "UTC", cfg.Optimizer.Timezone)
}

func TestLoad_RejectsBadWeights(t *testing.T) {
	body := `
optimizer:
  weights:
    ticket_count: 0.5
    days_since_win: 0.5
    sequential: 0.5
`
	_, err := config.Load(writeConfig(t, body))
	require.ErrorIs(t, err, domain.ErrInvalidWeights)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = config.Load(writeConfig(t, "optimizer: [not, a, map]\n"))
	require.Error(t, err)
}
