package app

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dawa-pos/dawa/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "dev-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 12*time.Hour, cfg.JWTTTL)
	require.Equal(t, "UG", cfg.PhoneRegion)
	require.Equal(t, 30, cfg.ExpiryWindowDays)
	require.False(t, cfg.IsProduction())
}

func TestJobScheduleFollowsConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("EXPIRY_WINDOW_DAYS", "45")
	t.Setenv("IDEMPOTENCY_RETENTION", "720h")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	sched := cfg.JobSchedule()
	require.Equal(t, 45, sched.ExpiryWindowDays)
	require.Equal(t, 720*time.Hour, sched.IdempotencyRetention)

	task, err := sched.Task(jobs.TaskIdempotencyCleanup, "manual")
	require.NoError(t, err)
	require.JSONEq(t, `{"retention_hours":720}`, string(task.Payload()))
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigProductionSecretLength(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "at least 32 bytes")
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn"})
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
}
