package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDSNAndSecret(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("POSTGRES_DSN", "postgres://localhost/clinics")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("SESSION_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 180*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.BookingTokenTTL)
}

func TestGetDuration(t *testing.T) {
	t.Setenv("X_DUR", "90")
	assert.Equal(t, 90*time.Second, getDuration("X_DUR", time.Minute))

	t.Setenv("X_DUR", "2h")
	assert.Equal(t, 2*time.Hour, getDuration("X_DUR", time.Minute))

	t.Setenv("X_DUR", "nope")
	assert.Equal(t, time.Minute, getDuration("X_DUR", time.Minute))
}

func TestGetBool(t *testing.T) {
	t.Setenv("X_BOOL", "true")
	assert.True(t, getBool("X_BOOL", false))

	t.Setenv("X_BOOL", "nah")
	assert.False(t, getBool("X_BOOL", false))
}

func TestParseRedisURL(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/clinics")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("REDIS_URL", "redis://user:pw@redis.internal:6380")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, "user", cfg.RedisUsername)
	assert.Equal(t, "pw", cfg.RedisPassword)
}
