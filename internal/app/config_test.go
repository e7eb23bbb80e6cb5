package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveroom/marketplace-backend/internal/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(logger.NewNop())

	require.NotEmpty(t, cfg.JWTSecretKey)
	assert.Equal(t, 30*24*time.Hour, cfg.AnonCartTTL)
	assert.Equal(t, 10*time.Second, cfg.CartOpTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.AllowOrigins)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "sekrit")
	t.Setenv("ANON_CART_TTL", "3600")
	t.Setenv("CART_OP_TIMEOUT", "5")
	t.Setenv("SESSION_IDLE_TTL", "600")
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://waveroom.app, https://staging.waveroom.app ,")

	cfg := LoadConfig(logger.NewNop())

	assert.Equal(t, "sekrit", cfg.JWTSecretKey)
	assert.Equal(t, time.Hour, cfg.AnonCartTTL)
	assert.Equal(t, 5*time.Second, cfg.CartOpTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://waveroom.app", "https://staging.waveroom.app"}, cfg.AllowOrigins)
}

func TestLoadConfigIgnoresUnparsableDurations(t *testing.T) {
	t.Setenv("CART_OP_TIMEOUT", "soon")

	cfg := LoadConfig(logger.NewNop())
	assert.Equal(t, 10*time.Second, cfg.CartOpTimeout)
}
