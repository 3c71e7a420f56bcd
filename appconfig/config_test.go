package appconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDBURL)
	assert.Equal(t, "chatbot_platform", cfg.MongoDBDatabase)
	assert.Equal(t, "8080", cfg.GatewayPort)
	assert.Equal(t, "session_id", cfg.SessionCookieName)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.LockoutThreshold)
	assert.Equal(t, 10*time.Minute, cfg.LockoutWindow)
	assert.Equal(t, 5*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, int64(80*1024), cfg.MaxBodyBytes)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("GATEWAY_PORT", "9999")
	t.Setenv("DEFAULT_LLM_MODEL_HIGH", "gpt-5")
	t.Setenv("LOCKOUT_DURATION_MINUTES", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.GatewayPort)
	assert.Equal(t, "gpt-5", cfg.DefaultLLM.ModelHigh)
	assert.Equal(t, 7*time.Minute, cfg.LockoutDuration)
}
