package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "gemini-3-pro-image-preview", cfg.GeminiModel)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
	assert.False(t, cfg.FailOnEmptyBatch)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
}

func TestLoadConfigWithoutAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	// The sweeper binary never talks to the provider, so loading config must
	// not fail on a missing key; the API binary validates it at boot.
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("SESSION_TTL_HOURS", "1")
	t.Setenv("FAIL_ON_EMPTY_BATCH", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.FailOnEmptyBatch)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}
