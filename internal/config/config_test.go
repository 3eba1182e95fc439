package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ImageKeyIsOptional(t *testing.T) {
	t.Setenv("AI_API_KEY", "test-ai-key")
	t.Setenv("IMAGE_API_URL", "http://localhost:7000/generate")
	t.Setenv("IMAGE_API_KEY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err, "missing image key must not prevent startup")

	assert.Equal(t, "test-ai-key", cfg.AI.APIKey)
	assert.Empty(t, cfg.Image.APIKey)
	assert.Equal(t, "http://localhost:7000/generate", cfg.Image.BaseURL)
}

func TestLoadConfig_AIKeyIsRequired(t *testing.T) {
	t.Setenv("AI_API_KEY", "")
	t.Setenv("IMAGE_API_URL", "http://localhost:7000/generate")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AI_API_KEY", "test-ai-key")
	t.Setenv("IMAGE_API_URL", "http://localhost:7000/generate")
	t.Setenv("IMAGE_API_KEY", "test-image-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, "openai", cfg.AI.ClientType)
	assert.Equal(t, 2, cfg.AI.MaxAttempts)
	assert.Equal(t, 3000, cfg.History.TokenBudget)
	assert.Equal(t, "test-image-key", cfg.Image.APIKey)
}
