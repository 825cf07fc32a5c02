package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "queryengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("GEMINI_KEY_VAR_NAME", "MY_GEMINI_KEY")
	path := writeConfig(t, `
default_provider: gemini
ai_providers:
  gemini:
    model: gemini-2.0-flash
    api_key_env: ${GEMINI_KEY_VAR_NAME}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "MY_GEMINI_KEY", cfg.Providers["gemini"].APIKeyEnv)
	assert.Equal(t, ":8080", cfg.System.HTTPAddr)
	assert.Equal(t, ":8081", cfg.System.WSAddr)
	assert.Equal(t, time.Hour, cfg.System.ConversationIdleTTL)
	assert.Equal(t, 5*time.Minute, cfg.System.EvictionInterval)
	assert.Equal(t, float64(defaultRequestsPerMinute), cfg.Providers["gemini"].RequestsPerMinute)
}

func TestLoad_RejectsUnknownDefaultProvider(t *testing.T) {
	path := writeConfig(t, `
default_provider: nonexistent
ai_providers:
  gemini:
    model: gemini-2.0-flash
    api_key_env: GOOGLE_API_KEY
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "nonexistent")
}

func TestLoad_RejectsMissingAPIKeyEnv(t *testing.T) {
	path := writeConfig(t, `
ai_providers:
  gemini:
    model: gemini-2.0-flash
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "api_key_env")
}

func TestLoad_RejectsNoProviders(t *testing.T) {
	path := writeConfig(t, `system:
  http_addr: ":9090"
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "at least one")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProviderYAML_ToProviderConfig(t *testing.T) {
	p := ProviderYAML{
		Model:       "gpt-4o",
		APIKeyEnv:   "OPENAI_API_KEY",
		BaseURL:     "https://api.openai.com/v1",
		Temperature: 0.5,
		MaxTokens:   2048,
	}
	pc := p.ToProviderConfig()
	assert.Equal(t, p.Model, pc.Model)
	assert.Equal(t, p.APIKeyEnv, pc.APIKeyEnv)
	assert.Equal(t, p.BaseURL, pc.BaseURL)
	assert.Equal(t, p.Temperature, pc.Temperature)
	assert.Equal(t, p.MaxTokens, pc.MaxTokens)
}
