package provider

import "os"

// Config is the per-provider configuration shared by gemini, claude,
// openai, and eren. APIKeyEnv names the environment variable holding the
// credential, mirroring the teacher's config.LLMProviderConfig convention
// of referencing secrets by env var name rather than embedding them.
type Config struct {
	Model       string
	APIKeyEnv   string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// APIKey resolves the configured environment variable.
func (c Config) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// MaxTokensOrDefault returns the configured MaxTokens, or def when unset.
func (c Config) MaxTokensOrDefault(def int) int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return def
}
