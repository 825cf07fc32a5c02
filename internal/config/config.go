// Package config loads the process-wide YAML configuration for the
// orchestration engine: per-provider AI settings, the default provider
// name, and transport/dashboard toggles. Grounded in the teacher's
// pkg/config/loader.go (YAML load → env-var expansion → parse → validate
// pipeline) and envexpand.go ($VAR/${VAR} expansion via os.ExpandEnv),
// retargeted from agent-chain/MCP-server config to AI-provider config.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/riverfold/querymind/internal/provider"
)

// ProviderYAML mirrors the teacher's LLMProviderConfig shape: a model
// name, the env var holding the API key (never the key itself), and an
// optional base URL override for OpenAI-compatible endpoints.
type ProviderYAML struct {
	Model             string  `yaml:"model"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	BaseURL           string  `yaml:"base_url,omitempty"`
	Temperature       float32 `yaml:"temperature,omitempty"`
	MaxTokens         int     `yaml:"max_tokens,omitempty"`
	RequestsPerMinute float64 `yaml:"requests_per_minute,omitempty"`
}

// ToProviderConfig converts the YAML shape to provider.Config.
func (p ProviderYAML) ToProviderConfig() provider.Config {
	return provider.Config{
		Model:       p.Model,
		APIKeyEnv:   p.APIKeyEnv,
		BaseURL:     p.BaseURL,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
}

// YAMLConfig is the top-level shape of queryengine.yaml, mirroring the
// teacher's TarsyYAMLConfig: one struct per file, loaded once at startup.
type YAMLConfig struct {
	DefaultProvider string                  `yaml:"default_provider"`
	Providers       map[string]ProviderYAML `yaml:"ai_providers"`
	System          SystemYAML              `yaml:"system"`
}

// SystemYAML groups system-wide settings, mirroring the teacher's
// SystemYAMLConfig grouping of infrastructure knobs under one key.
type SystemYAML struct {
	HTTPAddr            string        `yaml:"http_addr"`
	WSAddr              string        `yaml:"ws_addr"`
	EnableDashboard     bool          `yaml:"enable_dashboard"`
	IncludeHistory      bool          `yaml:"include_history"`
	ConversationIdleTTL time.Duration `yaml:"conversation_idle_ttl"`
	EvictionInterval    time.Duration `yaml:"eviction_interval"`
}

// Load reads path, expands ${ENV_VAR} references the way
// pkg/config/envexpand.go does, and parses the result as YAML.
func Load(path string) (*YAMLConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	expanded := ExpandEnv(raw)

	var cfg YAMLConfig
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, cfg.Validate()
}

// ExpandEnv expands $VAR and ${VAR} references in data using the standard
// library, exactly as pkg/config/envexpand.go does for the teacher's own
// configuration files. Missing variables expand to the empty string;
// Validate is responsible for catching required fields left empty.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

// defaultRequestsPerMinute is the fallback per-provider throttle applied
// when a provider entry leaves requests_per_minute unset, chosen to stay
// well under the lowest free-tier quota among the four wired providers.
const defaultRequestsPerMinute = 60

func applyDefaults(cfg *YAMLConfig) {
	if cfg.System.HTTPAddr == "" {
		cfg.System.HTTPAddr = ":8080"
	}
	if cfg.System.WSAddr == "" {
		cfg.System.WSAddr = ":8081"
	}
	if cfg.System.ConversationIdleTTL == 0 {
		cfg.System.ConversationIdleTTL = time.Hour
	}
	if cfg.System.EvictionInterval == 0 {
		cfg.System.EvictionInterval = 5 * time.Minute
	}
	for name, p := range cfg.Providers {
		if p.RequestsPerMinute == 0 {
			p.RequestsPerMinute = defaultRequestsPerMinute
			cfg.Providers[name] = p
		}
	}
}

// Validate checks the configuration, mirroring the teacher's
// config/validator.go pattern of hand-rolled Validate() error methods
// (the teacher does not import a struct-tag validation library for this;
// see DESIGN.md).
func (c YAMLConfig) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("config: at least one ai_providers entry is required")
	}
	if c.DefaultProvider != "" {
		if _, ok := c.Providers[c.DefaultProvider]; !ok {
			return fmt.Errorf("config: default_provider %q is not declared in ai_providers", c.DefaultProvider)
		}
	}
	for name, p := range c.Providers {
		if p.APIKeyEnv == "" {
			return fmt.Errorf("config: ai_providers.%s.api_key_env is required", name)
		}
	}
	return nil
}
