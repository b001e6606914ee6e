package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// CredentialEnv is consulted when the enabled provider has no api_key.
const CredentialEnv = "API_KEY"

var ErrMissingCredential = errors.New("API credential is not configured")

type Config struct {
	App        AppConfig                 `json:"app" yaml:"app"`
	Gateways   map[string]GatewayConfig  `json:"gateways" yaml:"gateways"`
	Providers  map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Memory     MemoryConfig              `json:"memory" yaml:"memory"`
	Generation GenerationConfig          `json:"generation" yaml:"generation"`
	Policy     PolicyConfig              `json:"policy" yaml:"policy"`
	Logging    LoggingConfig             `json:"logging" yaml:"logging"`
}

type AppConfig struct {
	Name string `json:"name" yaml:"name"`
	// Workspace is where console and CLI exports are written.
	Workspace string `json:"workspace" yaml:"workspace"`
	// SessionTTLMinutes evicts idle chat sessions; 0 keeps them forever.
	SessionTTLMinutes int `json:"session_ttl_minutes" yaml:"session_ttl_minutes"`
}

type GatewayConfig struct {
	Token   string `json:"token" yaml:"token"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type MemoryConfig struct {
	Type string `json:"type" yaml:"type"`
	Path string `json:"path" yaml:"path"`
}

type GenerationConfig struct {
	BreakdownTemperature float64 `json:"breakdown_temperature" yaml:"breakdown_temperature"`
	ContentTemperature   float64 `json:"content_temperature" yaml:"content_temperature"`
	TopP                 float64 `json:"top_p" yaml:"top_p"`
	Grounding            *bool   `json:"grounding,omitempty" yaml:"grounding,omitempty"`
	MaxToolRounds        int     `json:"max_tool_rounds" yaml:"max_tool_rounds"`
	SearchResults        int     `json:"search_results" yaml:"search_results"`
	BrowserFallback      bool    `json:"browser_fallback" yaml:"browser_fallback"`
	PromptsDir           string  `json:"prompts_dir" yaml:"prompts_dir"`
}

type PolicyConfig struct {
	DenyPatterns []string `json:"deny_patterns" yaml:"deny_patterns"`
	MaxInputLen  int      `json:"max_input_len" yaml:"max_input_len"`
}

type LoggingConfig struct {
	LLMLogPath string `json:"llm_log_path" yaml:"llm_log_path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
}

// LoadConfig reads a JSON or YAML (by extension) config file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "taskbreak"
	}
	if c.App.Workspace == "" {
		c.App.Workspace = "exports"
	}
	g := &c.Generation
	if g.BreakdownTemperature == 0 {
		g.BreakdownTemperature = 0.7
	}
	if g.ContentTemperature == 0 {
		g.ContentTemperature = 0.8
	}
	if g.TopP == 0 {
		g.TopP = 0.95
	}
	if g.Grounding == nil {
		on := true
		g.Grounding = &on
	}
	if g.MaxToolRounds == 0 {
		g.MaxToolRounds = 5
	}
	if g.SearchResults == 0 {
		g.SearchResults = 5
	}
	if c.Logging.LLMLogPath == "" {
		c.Logging.LLMLogPath = filepath.Join("logs", "llm.jsonl")
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
}

// GroundingEnabled reports whether content generation may search the web.
func (g GenerationConfig) GroundingEnabled() bool {
	return g.Grounding == nil || *g.Grounding
}

// GetDefaultProvider returns the first enabled provider, by name.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := c.Providers[name]; p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// ResolveProvider returns the enabled provider with its credential filled in
// from the environment when the file leaves it empty. It fails fast when no
// credential is available.
func (c *Config) ResolveProvider() (string, ProviderConfig, error) {
	name, p := c.GetDefaultProvider()
	if name == "" {
		return "", ProviderConfig{}, errors.New("no enabled provider found in config")
	}
	if p.APIKey == "" {
		p.APIKey = os.Getenv(CredentialEnv)
	}
	if p.APIKey == "" && name != "ollama" {
		return "", ProviderConfig{}, fmt.Errorf("%w: set providers.%s.api_key or %s", ErrMissingCredential, name, CredentialEnv)
	}
	return name, p, nil
}

// GetGatewayConfig returns a gateway's config if it is enabled and has a token.
func (c *Config) GetGatewayConfig(name string) (GatewayConfig, bool) {
	gw, ok := c.Gateways[name]
	if ok && gw.Enabled && gw.Token != "" {
		return gw, true
	}
	return GatewayConfig{}, false
}
