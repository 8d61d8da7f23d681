package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// Model selects the active model: "provider", "model", or
	// "provider:model". Bare models resolve against DefaultProvider.
	Model           string                    `mapstructure:"model"`
	DefaultProvider string                    `mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `mapstructure:"providers"`
	Agent           AgentConfig               `mapstructure:"agent"`
	Session         SessionConfig             `mapstructure:"session"`
	Tools           ToolsConfig               `mapstructure:"tools"`
	Image           ImageConfig               `mapstructure:"image"`
}

// ProviderConfig configures one named provider. Built-in names (anthropic,
// openai, gemini, openrouter) need no type; custom entries default to the
// OpenAI-compatible protocol and require base_url.
type ProviderConfig struct {
	Type    string   `mapstructure:"type"`
	APIKey  string   `mapstructure:"api_key"`
	BaseURL string   `mapstructure:"base_url"`
	Model   string   `mapstructure:"model"`
	Models  []string `mapstructure:"models"` // completion candidates for custom providers

	// OpenRouter attribution headers
	AppURL   string `mapstructure:"app_url"`
	AppTitle string `mapstructure:"app_title"`
}

type AgentConfig struct {
	MaxTurns     int    `mapstructure:"max_turns"`    // provider round limit per prompt
	Instructions string `mapstructure:"instructions"` // extra system prompt text
}

type SessionConfig struct {
	Disabled   bool   `mapstructure:"disabled"`
	Dir        string `mapstructure:"dir"`          // override default data directory
	MaxAgeDays int    `mapstructure:"max_age_days"` // auto-delete sessions older than N days
	MaxCount   int    `mapstructure:"max_count"`    // keep at most N sessions
}

type ToolsConfig struct {
	AutoApprove  []string `mapstructure:"auto_approve"`  // glob patterns approved without prompting
	ShellTimeout int      `mapstructure:"shell_timeout"` // default seconds before a command is killed
}

// ImageConfig configures the image_generate tool
type ImageConfig struct {
	Model     string `mapstructure:"model"`
	OutputDir string `mapstructure:"output_dir"`
}

// ProviderType identifies the wire protocol a provider speaks.
type ProviderType string

const (
	ProviderTypeAnthropic    ProviderType = "anthropic"
	ProviderTypeOpenAI       ProviderType = "openai"
	ProviderTypeGemini       ProviderType = "gemini"
	ProviderTypeOpenRouter   ProviderType = "openrouter"
	ProviderTypeOpenAICompat ProviderType = "openai-compat"
)

// InferProviderType resolves a provider's type from its explicit type field,
// or from its name when the type is unset. Unknown names fall back to
// openai-compat so a custom entry only needs base_url.
func InferProviderType(name, typ string) ProviderType {
	if typ != "" {
		return ProviderType(typ)
	}
	switch name {
	case "anthropic":
		return ProviderTypeAnthropic
	case "openai":
		return ProviderTypeOpenAI
	case "gemini", "google":
		return ProviderTypeGemini
	case "openrouter":
		return ProviderTypeOpenRouter
	default:
		return ProviderTypeOpenAICompat
	}
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	// Set defaults
	viper.SetDefault("default_provider", "openai")
	viper.SetDefault("providers.anthropic.model", "claude-sonnet-4-6")
	viper.SetDefault("providers.openai.model", "gpt-5.2")
	viper.SetDefault("providers.gemini.model", "gemini-3-flash-preview")
	viper.SetDefault("providers.openrouter.model", "x-ai/grok-code-fast-1")
	viper.SetDefault("providers.openrouter.app_url", "https://github.com/samsaffron/term-agent")
	viper.SetDefault("providers.openrouter.app_title", "term-agent")
	// Local OpenAI-compatible servers work out of the box
	viper.SetDefault("providers.ollama.base_url", "http://localhost:11434/v1")
	viper.SetDefault("providers.lmstudio.base_url", "http://localhost:1234/v1")
	viper.SetDefault("agent.max_turns", 20)
	viper.SetDefault("tools.shell_timeout", 30)
	viper.SetDefault("image.model", "gpt-image-1")
	viper.SetDefault("image.output_dir", "~/Pictures/term-agent")

	// Read config file (optional - won't error if missing)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}

	return &cfg, nil
}

// ApplyOverrides applies provider and model flag overrides to the active
// model selection.
func (c *Config) ApplyOverrides(provider, model string) {
	switch {
	case provider != "" && model != "":
		c.Model = provider + ":" + model
	case provider != "":
		c.Model = provider
	case model != "":
		c.Model = model
	}
}

// ExpandEnv expands ${VAR} or $VAR when a value is exactly an env reference.
// Literal values pass through untouched.
func ExpandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigDir returns the XDG config directory for term-agent.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "term-agent"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "term-agent"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes a starter config to disk
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# Active model: "provider", "model", or "provider:model"
model: %s

# Provider used when a bare model names no provider
default_provider: %s

providers:
  anthropic:
    model: %s
    # api_key: ${ANTHROPIC_API_KEY}
  openai:
    model: %s
    # api_key: ${OPENAI_API_KEY}
  gemini:
    model: %s
    # api_key: ${GEMINI_API_KEY}
  openrouter:
    model: %s
    # api_key: ${OPENROUTER_API_KEY}
  # Custom providers speak the OpenAI chat completions protocol:
  # work:
  #   base_url: https://llm.internal/v1
  #   api_key: ${WORK_API_KEY}
  #   model: llama-3.3-70b

agent:
  max_turns: %d
  # Extra system prompt text:
  # instructions: |
  #   Prefer ripgrep over grep, fd over find.

tools:
  shell_timeout: %d
  # Commands approved without prompting (glob patterns):
  # auto_approve:
  #   - "git status*"
  #   - "ls *"
`, cfg.Model, cfg.DefaultProvider,
		cfg.Providers["anthropic"].Model,
		cfg.Providers["openai"].Model,
		cfg.Providers["gemini"].Model,
		cfg.Providers["openrouter"].Model,
		cfg.Agent.MaxTurns, cfg.Tools.ShellTimeout)

	return os.WriteFile(path, []byte(content), 0600)
}
