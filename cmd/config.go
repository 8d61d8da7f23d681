package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/samsaffron/term-agent/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Show or initialize the configuration file.

Examples:
  term-agent config show
  term-agent config init`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Print the effective configuration as YAML, with defaults and the
config file merged. Literal API keys are redacted.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// Mirror types give the dump stable yaml field names and let api_key be
// redacted without touching the live config.
type configDump struct {
	Model           string                  `yaml:"model,omitempty"`
	DefaultProvider string                  `yaml:"default_provider,omitempty"`
	Providers       map[string]providerDump `yaml:"providers,omitempty"`
	Agent           agentDump               `yaml:"agent"`
	Session         sessionDump             `yaml:"session"`
	Tools           toolsDump               `yaml:"tools"`
	Image           imageDump               `yaml:"image"`
}

type providerDump struct {
	Type     string   `yaml:"type,omitempty"`
	APIKey   string   `yaml:"api_key,omitempty"`
	BaseURL  string   `yaml:"base_url,omitempty"`
	Model    string   `yaml:"model,omitempty"`
	Models   []string `yaml:"models,omitempty"`
	AppURL   string   `yaml:"app_url,omitempty"`
	AppTitle string   `yaml:"app_title,omitempty"`
}

type agentDump struct {
	MaxTurns     int    `yaml:"max_turns"`
	Instructions string `yaml:"instructions,omitempty"`
}

type sessionDump struct {
	Disabled   bool   `yaml:"disabled,omitempty"`
	Dir        string `yaml:"dir,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	MaxCount   int    `yaml:"max_count,omitempty"`
}

type toolsDump struct {
	AutoApprove  []string `yaml:"auto_approve,omitempty"`
	ShellTimeout int      `yaml:"shell_timeout"`
}

type imageDump struct {
	Model     string `yaml:"model,omitempty"`
	OutputDir string `yaml:"output_dir,omitempty"`
}

func buildConfigDump(cfg *config.Config) *configDump {
	dump := &configDump{
		Model:           cfg.Model,
		DefaultProvider: cfg.DefaultProvider,
		Providers:       make(map[string]providerDump, len(cfg.Providers)),
		Agent: agentDump{
			MaxTurns:     cfg.Agent.MaxTurns,
			Instructions: cfg.Agent.Instructions,
		},
		Session: sessionDump{
			Disabled:   cfg.Session.Disabled,
			Dir:        cfg.Session.Dir,
			MaxAgeDays: cfg.Session.MaxAgeDays,
			MaxCount:   cfg.Session.MaxCount,
		},
		Tools: toolsDump{
			AutoApprove:  cfg.Tools.AutoApprove,
			ShellTimeout: cfg.Tools.ShellTimeout,
		},
		Image: imageDump{
			Model:     cfg.Image.Model,
			OutputDir: cfg.Image.OutputDir,
		},
	}
	for name, pc := range cfg.Providers {
		dump.Providers[name] = providerDump{
			Type:     pc.Type,
			APIKey:   redactSecret(pc.APIKey),
			BaseURL:  pc.BaseURL,
			Model:    pc.Model,
			Models:   pc.Models,
			AppURL:   pc.AppURL,
			AppTitle: pc.AppTitle,
		}
	}
	return dump
}

// redactSecret hides literal API keys. Env references stay visible since
// they are not secrets themselves.
func redactSecret(key string) string {
	if key == "" || strings.HasPrefix(key, "$") {
		return key
	}
	return "[set]"
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path, err := config.GetConfigPath()
	if err == nil {
		if config.Exists() {
			fmt.Printf("# %s\n", path)
		} else {
			fmt.Printf("# %s (not created yet, showing defaults)\n", path)
		}
	}

	data, err := yaml.Marshal(buildConfigDump(cfg))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	os.Stdout.Write(data)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}

	if config.Exists() && !configInitForce {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Set an API key via environment (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...) or in the config file.")
	return nil
}
