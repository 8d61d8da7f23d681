package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samsaffron/term-agent/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "term-agent [prompt]",
	Short: "Run an AI agent with tools from your terminal",
	Long: `term-agent runs a tool-using AI agent against your shell and files.

Examples:
  term-agent "how many Go files are in this repo?"
  term-agent "fix the failing test in internal/parser" --yolo
  term-agent -m anthropic:claude-sonnet-4-6 "summarize TODO.md"
  term-agent chat                       # interactive session
  term-agent sessions                   # list past sessions
  term-agent config init                # write a starter config`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runPrompt(cmd, args)
	},
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func init() {
	rootCmd.Version = Version
	addPromptFlags(rootCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// applyModelFlags resolves the --model and --provider overrides onto the
// active model selection. --model may carry "provider:model" on its own.
func applyModelFlags(cfg *config.Config, provider, model string) {
	cfg.ApplyOverrides(provider, model)
}
