package cmd

import (
	"github.com/spf13/cobra"

	"github.com/samsaffron/term-agent/internal/config"
	"github.com/samsaffron/term-agent/internal/llm"
)

// AddModelFlag adds the --model/-m flag with provider:model completion.
func AddModelFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "model", "m", "", "Model to use: \"model\", \"provider\" or \"provider:model\"")
	if err := cmd.RegisterFlagCompletionFunc("model", ModelFlagCompletion); err != nil {
		panic("failed to register model completion: " + err.Error())
	}
}

// AddProviderFlag adds the --provider/-p flag with completion.
func AddProviderFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "provider", "p", "", "Provider to use (anthropic, openai, gemini, openrouter, or a configured name)")
	if err := cmd.RegisterFlagCompletionFunc("provider", ProviderFlagCompletion); err != nil {
		panic("failed to register provider completion: " + err.Error())
	}
}

// AddDebugFlag adds the --debug/-d flag.
func AddDebugFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVarP(dest, "debug", "d", false, "Print requests, tool calls and results to stderr")
}

// AddYoloFlag adds the --yolo flag for auto-approving all tool operations.
func AddYoloFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVar(dest, "yolo", false, "Auto-approve all tool operations (for CI/container use, bypasses all prompts)")
}

// AddMaxTurnsFlag adds the --max-turns flag.
func AddMaxTurnsFlag(cmd *cobra.Command, dest *int) {
	cmd.Flags().IntVar(dest, "max-turns", 0, "Max provider rounds per prompt (0 = config default)")
}

// AddUsageFlag adds the --usage flag.
func AddUsageFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVar(dest, "usage", false, "Print token usage and cost after the turn")
}

// AddNoSessionFlag adds the --no-session flag.
func AddNoSessionFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVar(dest, "no-session", false, "Do not record this conversation in session storage")
}

// AddResumeFlag adds the --resume/-r flag. Passing the flag without a value
// resumes the most recent session.
func AddResumeFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "resume", "r", "", "Continue a session (empty for most recent, or session id)")
	cmd.Flags().Lookup("resume").NoOptDefVal = " " // space means "flag passed without value"
}

// ModelFlagCompletion completes --model values as provider names before the
// colon and that provider's models after it.
func ModelFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load()
	if err != nil {
		cfg = nil
	}
	return llm.GetProviderCompletions(toComplete, cfg), cobra.ShellCompDirectiveNoFileComp
}

// ProviderFlagCompletion completes --provider values.
func ProviderFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load()
	if err != nil {
		cfg = nil
	}
	var completions []string
	for _, name := range llm.GetProviderNames(cfg) {
		if toComplete == "" || len(name) >= len(toComplete) && name[:len(toComplete)] == toComplete {
			completions = append(completions, name)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
