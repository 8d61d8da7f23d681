package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/term-agent/internal/cache"
	"github.com/samsaffron/term-agent/internal/config"
	"github.com/samsaffron/term-agent/internal/llm"
)

var (
	modelsProvider string
	modelsRefresh  bool
	modelsJSON     bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	Long: `List models for a provider.

By default this prints the curated model list. With --refresh the
provider's models API is queried instead, which needs a working API key.

Examples:
  term-agent models                     # curated models for current provider
  term-agent models -p anthropic        # curated models for Anthropic
  term-agent models --refresh           # live listing from the provider
  term-agent models --json              # output as JSON`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVarP(&modelsProvider, "provider", "p", "", "Provider to list models for")
	modelsCmd.Flags().BoolVar(&modelsRefresh, "refresh", false, "Query the provider's models API")
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
	if err := modelsCmd.RegisterFlagCompletionFunc("provider", ProviderFlagCompletion); err != nil {
		panic(fmt.Sprintf("failed to register provider completion: %v", err))
	}
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	providerName := modelsProvider
	if providerName == "" {
		providerName, _ = activeModel(cfg)
	}

	if modelsRefresh {
		return runModelsRefresh(cfg, providerName)
	}

	if modelsJSON {
		type curatedModel struct {
			ID string `json:"id"`
		}
		var out []curatedModel
		for _, m := range curatedModels(providerName, cfg) {
			out = append(out, curatedModel{ID: m})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if err := printCuratedModels(os.Stdout, providerName, cfg); err != nil {
		return err
	}
	fmt.Printf("\nUse a model with:\n  term-agent -m %s:<model-name>\n", providerName)
	return nil
}

// curatedModels returns the model list for a provider: the configured list
// when present, else the built-in curated one for the provider's type.
func curatedModels(providerName string, cfg *config.Config) []string {
	if cfg != nil {
		if pc, ok := cfg.Providers[providerName]; ok && len(pc.Models) > 0 {
			return pc.Models
		}
	}
	if models, ok := llm.ProviderModels[providerName]; ok {
		return models
	}
	providerType := string(config.InferProviderType(providerName, ""))
	return llm.ProviderModels[providerType]
}

// printCuratedModels renders the curated list with effort-variant notes.
// Shared with chat's /models command.
func printCuratedModels(w io.Writer, providerName string, cfg *config.Config) error {
	models := curatedModels(providerName, cfg)
	if len(models) == 0 {
		return fmt.Errorf("no curated models for provider '%s'; try --refresh", providerName)
	}

	fmt.Fprintf(w, "Available models for %s:\n\n", providerName)
	for _, m := range models {
		line := "  " + m
		if variants := llm.EffortVariantsFor(m); len(variants) > 0 {
			line += fmt.Sprintf(" (effort: %s)", strings.Join(variants, ", "))
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func runModelsRefresh(cfg *config.Config, providerName string) error {
	provider, err := llm.NewProviderForModel(cfg, providerName)
	if err != nil {
		return err
	}

	// The retry wrapper hides optional interfaces.
	if rp, ok := provider.(*llm.RetryProvider); ok {
		provider = rp.Unwrap()
	}
	lister, ok := provider.(llm.ModelLister)
	if !ok {
		return fmt.Errorf("provider '%s' does not support model listing", providerName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := lister.ListModels(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			return fmt.Errorf("cannot connect to %s server.\n"+
				"Make sure the server is running and accessible.\n\n"+
				"For Ollama: run 'ollama serve'\n"+
				"For LM Studio: start LM Studio and enable the server", providerName)
		}
		return fmt.Errorf("failed to list models: %w", err)
	}

	providerType := config.InferProviderType(providerName, cfg.Providers[providerName].Type)
	if providerType == config.ProviderTypeOpenAI {
		models = llm.ListOpenAIChatModels(models)
	}

	if len(models) == 0 {
		fmt.Println("No models found.")
		return nil
	}

	// Cache the live listing so model flag completion can offer these ids.
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	if err := cache.WriteModels(providerName, ids); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not cache model list: %v\n", err)
	}

	if modelsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}

	fmt.Printf("Available models from %s:\n\n", providerName)
	for _, m := range models {
		if m.DisplayName != "" && m.DisplayName != m.ID {
			fmt.Printf("  %s (%s)\n", m.ID, m.DisplayName)
		} else {
			fmt.Printf("  %s\n", m.ID)
		}
	}
	return nil
}
