package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/khanglvm/promptstruct/internal/config"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and inspect configuration",
	}

	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))

	return cmd
}

func newConfigInitCmd(g *Globals) *cobra.Command {
	var (
		force        bool
		providerName string
		model        string
		apiKey       string
		backend      string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with defaults",
		Example: `  promptstruct config init --provider groq --api-key gsk_...
  promptstruct config init --storage redis --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.ConfigPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s\n  Hint: use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check %s: %w", path, err)
			}

			cfg := config.Default()
			if providerName != "" {
				cfg.Provider = providerName
			}
			cfg.Model = model
			cfg.APIKey = apiKey
			if backend != "" {
				cfg.Storage.Backend = backend
			}

			if err := config.Save(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().StringVar(&providerName, "provider", "", "Provider: openai, groq, anthropic")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default per provider)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Provider API key")
	cmd.Flags().StringVar(&backend, "storage", "", "Storage backend: sqlite, redis, memory")
	return cmd
}

func newConfigShowCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with the API key masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.ConfigPath)
			if err != nil {
				return err
			}
			cfg.APIKey = maskKey(cfg.APIKey)

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		if key == "" {
			return ""
		}
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
