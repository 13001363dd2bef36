package cli

import (
	"github.com/spf13/cobra"

	"github.com/khanglvm/promptstruct/internal/version"
)

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	g := &Globals{}

	root := &cobra.Command{
		Use:   "promptstruct",
		Short: "Turn natural language prompts into structured JSON, and learn from feedback",
		Long: `promptstruct converts natural language prompts into JSON for a target schema
(OpenAI functions, Anthropic tools, LangChain tools, JSON Schema, Pydantic,
TypeScript) using an LLM provider.

Model replies are normalized into a single JSON document. Ratings you record
on generated output are folded into learned preferences that steer future
system prompts and recommendations.

State lives in ~/.promptstruct (SQLite by default, Redis optionally).`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "Config file (default: ~/.promptstruct/config.yaml)")
	root.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(NewExtractCmd())
	root.AddCommand(NewFeedbackCmd(g))
	root.AddCommand(NewRecommendCmd(g))
	root.AddCommand(NewEnhanceCmd(g))
	root.AddCommand(NewConvertCmd(g))
	root.AddCommand(NewBatchCmd(g))
	root.AddCommand(NewHistoryCmd(g))
	root.AddCommand(NewConfigCmd(g))
	root.AddCommand(NewServeCmd(g))
	root.AddCommand(NewVersionCmd())

	return root
}
