package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanglvm/promptstruct/internal/mcp"
	"github.com/khanglvm/promptstruct/internal/provider"
)

// NewServeCmd creates the 'serve' command for running the MCP server.
func NewServeCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio transport)",
		Long: `Start the promptstruct MCP server using stdio transport.

Tools exposed to AI clients:
  • extract_json        - Pull the JSON payload out of model output
  • record_feedback     - Record a judgment about generated output
  • get_recommendations - Recommendations for a prompt
  • get_stats           - Aggregate feedback statistics
  • export_feedback     - Full feedback and preferences dump
  • search_history      - Search recent conversions
  • convert_prompt      - Convert a prompt (only when an API key is configured)

Logs go to stderr; stdout carries only JSON-RPC.`,
		Example: `  # Run directly
  promptstruct serve

  # Add to an MCP client
  claude mcp add promptstruct -- promptstruct serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), g)
		},
	}
}

// runServe serves until stdin closes or SIGINT/SIGTERM arrives.
func runServe(parent context.Context, g *Globals) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := g.newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	deps := mcp.Deps{
		Store:         app.Feedback,
		Engine:        app.Engine,
		History:       app.History,
		DefaultSchema: app.Config.DefaultSchema,
		Logger:        app.Logger,
	}

	p, err := app.Provider("", "")
	switch {
	case err == nil:
		deps.Converter = app.Converter(p, true)
	case errors.Is(err, provider.ErrMissingAPIKey):
		app.Logger.Info("no API key configured, convert_prompt disabled")
	default:
		app.Logger.Warn("provider unavailable, convert_prompt disabled", zap.Error(err))
	}

	app.Logger.Info("starting MCP server", zap.String("provider", app.Config.Provider))
	err = mcp.NewServer(deps).Run(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		app.Logger.Info("shutdown complete")
		return nil
	}
	return err
}
