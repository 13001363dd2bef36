package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/khanglvm/promptstruct/internal/learning"
)

// NewRecommendCmd creates the 'recommend' command.
func NewRecommendCmd(g *Globals) *cobra.Command {
	var (
		schema string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "recommend <prompt>",
		Short: "Show recommendations for a prompt based on past feedback",
		Long: `Recommendations come from rated prompts similar to this one, recurring
themes in text feedback, learned preferred structures, and built-in hints for
programming-related prompts. No provider call is made.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := readInput(nil, "", args)

			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			recs := app.Engine.Recommend(text, app.schemaOr(schema))
			if asJSON {
				return printJSON(cmd.OutOrStdout(), recs)
			}
			printRecommendations(cmd.OutOrStdout(), recs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&schema, "schema", "s", "", "Target schema key")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printRecommendations(w io.Writer, recs []learning.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations yet. Record feedback to build some.")
		return
	}
	for _, r := range recs {
		fmt.Fprintf(w, "[%s] %s\n", r.Type, r.Message)
		for _, ex := range r.Examples {
			fmt.Fprintf(w, "    - %s\n", ex)
		}
	}
}

// NewEnhanceCmd creates the 'enhance' command.
func NewEnhanceCmd(g *Globals) *cobra.Command {
	var (
		schema       string
		providerName string
		model        string
	)

	cmd := &cobra.Command{
		Use:   "enhance <prompt>",
		Short: "Rewrite a prompt using learned recommendations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := readInput(nil, "", args)

			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			p, err := app.Provider(providerName, model)
			if err != nil {
				return err
			}

			enhanced, recs, err := app.Converter(p, false).Enhance(cmd.Context(), text, app.schemaOr(schema))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, enhanced)
			if len(recs) > 0 {
				fmt.Fprintln(w)
				fmt.Fprintf(w, "Based on %d recommendations:\n", len(recs))
				printRecommendations(w, recs)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&schema, "schema", "s", "", "Target schema key")
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "Provider override")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model override")
	return cmd
}
