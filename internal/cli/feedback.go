package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/promptstruct/internal/feedback"
)

// NewFeedbackCmd creates the feedback command group.
func NewFeedbackCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record and manage feedback on generated output",
		Long: `Feedback records are user judgments about generated output. Each one
updates the learned preferences: high ratings reinforce a schema's aspects
and may keep the output as a preferred structure, low ratings mark aspects
to avoid.

Commands:
  record  Record a judgment
  stats   Show aggregate statistics
  export  Export records, preferences and stats as JSON
  import  Replace all feedback from an export file
  clear   Delete all feedback and reset preferences`,
	}

	cmd.AddCommand(newFeedbackRecordCmd(g))
	cmd.AddCommand(newFeedbackStatsCmd(g))
	cmd.AddCommand(newFeedbackExportCmd(g))
	cmd.AddCommand(newFeedbackImportCmd(g))
	cmd.AddCommand(newFeedbackClearCmd(g))

	return cmd
}

func newFeedbackRecordCmd(g *Globals) *cobra.Command {
	var (
		out      feedback.Output
		j        feedback.Judgment
		jsonFile string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a judgment about one generated output",
		Example: `  promptstruct feedback record --prompt "create a user" --json-file out.json \
    --rating 5 --structure 5 --comment "clear parameter names"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonFile != "" {
				data, err := os.ReadFile(jsonFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", jsonFile, err)
				}
				out.JSON = string(data)
			}

			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			out.Schema = app.schemaOr(out.Schema)
			rec, err := app.Feedback.Collect(cmd.Context(), &out, &j)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}

	f := cmd.Flags()
	f.StringVar(&out.Prompt, "prompt", "", "Prompt that produced the output")
	f.StringVar(&out.JSON, "json", "", "Generated output text")
	f.StringVar(&jsonFile, "json-file", "", "Read generated output from file")
	f.StringVarP(&out.Schema, "schema", "s", "", "Target schema key")
	f.StringVar(&out.Provider, "provider", "", "Provider that generated the output")
	f.StringVar(&out.Model, "model", "", "Model that generated the output")
	f.IntVarP(&j.Rating, "rating", "r", 0, "Overall rating 1-5 (default 3)")
	f.BoolVar(&j.ThumbsUp, "thumbs-up", false, "Quick approval")
	f.IntVar(&j.Accuracy, "accuracy", 0, "Accuracy score 1-5")
	f.IntVar(&j.Completeness, "completeness", 0, "Completeness score 1-5")
	f.IntVar(&j.Structure, "structure", 0, "Structure score 1-5")
	f.IntVar(&j.Relevance, "relevance", 0, "Relevance score 1-5")
	f.StringVar(&j.TextFeedback, "comment", "", "Free-text feedback")
	f.BoolVar(&j.IsPreferred, "preferred", false, "Mark as a preferred output")

	return cmd
}

func newFeedbackStatsCmd(g *Globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate feedback statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			stats := app.Feedback.Stats()
			w := cmd.OutOrStdout()
			if asJSON {
				return printJSON(w, stats)
			}

			fmt.Fprintln(w, "Feedback Statistics")
			fmt.Fprintln(w, "===================")
			fmt.Fprintf(w, "Total feedback:   %d\n", stats.TotalFeedback)
			fmt.Fprintf(w, "Average rating:   %.2f\n", stats.AverageRating)
			fmt.Fprintf(w, "Thumbs up:        %.1f%%\n", stats.ThumbsUpPercentage)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Aspects:")
			for _, a := range feedback.Aspects {
				fmt.Fprintf(w, "  %-13s %.2f\n", a, stats.AspectAverages[a])
			}
			if len(stats.TopTags) > 0 {
				fmt.Fprintln(w)
				fmt.Fprintln(w, "Tags:")
				for _, tag := range sortedTags(stats.TopTags) {
					fmt.Fprintf(w, "  %-13s %d\n", tag, stats.TopTags[tag])
				}
			}
			for _, t := range stats.RecentTrends {
				fmt.Fprintln(w)
				fmt.Fprintf(w, "Last 30 days:     %d records, average %.2f\n", t.Count, t.AverageRating)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newFeedbackExportCmd(g *Globals) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export feedback records, preferences and stats as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			data, err := formatJSON(app.Feedback.Export())
			if err != nil {
				return err
			}
			if outputFile == "" {
				fmt.Fprintln(cmd.OutOrStdout(), data)
				return nil
			}
			if err := os.WriteFile(outputFile, []byte(data+"\n"), 0600); err != nil {
				return fmt.Errorf("failed to write %s: %w", outputFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", app.Feedback.Len(), outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newFeedbackImportCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all feedback with the content of an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			var data feedback.ExportData
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("invalid export file: %w", err)
			}

			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Feedback.Import(cmd.Context(), data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records\n", app.Feedback.Len())
			return nil
		},
	}
}

func newFeedbackClearCmd(g *Globals) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all feedback and reset learned preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, "This will delete all feedback data. Continue? (y/N): ") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}

			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			app.Feedback.Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Feedback data cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprint(cmd.OutOrStdout(), question)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.TrimSpace(answer)
	return answer == "y" || answer == "Y"
}

// sortedTags orders tags by count, most frequent first.
func sortedTags(counts map[string]int) []string {
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	return tags
}
