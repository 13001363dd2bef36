package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/promptstruct/internal/history"
)

// NewHistoryCmd creates the history command group.
func NewHistoryCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and search recent conversions",
		Long: `The last 50 successful conversions are kept with their prompt, schema and
generated JSON.`,
	}

	cmd.AddCommand(newHistoryListCmd(g))
	cmd.AddCommand(newHistorySearchCmd(g))
	cmd.AddCommand(newHistoryClearCmd(g))

	return cmd
}

func newHistoryListCmd(g *Globals) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent conversions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			entries, err := app.History.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No history yet.")
				return nil
			}
			for _, e := range entries {
				printEntry(cmd.OutOrStdout(), e, 0)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newHistorySearchCmd(g *Globals) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over recent conversions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			results, err := app.History.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), results)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
				return nil
			}
			for _, r := range results {
				printEntry(cmd.OutOrStdout(), r.Entry, r.Score)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultSearchLimit, "Maximum hits")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newHistoryClearCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete prompt history",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.History.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}
}

func printEntry(w io.Writer, e history.Entry, score float64) {
	line := fmt.Sprintf("%s  [%s]  %s", e.Timestamp.Format("2006-01-02 15:04"), e.Schema, truncate(e.Prompt, 60))
	if score > 0 {
		line += fmt.Sprintf("  (score %.2f)", score)
	}
	fmt.Fprintln(w, line)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
