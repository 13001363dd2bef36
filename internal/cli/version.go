package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/promptstruct/internal/config"
	"github.com/khanglvm/promptstruct/internal/version"
)

// NewVersionCmd creates the 'version' command
func NewVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the current version, commit hash, and build date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Version:  %s\n", version.Version)
			fmt.Fprintf(w, "Commit:   %s\n", version.Commit)
			fmt.Fprintf(w, "Built:    %s\n", version.Date)

			if !check {
				return nil
			}

			dir, err := config.Dir()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			latest, err := version.NewChecker(dir).Check(ctx, version.Version)
			if err != nil {
				return err
			}
			if latest == "" {
				fmt.Fprintln(w, "You are on the latest version.")
			} else {
				fmt.Fprintf(w, "Update available: %s\n", latest)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	return cmd
}
