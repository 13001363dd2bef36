package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/promptstruct/internal/extract"
)

// NewExtractCmd creates the 'extract' command.
func NewExtractCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "extract [text]",
		Short: "Extract the JSON payload from raw model output",
		Long: `Strip code fences and leading phrases from model output and print the
first balanced JSON document. Reads stdin when no text or file is given.

Exits with an error when the extracted text is not valid JSON; the
best-effort text is still printed.`,
		Example: `  promptstruct extract 'Here is the JSON: {"a": 1}'
  pbpaste | promptstruct extract`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}

			text, err := extract.ExtractValid(raw)
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read input from file")
	return cmd
}

// readInput returns args joined, the file content, or stdin, in that order.
func readInput(stdin io.Reader, file string, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	}
	if stdin == nil {
		return "", errors.New("no input")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
