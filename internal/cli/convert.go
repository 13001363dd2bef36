package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/promptstruct/internal/prompt"
)

type convertFlags struct {
	schema       string
	providerName string
	model        string
	noRecommend  bool
}

func (f *convertFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.schema, "schema", "s", "", "Target schema: "+strings.Join(prompt.Schemas, ", "))
	cmd.Flags().StringVarP(&f.providerName, "provider", "p", "", "Provider override")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model override")
	cmd.Flags().BoolVar(&f.noRecommend, "no-recommend", false, "Do not append recommendations to the prompt")
}

// NewConvertCmd creates the 'convert' command.
func NewConvertCmd(g *Globals) *cobra.Command {
	var (
		f    convertFlags
		file string
		full bool
	)

	cmd := &cobra.Command{
		Use:   "convert [prompt]",
		Short: "Convert a prompt into JSON for a schema",
		Long: `Send the prompt to the configured provider with a system prompt tuned by
learned preferences, then extract the JSON document from the reply.

Valid results are saved to prompt history. Malformed output is printed as-is
and the command exits with an error.`,
		Example: `  promptstruct convert "a function that books a meeting room" -s anthropic-tool
  promptstruct convert -f prompt.txt --full`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}

			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			p, err := app.Provider(f.providerName, f.model)
			if err != nil {
				return err
			}

			res, err := app.Converter(p, !f.noRecommend).Convert(cmd.Context(), text, app.schemaOr(f.schema))
			if err != nil {
				return err
			}

			if full {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), res.JSON)
			}
			if !res.Valid {
				return fmt.Errorf("provider returned malformed JSON: %s", res.ParseError)
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read prompt from file")
	cmd.Flags().BoolVar(&full, "full", false, "Print the full result with usage and recommendations")
	return cmd
}

// NewBatchCmd creates the 'batch' command.
func NewBatchCmd(g *Globals) *cobra.Command {
	var (
		f    convertFlags
		file string
		size int
	)

	cmd := &cobra.Command{
		Use:   "batch [prompt...]",
		Short: "Convert several prompts, a few at a time",
		Long: `Convert prompts in waves of --size concurrent requests, pausing between
waves. Prompts come from arguments or from a file with one prompt per line.
Per-prompt failures are reported in the output; the command itself only fails
when no prompts are given or it is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts := args
			if file != "" {
				lines, err := readLines(file)
				if err != nil {
					return err
				}
				prompts = append(prompts, lines...)
			}

			app, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if size > 0 {
				app.Config.Batch.Size = size
			}

			p, err := app.Provider(f.providerName, f.model)
			if err != nil {
				return err
			}

			res, err := app.Converter(p, !f.noRecommend).Batch(cmd.Context(), prompts, app.schemaOr(f.schema))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one prompt per line")
	cmd.Flags().IntVar(&size, "size", 0, "Concurrent requests per wave (default from config)")
	return cmd
}

// readLines returns the non-blank lines of path.
func readLines(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer fh.Close()

	var lines []string
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}
