package cli

import (
	"fmt"

	"outliner-cli/internal/docs"

	"github.com/spf13/cobra"
)

func newDocsCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show built-in documentation",
		Long:  "Without a topic, lists the topics with their titles. A topic may be abbreviated to any unique prefix.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"topics": docs.Index()}})
			}

			topic, body, ok := docs.Lookup(args[0])
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown or ambiguous docs topic: %q (run `outliner docs` to list topics)", args[0]))
			}
			if raw {
				_, err := fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{
				"topic":    topic.Name,
				"title":    topic.Title,
				"markdown": body,
			}})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown (no JSON envelope)")
	return cmd
}
