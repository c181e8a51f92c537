package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

func newPagesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Page commands (each page holds one outline)",
	}
	cmd.AddCommand(newPagesListCmd(app))
	cmd.AddCommand(newPagesCreateCmd(app))
	return cmd
}

func newPagesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer b.Close()
			pages, err := b.pages.ListPages(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": pages})
		},
	}
}

func newPagesCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(args[0])
			if title == "" {
				return writeErr(cmd, errors.New("missing title"))
			}
			b, err := openBackend(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer b.Close()
			p, err := b.pages.CreatePage(cmd.Context(), title)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   p,
				"_hints": []string{"outliner --page " + p.ID},
			})
		},
	}
}
