package cli

import (
	"context"
	"fmt"
	"strings"

	"outliner-cli/internal/publish"

	"github.com/spf13/cobra"
)

func newExportCmd(app *App) *cobra.Command {
	var toDir string
	var as string
	var overwrite bool
	var skipCollapsed bool
	var includeMeta bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a page as a nested Markdown list or HTML",
		Example: strings.TrimSpace(`
# Print the default page as Markdown
outliner export

# Write pages/<page-id>.html under ./site
outliner export --page Inbox --as html --to ./site
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := publish.ParseFormat(as)
			if err != nil {
				return writeErr(cmd, err)
			}
			opt := publish.RenderOptions{IncludeMeta: includeMeta, SkipCollapsed: skipCollapsed}
			return withOutline(cmd, app, func(ctx context.Context, o *outline) error {
				notes := o.store.DocumentOrder()
				if strings.TrimSpace(toDir) == "" {
					out, err := publish.Render(o.page, notes, f, opt)
					if err != nil {
						return err
					}
					_, err = fmt.Fprint(cmd.OutOrStdout(), out)
					return err
				}
				res, err := publish.WritePage(o.page, notes, toDir, publish.WriteOptions{
					Format:    f,
					Overwrite: overwrite,
					Render:    opt,
				})
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": res})
			})
		},
	}

	cmd.Flags().StringVar(&toDir, "to", "", "Output directory (default: print to stdout)")
	cmd.Flags().StringVar(&as, "as", "md", "Export format (md|html)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", true, "Overwrite existing files")
	cmd.Flags().BoolVar(&skipCollapsed, "skip-collapsed", false, "Leave out the children of collapsed notes")
	cmd.Flags().BoolVar(&includeMeta, "meta", false, "Include page id and export time")
	return cmd
}
