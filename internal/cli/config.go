package cli

import (
	"path/filepath"

	"outliner-cli/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(app.cfg); err != nil {
				return writeErr(cmd, err)
			}
			return enc.Close()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.cfg.File
			if path == "" {
				path = filepath.Join(config.DefaultDir(), "config.yaml")
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"path": path, "exists": app.cfg.File != ""},
			})
		},
	})
	return cmd
}
