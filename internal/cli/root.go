package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"outliner-cli/internal/config"
	"outliner-cli/internal/format"
	"outliner-cli/internal/tui"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type App struct {
	ConfigFile string
	PrettyJSON bool

	v       *viper.Viper
	cfg     config.Config
	logger  *logrus.Logger
	logFile *os.File
}

func NewRootCmd() *cobra.Command {
	app := &App{v: config.New(), logger: logrus.New()}

	cmd := &cobra.Command{
		Use:          "outliner",
		Short:        "Outliner: nested notes in the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the interactive outliner on the default page
  outliner

  # Open a specific page (shortcut for: outliner --page <page-id>)
  outliner page-k2d9x0ab

  # Scriptable commands
  outliner notes tree --page Inbox
  outliner notes add "Buy milk"

  # Share notes between machines
  outliner serve --listen 0.0.0.0:3340
  OUTLINER_SERVER_URL=http://host:3340 outliner
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				if err := runTUI(cmd.Context(), app); err != nil {
					return writeErr(cmd, err)
				}
				return nil
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(app.v, app.ConfigFile)
		if err != nil {
			return writeErr(cmd, err)
		}
		app.cfg = cfg
		if err := app.setupLogging(cmd.ErrOrStderr()); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.logFile != nil {
			_ = app.logFile.Close()
			app.logFile = nil
		}
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.ConfigFile, "config", envOr("OUTLINER_CONFIG", ""), "Config file (default $HOME/.config/outliner/config.yaml)")
	pf.String("data-dir", "", "Directory holding the sqlite database")
	pf.String("server", "", "Server URL; notes are read and written over HTTP when set")
	pf.String("page", "", "Page id or title (default: first page)")
	pf.BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	pf.String("format", "", "Output format (json|edn|yaml)")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-file", "", "Write logs to this file instead of stderr")
	for key, flag := range map[string]string{
		config.KeyDataDir:   "data-dir",
		config.KeyServerURL: "server",
		config.KeyPage:      "page",
		config.KeyFormat:    "format",
		config.KeyLogLevel:  "log-level",
		config.KeyLogFile:   "log-file",
	} {
		_ = app.v.BindPFlag(key, pf.Lookup(flag))
	}

	cmd.AddCommand(newPagesCmd(app))
	cmd.AddCommand(newNotesCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func runTUI(ctx context.Context, app *App) error {
	if app.logFile == nil {
		// Anything written to stderr would tear the alt screen.
		app.logger.SetOutput(io.Discard)
	}
	b, err := openBackend(ctx, app)
	if err != nil {
		return err
	}
	defer b.Close()

	page, err := b.resolvePage(ctx, app.cfg.Page, true)
	if err != nil {
		return err
	}
	stateDir := config.DefaultDir()
	if b.db != nil {
		stateDir = app.cfg.DataDir
	}
	return tui.Run(ctx, tui.Options{
		Gateway:  b.gw,
		Page:     page,
		Debounce: app.cfg.Debounce,
		StateDir: stateDir,
		Log:      app.log(),
	})
}

func (app *App) setupLogging(stderr io.Writer) error {
	lvl, err := logrus.ParseLevel(app.cfg.LogLevel)
	if err != nil {
		return err
	}
	app.logger.SetLevel(lvl)
	app.logger.SetOutput(stderr)
	if path := app.cfg.LogFile; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		app.logFile = f
		app.logger.SetOutput(f)
	}
	return nil
}

func (app *App) log() *logrus.Entry {
	return logrus.NewEntry(app.logger)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.cfg.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
