package cli

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"outliner-cli/internal/config"
	"outliner-cli/internal/server"
	"outliner-cli/internal/store"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local notes over a JSON API for other outliner clients",
		Example: strings.TrimSpace(`
# Serve on localhost
outliner serve

# Serve to the network without accepting writes
outliner serve --listen 0.0.0.0:3340 --read-only
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfg.Remote() {
				return writeErr(cmd, errors.New("serve: server_url is set; serve reads the local store only"))
			}
			listenAddr := app.cfg.ListenAddr
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --listen"))
			}

			db, err := store.Open(cmd.Context(), app.cfg.DataDir)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close()

			srv, err := server.NewServer(server.ServerConfig{
				Addr:     listenAddr,
				ReadOnly: app.cfg.ReadOnly,
			}, db, app.log())
			if err != nil {
				return writeErr(cmd, err)
			}
			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"dataDir":   app.cfg.DataDir,
					"readOnly":  app.cfg.ReadOnly,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{
					"OUTLINER_SERVER_URL=" + url + " outliner",
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "outliner serving %s at %s\n", app.cfg.DataDir, url)

			if err := srv.Serve(cmd.Context(), ln); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "listen", "", "Bind address (host:port or :port)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Reject writes")
	_ = app.v.BindPFlag(config.KeyListenAddr, cmd.Flags().Lookup("listen"))
	_ = app.v.BindPFlag(config.KeyReadOnly, cmd.Flags().Lookup("read-only"))
	return cmd
}
