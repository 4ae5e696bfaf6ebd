package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grez-lucas/iframe-scanner/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serves the scan API:

  POST /api/start-scan            start a background scan
  GET  /api/scan-status/{id}      progress of a scan
  GET  /api/scan-results/{id}     result of a completed or stopped scan
  POST /api/stop-scan/{id}        stop a scan between frames
  POST /api/dom-iframe-xpaths     DOM-only iframe lookup
  GET  /api/scan-events/{id}      websocket stream of progress and log lines`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Server
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cfg.Addr == "" {
				return errors.New("server address is empty")
			}

			launch := server.BrowserLauncher(a.cfg.BrowserOptions(), a.logger)
			if offline {
				launch = server.OfflineLauncher()
			}

			srv := server.New(cfg, a.cfg.ScannerOptions(), launch, a.logger)
			a.logger.Info("Starting iframe scanner API", zap.String("addr", cfg.Addr), zap.Bool("offline", offline))
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().BoolVar(&offline, "offline", false, "walk pasted markup without a browser; URL scans fail")
	return cmd
}
