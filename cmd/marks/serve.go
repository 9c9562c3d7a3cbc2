package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept captures from the browser extension",
	Long: `Serve listens for captures posted by the browser extension and pushes
change notifications to every open marks window.

Endpoints:
  POST /api/bookmark   store a capture {pageUrl, title, imageUrl, isIncognito}
  GET  /ws             change notifications
  GET  /health         liveness`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default: server.addr from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr)

	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()

	addr := cfg.Server.Addr
	if flagAddr != "" {
		addr = flagAddr
	}
	logger.Info("library.loaded", "bookmarks", lib.Bookmarks.Len(), "tags", lib.Graph.Len(), "data", cfg.DataDir)

	return server.New(lib.Actions, logger).ListenAndServe(cmd.Context(), addr)
}
