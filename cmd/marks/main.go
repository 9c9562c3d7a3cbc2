// Package main provides the marks CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/library"
	"github.com/nikbrunner/marks/internal/notify"
	"github.com/nikbrunner/marks/internal/storage"
	"github.com/nikbrunner/marks/internal/tui"
)

// Global flag values.
var (
	flagConfigDir string
	flagVerbose   bool
)

// cfg is loaded by PersistentPreRunE for every command.
var cfg *storage.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "marks",
	Short: "marks is a screenshot bookmark library",
	Long: `marks keeps bookmarks captured by the browser extension, each with a
screenshot, a rating and any number of hierarchical tags.

Run without arguments to open the interactive library. Run "marks serve"
to accept captures from the extension.`,
	SilenceUsage:      true,
	Args:              cobra.NoArgs,
	PersistentPreRunE: loadConfig,
	RunE:              runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: ~/.config/marks)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(refreshCmd)
}

// loadConfig reads config.yaml, creating it with defaults on first run.
func loadConfig(cmd *cobra.Command, args []string) error {
	dir := flagConfigDir
	if dir == "" {
		var err error
		dir, err = storage.DefaultConfigDir()
		if err != nil {
			return fmt.Errorf("config dir: %w", err)
		}
	}

	c, err := storage.LoadConfig(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	cfg = c
	return nil
}

func newLogger(w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{ReportTimestamp: true})
	if flagVerbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// openLibrary opens the configured library, logging to stderr.
func openLibrary(ctx context.Context) (*library.Library, error) {
	lib, err := library.Open(ctx, cfg, newLogger(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}
	return lib, nil
}

// runTUI runs the full interactive TUI. Logs go to a file so they do not
// draw over the screen.
func runTUI(cmd *cobra.Command, args []string) error {
	logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	logger := newLogger(logFile)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	lib, err := library.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer lib.Close()

	// Captures arriving through a running "marks serve" show up live.
	remote := make(chan []string, 16)
	if cfg.Server.NotifyURL != "" {
		go func() {
			err := notify.Subscribe(ctx, cfg.Server.NotifyURL, notify.Options{Logger: logger}, func(ids []string) {
				select {
				case remote <- ids:
				case <-ctx.Done():
				}
			})
			if err != nil {
				logger.Warn("notify.stopped", "err", err)
			}
		}()
	}

	app := tui.NewApp(tui.AppParams{Context: ctx, Library: lib, Remote: remote})
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}
	return nil
}
