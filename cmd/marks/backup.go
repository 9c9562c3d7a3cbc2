package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/backup"
	"github.com/nikbrunner/marks/internal/storage"
)

var flagRestoreForce bool

var backupCmd = &cobra.Command{
	Use:   "backup [path]",
	Short: "Write a compressed backup of the library",
	Long: `Backup writes every tag and bookmark to an lz4-compressed JSON file,
by default <data dir>/backups/marks-YYYYMMDD-HHMMSS.json.lz4. Screenshots
are not included.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <path>",
	Short: "Replace the library with a backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&flagRestoreForce, "force", "f", false, "replace a library that is not empty")
}

func runBackup(cmd *cobra.Command, args []string) error {
	now := time.Now()
	path := backup.DefaultPath(cfg.DataDir, now)
	if len(args) > 0 {
		path = args[0]
	}

	gw, err := storage.OpenGateway(cfg)
	if err != nil {
		return err
	}
	defer gw.Close()

	snap, err := storage.LoadSnapshot(cmd.Context(), gw)
	if err != nil {
		return err
	}
	if err := backup.WriteFile(path, snap, now); err != nil {
		return err
	}

	fmt.Printf("Backed up %d bookmarks, %d tags to %s\n", len(snap.Bookmarks), len(snap.Tags), path)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	snap, created, err := backup.ReadFile(args[0])
	if err != nil {
		return err
	}

	gw, err := storage.OpenGateway(cfg)
	if err != nil {
		return err
	}
	defer gw.Close()

	if !flagRestoreForce {
		current, err := storage.LoadSnapshot(cmd.Context(), gw)
		if err != nil {
			return err
		}
		if len(current.Bookmarks) > 0 || len(current.Tags) > 0 {
			return fmt.Errorf("library holds %d bookmarks and %d tags; use --force to replace them",
				len(current.Bookmarks), len(current.Tags))
		}
	}

	if err := gw.ReplaceAll(cmd.Context(), snap); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	fmt.Printf("Restored %d bookmarks, %d tags from backup of %s\n",
		len(snap.Bookmarks), len(snap.Tags), created.Local().Format(time.DateTime))
	return nil
}
