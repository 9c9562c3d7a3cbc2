package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [id...]",
	Short: "Re-hash screenshots and repair their records",
	Long: `Refresh reads the screenshot of each bookmark, recomputes its hash and
updates the record when the file changed on disk. Without ids every
bookmark with a screenshot is refreshed.`,
	RunE: runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()

	ids := args
	if len(ids) == 0 {
		for _, b := range lib.Bookmarks.All() {
			if b.ImageHash != "" || b.ImagePath != "" {
				ids = append(ids, b.ID)
			}
		}
	}
	if len(ids) == 0 {
		fmt.Println("Nothing to refresh")
		return nil
	}

	results := lib.Actions.RefreshMany(cmd.Context(), ids, func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rRefreshing %d/%d", done, total)
	})
	fmt.Fprintln(os.Stderr)

	var changed int
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.ID, r.Err))
			continue
		}
		if r.Changed {
			changed++
		}
	}

	fmt.Printf("Refreshed %d bookmarks, %d changed, %d failed\n", len(results), changed, len(errs))
	return errors.Join(errs...)
}
