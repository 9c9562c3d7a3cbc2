package main

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/picker"
	"github.com/nikbrunner/marks/internal/search"
)

var (
	flagSearchArchived bool
	flagSearchOpen     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Fuzzy search bookmarks by title or URL",
	Long: `Search fuzzy-matches the query against bookmark titles, falling back to
URLs. A single match is printed directly; several open a picker where Enter
prints the URL and y copies it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVarP(&flagSearchArchived, "archived", "a", false, "search archived bookmarks too")
	searchCmd.Flags().BoolVarP(&flagSearchOpen, "open", "o", false, "open the chosen bookmark in the browser")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()

	var pool []model.Bookmark
	for _, b := range lib.Bookmarks.All() {
		if flagSearchArchived || !b.IsArchived {
			pool = append(pool, b)
		}
	}

	results := search.Bookmarks(pool, query)
	if len(results) == 0 {
		fmt.Printf("No bookmarks found for '%s'\n", query)
		return nil
	}

	selected, action := results[0].Bookmark, picker.ActionPrint
	if len(results) > 1 {
		finalModel, err := tea.NewProgram(picker.New(results, query)).Run()
		if err != nil {
			return fmt.Errorf("run picker: %w", err)
		}
		var ok bool
		selected, action, ok = finalModel.(picker.Picker).Selected()
		if !ok {
			return nil
		}
	}

	switch {
	case flagSearchOpen:
		openURL(selected.PageURL)
	case action == picker.ActionYank:
		if err := clipboard.WriteAll(selected.PageURL); err != nil {
			return fmt.Errorf("copy url: %w", err)
		}
		fmt.Printf("Copied: %s\n", selected.PageURL)
	default:
		fmt.Println(selected.PageURL)
	}
	return nil
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}
