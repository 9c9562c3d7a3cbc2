package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/exporter"
	"github.com/nikbrunner/marks/internal/importer"
	"github.com/nikbrunner/marks/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import <file.html>",
	Short: "Import bookmarks from a browser HTML export",
	Long: `Import reads a Netscape bookmark file as exported by every major browser.
Folders become tags nested under their parent folder, and every bookmark is
tagged with its folder and any TAGS it carries. Bookmarks whose URL is
already in the library are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export bookmarks to a browser HTML file",
	Long: `Export writes every bookmark to a Netscape bookmark file. Tags are kept
in the TAGS attribute; archived bookmarks go into an "Archive" folder.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func runImport(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	tags, bookmarks, err := importer.ParseHTMLBookmarks(file)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()

	res, err := lib.Actions.Import(cmd.Context(), tags, bookmarks)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Printf("Imported %d bookmarks, %d tags", len(res.Bookmarks), len(res.Tags))
	if res.Skipped > 0 {
		fmt.Printf(" (%d duplicates skipped)", res.Skipped)
	}
	fmt.Println()
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	var outputPath string
	if len(args) > 0 {
		outputPath = args[0]
	} else {
		var err error
		outputPath, err = exporter.DefaultExportPath()
		if err != nil {
			return fmt.Errorf("default export path: %w", err)
		}
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

	html := exporter.ExportHTML(snap.Tags, snap.Bookmarks)
	if err := os.WriteFile(outputPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	fmt.Printf("Exported %d bookmarks, %d tags to %s\n", len(snap.Bookmarks), len(snap.Tags), outputPath)
	return nil
}
