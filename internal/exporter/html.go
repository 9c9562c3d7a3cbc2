package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nikbrunner/marks/internal/model"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/marks-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("marks-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML writes bookmarks as Netscape bookmark HTML. Archived bookmarks
// go into an "Archive" folder; tags are written as the TAGS attribute.
func ExportHTML(tags []model.Tag, bookmarks []model.Bookmark) string {
	labels := make(map[string]string, len(tags))
	for _, t := range tags {
		labels[t.ID] = t.Label
	}

	sorted := make([]model.Bookmark, len(bookmarks))
	copy(sorted, bookmarks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DateCreated.Before(sorted[j].DateCreated)
	})

	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	var archived []model.Bookmark
	for _, bm := range sorted {
		if bm.IsArchived {
			archived = append(archived, bm)
			continue
		}
		writeBookmark(&b, bm, labels, 1)
	}

	if len(archived) > 0 {
		prefix := strings.Repeat("    ", 1)
		fmt.Fprintf(&b, "%s<DT><H3>Archive</H3>\n", prefix)
		fmt.Fprintf(&b, "%s<DL><p>\n", prefix)
		for _, bm := range archived {
			writeBookmark(&b, bm, labels, 2)
		}
		fmt.Fprintf(&b, "%s</DL><p>\n", prefix)
	}

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

func writeBookmark(b *strings.Builder, bm model.Bookmark, labels map[string]string, indent int) {
	prefix := strings.Repeat("    ", indent)

	var names []string
	for _, id := range bm.TagIDs {
		// Commas separate labels in TAGS.
		if label, ok := labels[id]; ok && !strings.Contains(label, ",") {
			names = append(names, label)
		}
	}
	tagAttr := ""
	if len(names) > 0 {
		tagAttr = fmt.Sprintf(" TAGS=\"%s\"", html.EscapeString(strings.Join(names, ",")))
	}

	fmt.Fprintf(b,
		"%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\" LAST_MODIFIED=\"%d\"%s>%s</A>\n",
		prefix,
		html.EscapeString(bm.PageURL),
		bm.DateCreated.Unix(),
		bm.DateModified.Unix(),
		tagAttr,
		html.EscapeString(bm.Title),
	)
}
