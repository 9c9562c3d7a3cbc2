package exporter

import (
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/marks/internal/importer"
	"github.com/nikbrunner/marks/internal/model"
)

func TestExportHTML_Empty(t *testing.T) {
	html := ExportHTML(nil, nil)

	// Should have basic structure even when empty
	if !strings.Contains(html, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Error("expected DOCTYPE declaration")
	}
	if !strings.Contains(html, "<TITLE>Bookmarks</TITLE>") {
		t.Error("expected TITLE element")
	}
	if strings.Contains(html, "Archive</H3>") {
		t.Error("expected no archive folder without archived bookmarks")
	}
}

func TestExportHTML_SingleBookmark(t *testing.T) {
	html := ExportHTML(nil, []model.Bookmark{{
		ID:           "b1",
		Title:        "GitHub",
		PageURL:      "https://github.com",
		TagIDs:       []string{},
		DateCreated:  time.Unix(1700000000, 0),
		DateModified: time.Unix(1700000500, 0),
	}})

	if !strings.Contains(html, `<A HREF="https://github.com"`) {
		t.Error("expected bookmark URL")
	}
	if !strings.Contains(html, "GitHub</A>") {
		t.Error("expected bookmark title")
	}
	if !strings.Contains(html, `ADD_DATE="1700000000"`) {
		t.Error("expected ADD_DATE timestamp")
	}
	if !strings.Contains(html, `LAST_MODIFIED="1700000500"`) {
		t.Error("expected LAST_MODIFIED timestamp")
	}
	if strings.Contains(html, "TAGS=") {
		t.Error("expected no TAGS attribute for untagged bookmark")
	}
}

func TestExportHTML_TagsAndArchive(t *testing.T) {
	tags := []model.Tag{
		{ID: "t1", Label: "go"},
		{ID: "t2", Label: "a,b"},
	}
	html := ExportHTML(tags, []model.Bookmark{
		{ID: "b1", Title: "Go", PageURL: "https://go.dev", TagIDs: []string{"t1", "t2", "gone"}},
		{ID: "b2", Title: "Old", PageURL: "https://old.example", IsArchived: true},
	})

	if !strings.Contains(html, `TAGS="go">Go</A>`) {
		t.Errorf("expected TAGS with known labels only, got:\n%s", html)
	}
	archive := strings.Index(html, "Archive</H3>")
	old := strings.Index(html, "Old</A>")
	if archive < 0 || old < archive {
		t.Error("expected archived bookmark inside Archive folder")
	}
}

func TestExportHTML_EscapesSpecialChars(t *testing.T) {
	html := ExportHTML(nil, []model.Bookmark{{
		ID:      "b1",
		Title:   "Tom & Jerry <3",
		PageURL: "https://example.com/?a=1&b=2",
	}})

	if !strings.Contains(html, "Tom &amp; Jerry &lt;3</A>") {
		t.Error("expected escaped title")
	}
	if !strings.Contains(html, `HREF="https://example.com/?a=1&amp;b=2"`) {
		t.Error("expected escaped URL")
	}
}

func TestExportHTML_RoundTrip(t *testing.T) {
	created := time.Unix(1700000000, 0).UTC()
	tags := []model.Tag{{ID: "t1", Label: "reading"}, {ID: "t2", Label: "go"}}
	html := ExportHTML(tags, []model.Bookmark{
		{ID: "b1", Title: "Go Blog", PageURL: "https://go.dev/blog", TagIDs: []string{"t1", "t2"}, DateCreated: created, DateModified: created},
	})

	gotTags, gotBookmarks, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotTags) != 2 || gotTags[0].Label != "reading" || gotTags[1].Label != "go" {
		t.Fatalf("expected tags reading and go, got %+v", gotTags)
	}
	if len(gotBookmarks) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(gotBookmarks))
	}
	b := gotBookmarks[0]
	if b.PageURL != "https://go.dev/blog" || b.Title != "Go Blog" {
		t.Errorf("unexpected bookmark %+v", b)
	}
	if len(b.TagIDs) != 2 || b.TagIDs[0] != gotTags[0].ID || b.TagIDs[1] != gotTags[1].ID {
		t.Errorf("expected both tags on bookmark, got %v", b.TagIDs)
	}
	if !b.DateCreated.Equal(created) {
		t.Errorf("expected created %v, got %v", created, b.DateCreated)
	}
}
