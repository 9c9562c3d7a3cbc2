package importer_test

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/marks/internal/importer"
	"github.com/nikbrunner/marks/internal/model"
)

func TestParseHTML_SingleBookmark(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><A HREF="https://example.com" ADD_DATE="1234567890">Example Site</A>
</DL><p>`

	tags, bookmarks, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tags) != 0 {
		t.Errorf("expected 0 tags, got %d", len(tags))
	}
	if len(bookmarks) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(bookmarks))
	}

	b := bookmarks[0]
	if b.Title != "Example Site" || b.OriginalTitle != "Example Site" {
		t.Errorf("expected title 'Example Site', got %q / %q", b.Title, b.OriginalTitle)
	}
	if b.PageURL != "https://example.com" {
		t.Errorf("expected URL 'https://example.com', got %q", b.PageURL)
	}
	if len(b.TagIDs) != 0 {
		t.Errorf("expected no tags at root, got %v", b.TagIDs)
	}
	if b.ImageHash != "" {
		t.Errorf("expected no image hash, got %q", b.ImageHash)
	}
	if !b.DateCreated.Equal(time.Unix(1234567890, 0)) {
		t.Errorf("expected created 1234567890, got %v", b.DateCreated)
	}
	if b.ID == "" {
		t.Error("expected non-empty ID")
	}
}

func tagByLabel(t *testing.T, tags []model.Tag, label string) model.Tag {
	t.Helper()
	for _, tag := range tags {
		if tag.Label == label {
			return tag
		}
	}
	t.Fatalf("tag %q not found", label)
	return model.Tag{}
}

func TestParseHTML_NestedFoldersBecomeTags(t *testing.T) {
	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><H3 ADD_DATE="1234567890">Development</H3>
    <DL><p>
        <DT><H3 ADD_DATE="1234567890">React</H3>
        <DL><p>
            <DT><A HREF="https://react.dev" ADD_DATE="1234567890">React Docs</A>
        </DL><p>
        <DT><A HREF="https://github.com" ADD_DATE="1234567890">GitHub</A>
    </DL><p>
    <DT><A HREF="https://google.com" ADD_DATE="1234567890">Google</A>
</DL><p>`

	tags, bookmarks, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}

	dev := tagByLabel(t, tags, "Development")
	react := tagByLabel(t, tags, "React")
	if len(dev.ParentIDs) != 0 {
		t.Errorf("expected Development at root, got parents %v", dev.ParentIDs)
	}
	if !slices.Equal(react.ParentIDs, []string{dev.ID}) {
		t.Errorf("expected React under Development, got %v", react.ParentIDs)
	}

	want := map[string][]string{
		"https://react.dev":  {react.ID},
		"https://github.com": {dev.ID},
		"https://google.com": {},
	}
	if len(bookmarks) != len(want) {
		t.Fatalf("expected %d bookmarks, got %d", len(want), len(bookmarks))
	}
	for _, b := range bookmarks {
		if !slices.Equal(b.TagIDs, want[b.PageURL]) {
			t.Errorf("%s: expected tags %v, got %v", b.PageURL, want[b.PageURL], b.TagIDs)
		}
	}
}

func TestParseHTML_TagsAttribute(t *testing.T) {
	html := `<DL><p>
    <DT><H3>Reading</H3>
    <DL><p>
        <DT><A HREF="https://go.dev/blog" TAGS="go, blog,Reading">Go Blog</A>
    </DL><p>
    <DT><A HREF="https://go.dev" TAGS="go" LAST_MODIFIED="1700000000">Go</A>
</DL><p>`

	tags, bookmarks, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("expected 3 tags (Reading, go, blog), got %d", len(tags))
	}

	reading := tagByLabel(t, tags, "Reading")
	gotag := tagByLabel(t, tags, "go")
	blog := tagByLabel(t, tags, "blog")

	if !slices.Equal(bookmarks[0].TagIDs, []string{reading.ID, gotag.ID, blog.ID}) {
		t.Errorf("unexpected tags on Go Blog: %v", bookmarks[0].TagIDs)
	}
	if !slices.Equal(bookmarks[1].TagIDs, []string{gotag.ID}) {
		t.Errorf("unexpected tags on Go: %v", bookmarks[1].TagIDs)
	}
	if !bookmarks[1].DateModified.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("expected LAST_MODIFIED to set DateModified, got %v", bookmarks[1].DateModified)
	}
}

func TestParseHTML_RepeatedFolderNameSharesTag(t *testing.T) {
	html := `<DL><p>
    <DT><H3>Work</H3>
    <DL><p>
        <DT><H3>Docs</H3>
        <DL><p><DT><A HREF="https://a.example">A</A></DL><p>
    </DL><p>
    <DT><H3>Home</H3>
    <DL><p>
        <DT><H3>Docs</H3>
        <DL><p><DT><A HREF="https://b.example">B</A></DL><p>
    </DL><p>
</DL><p>`

	tags, bookmarks, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("expected 3 tags, got %d", len(tags))
	}

	docs := tagByLabel(t, tags, "Docs")
	work := tagByLabel(t, tags, "Work")
	home := tagByLabel(t, tags, "Home")
	if !slices.Equal(docs.ParentIDs, []string{work.ID, home.ID}) {
		t.Errorf("expected Docs under Work and Home, got %v", docs.ParentIDs)
	}
	for _, b := range bookmarks {
		if !slices.Equal(b.TagIDs, []string{docs.ID}) {
			t.Errorf("%s: expected Docs tag, got %v", b.PageURL, b.TagIDs)
		}
	}
}

func TestParseHTML_SkipsEmptyHref(t *testing.T) {
	html := `<DL><p>
    <DT><A HREF="">Empty</A>
    <DT><A>Missing</A>
    <DT><A HREF="https://ok.example"></A>
</DL><p>`

	_, bookmarks, err := importer.ParseHTMLBookmarks(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookmarks) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(bookmarks))
	}
	if bookmarks[0].Title != "https://ok.example" {
		t.Errorf("expected URL as title fallback, got %q", bookmarks[0].Title)
	}
}
