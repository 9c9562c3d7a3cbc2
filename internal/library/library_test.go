package library_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nikbrunner/marks/internal/assets"
	"github.com/nikbrunner/marks/internal/library"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/query"
	"github.com/nikbrunner/marks/internal/selection"
	"github.com/nikbrunner/marks/internal/storage"
	"gotest.tools/v3/assert"
)

func openLibrary(t *testing.T) *library.Library {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	gw, err := storage.NewJSONGateway(filepath.Join(dir, "marks.json"))
	assert.NilError(t, err)
	assert.NilError(t, gw.InsertTag(ctx, model.Tag{ID: "work", Label: "work", Aliases: []string{}, ParentIDs: []string{}}))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Hour)
		assert.NilError(t, gw.InsertBookmark(ctx, model.Bookmark{
			ID: id, PageURL: "https://" + id + ".example", DateCreated: at, DateModified: at, TagIDs: []string{"work"},
		}))
	}

	criteria := query.DefaultCriteria()
	criteria.PageSize = 2
	criteria.SortDesc = false
	lib := library.New(gw, assets.NewFileStore(filepath.Join(dir, "assets")), criteria)
	assert.NilError(t, lib.Reload(ctx))
	t.Cleanup(func() { lib.Close() })
	return lib
}

func TestHandleKey_Navigate(t *testing.T) {
	lib := openLibrary(t)
	ctx := context.Background()

	handled, err := lib.HandleKey(ctx, "right")
	assert.NilError(t, err)
	assert.Assert(t, !handled, "nothing selected")

	lib.Selection.SelectOnly("b")
	handled, err = lib.HandleKey(ctx, "right")
	assert.NilError(t, err)
	assert.Assert(t, handled)
	assert.DeepEqual(t, lib.Bookmarks.SelectedIDs(), []string{"c"})
	assert.Equal(t, lib.View.Criteria().Page, 2)

	_, err = lib.HandleKey(ctx, "right")
	assert.NilError(t, err)
	assert.DeepEqual(t, lib.Bookmarks.SelectedIDs(), []string{"a"})
	assert.Equal(t, lib.View.Criteria().Page, 1)

	_, err = lib.HandleKey(ctx, "left")
	assert.NilError(t, err)
	assert.DeepEqual(t, lib.Bookmarks.SelectedIDs(), []string{"c"})
}

func TestHandleKey_Rating(t *testing.T) {
	lib := openLibrary(t)
	ctx := context.Background()

	lib.Selection.SelectOnly("a")
	handled, err := lib.HandleKey(ctx, "7")
	assert.NilError(t, err)
	assert.Assert(t, handled)
	a, _ := lib.Bookmarks.Get("a")
	assert.Equal(t, a.Rating, 7)

	lib.Selection.Toggle([]selection.Entry{selection.Select("b")})
	handled, err = lib.HandleKey(ctx, "3")
	assert.NilError(t, err)
	assert.Assert(t, !handled, "rating needs a sole selection")

	lib.Selection.SelectOnly("a")
	for _, key := range []string{"x", "0", "-1", "+5", "10"} {
		handled, err = lib.HandleKey(ctx, key)
		assert.NilError(t, err)
		assert.Assert(t, !handled, "key %q", key)
	}
	a, _ = lib.Bookmarks.Get("a")
	assert.Equal(t, a.Rating, 7)
}

func TestDeleteTag_ForgetsCriteria(t *testing.T) {
	lib := openLibrary(t)
	ctx := context.Background()
	lib.View.ToggleIncluded("work")
	assert.Equal(t, len(lib.View.Filtered()), 3)

	assert.NilError(t, lib.DeleteTag(ctx, "work"))
	assert.DeepEqual(t, lib.View.Criteria().Included, []string{})
	assert.Equal(t, len(lib.View.Filtered()), 3)
	a, _ := lib.Bookmarks.Get("a")
	assert.DeepEqual(t, a.TagIDs, []string{})
}

func TestDeleteSelected_ClampsPage(t *testing.T) {
	lib := openLibrary(t)
	ctx := context.Background()
	lib.View.SetPage(2)

	lib.Selection.SelectOnly("c")
	res, err := lib.DeleteSelected(ctx)
	assert.NilError(t, err)
	assert.DeepEqual(t, res.Archived, []string{"c"})
	assert.Equal(t, lib.View.Criteria().Page, 1)
	assert.Equal(t, len(lib.View.Displayed()), 2)
}
