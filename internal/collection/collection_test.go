package collection_test

import (
	"errors"
	"testing"

	"github.com/nikbrunner/marks/internal/collection"
	"github.com/nikbrunner/marks/internal/model"
	"gotest.tools/v3/assert"
)

func testCollection() *collection.Collection {
	return collection.New([]model.Bookmark{
		{ID: "b", ImageHash: "h2", TagIDs: []string{"t1"}},
		{ID: "a", ImageHash: "h1", TagIDs: []string{"t1", "t2"}},
		{ID: "c", IsArchived: true},
	})
}

func TestAll_SortedByID(t *testing.T) {
	c := testCollection()
	all := c.All()

	assert.Equal(t, len(all), 3)
	assert.Equal(t, all[0].ID, "a")
	assert.Equal(t, all[1].ID, "b")
	assert.Equal(t, all[2].ID, "c")
}

func TestGet_ReturnsCopy(t *testing.T) {
	c := testCollection()
	b, ok := c.Get("a")
	assert.Assert(t, ok)

	b.TagIDs[0] = "changed"
	b.Title = "changed"

	again, _ := c.Get("a")
	assert.Equal(t, again.TagIDs[0], "t1")
	assert.Equal(t, again.Title, "")
}

func TestByImageHash(t *testing.T) {
	c := testCollection()

	got, err := c.ByImageHash("h1")
	assert.NilError(t, err)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].ID, "a")

	got, err = c.ByImageHash("missing")
	assert.NilError(t, err)
	assert.Equal(t, len(got), 0)

	got, err = c.ByImageHash("")
	assert.NilError(t, err)
	assert.Equal(t, len(got), 0, "empty hash never matches")
}

func TestByImageHash_ReportsDuplicates(t *testing.T) {
	// New bypasses the hash check, as stored data may already be corrupt.
	c := collection.New([]model.Bookmark{
		{ID: "a", ImageHash: "dup"},
		{ID: "b", ImageHash: "dup"},
	})

	got, err := c.ByImageHash("dup")
	assert.Assert(t, errors.Is(err, model.ErrDuplicateHash))
	assert.Assert(t, errors.Is(err, model.ErrIntegrity))
	assert.Equal(t, len(got), 2)
	assert.DeepEqual(t, c.DuplicateHashes(), []string{"dup"})
}

func TestByTagIDAndArchived(t *testing.T) {
	c := testCollection()

	assert.Equal(t, len(c.ByTagID("t1")), 2)
	assert.Equal(t, len(c.ByTagID("t2")), 1)
	assert.Equal(t, len(c.Archived()), 1)
	assert.Equal(t, c.Archived()[0].ID, "c")
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name    string
		add     []model.Bookmark
		wantErr error
		wantLen int
	}{
		{"new bookmark", []model.Bookmark{{ID: "d", ImageHash: "h3"}}, nil, 4},
		{"two without hash", []model.Bookmark{{ID: "d"}, {ID: "e"}}, nil, 5},
		{"duplicate id", []model.Bookmark{{ID: "a"}}, model.ErrDuplicateID, 3},
		{"duplicate id within batch", []model.Bookmark{{ID: "d"}, {ID: "d"}}, model.ErrDuplicateID, 3},
		{"duplicate hash", []model.Bookmark{{ID: "d", ImageHash: "h1"}}, model.ErrDuplicateHash, 3},
		{"duplicate hash within batch", []model.Bookmark{{ID: "d", ImageHash: "x"}, {ID: "e", ImageHash: "x"}}, model.ErrDuplicateHash, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCollection()
			before := c.Version()

			err := c.Add(tt.add...)
			if tt.wantErr != nil {
				assert.Assert(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Equal(t, c.Version(), before, "failed add must not bump the version")
			} else {
				assert.NilError(t, err)
				assert.Assert(t, c.Version() > before)
			}
			assert.Equal(t, c.Len(), tt.wantLen)
		})
	}
}

func TestRemove(t *testing.T) {
	c := testCollection()

	assert.Equal(t, c.Remove("a", "missing"), 1)
	assert.Assert(t, !c.Has("a"))

	before := c.Version()
	assert.Equal(t, c.Remove("missing"), 0)
	assert.Equal(t, c.Version(), before)
}

func TestUpdate_AllOrNothing(t *testing.T) {
	c := testCollection()
	boom := errors.New("boom")

	_, err := c.Update([]string{"a", "b"}, func(b *model.Bookmark) error {
		if b.ID == "b" {
			return boom
		}
		b.Rating = 7
		return nil
	})
	assert.Assert(t, errors.Is(err, boom))

	a, _ := c.Get("a")
	assert.Equal(t, a.Rating, 0, "failed update must not leak partial changes")
}

func TestUpdate_SkipsUnknownAndDuplicates(t *testing.T) {
	c := testCollection()
	calls := 0

	ids, err := c.Update([]string{"a", "missing", "a"}, func(b *model.Bookmark) error {
		calls++
		b.Rating++
		return nil
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, ids, []string{"a"})
	assert.Equal(t, calls, 1)

	a, _ := c.Get("a")
	assert.Equal(t, a.Rating, 1)
}

func TestUpdateWhere(t *testing.T) {
	c := testCollection()

	ids, err := c.UpdateWhere(
		func(b model.Bookmark) bool { return b.HasTag("t1") },
		func(b *model.Bookmark) error { b.IsSelected = true; return nil },
	)
	assert.NilError(t, err)
	assert.DeepEqual(t, ids, []string{"a", "b"})
	assert.DeepEqual(t, c.SelectedIDs(), []string{"a", "b"})
}

func TestMerge_PreservesSelection(t *testing.T) {
	c := testCollection()
	_, err := c.Update([]string{"a"}, func(b *model.Bookmark) error { b.IsSelected = true; return nil })
	assert.NilError(t, err)

	c.Merge(
		model.Bookmark{ID: "a", Title: "remote title"},
		model.Bookmark{ID: "z", Title: "new", IsSelected: true},
	)

	a, _ := c.Get("a")
	assert.Equal(t, a.Title, "remote title")
	assert.Assert(t, a.IsSelected)

	z, ok := c.Get("z")
	assert.Assert(t, ok)
	assert.Assert(t, !z.IsSelected, "incoming selection flags are ignored")
}

func TestReplace_KeepsSelectionOfSurvivors(t *testing.T) {
	c := testCollection()
	_, err := c.Update([]string{"a", "b"}, func(b *model.Bookmark) error { b.IsSelected = true; return nil })
	assert.NilError(t, err)

	c.Replace([]model.Bookmark{{ID: "a"}, {ID: "x"}})

	assert.DeepEqual(t, c.SelectedIDs(), []string{"a"})
	assert.Equal(t, c.Len(), 2)
}
