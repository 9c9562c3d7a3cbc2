package query_test

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/nikbrunner/marks/internal/collection"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/query"
	"github.com/nikbrunner/marks/internal/taggraph"
	"gotest.tools/v3/assert"
)

func workGraph() *taggraph.Graph {
	return taggraph.New([]model.Tag{
		{ID: "A", Label: "work"},
		{ID: "B", Label: "urgent", ParentIDs: []string{"A"}},
		{ID: "C", Label: "home"},
	})
}

func TestMatches_WorkUrgentScenario(t *testing.T) {
	g := workGraph()
	x := model.Bookmark{ID: "x", TagIDs: []string{"B"}}

	c := query.DefaultCriteria()
	c.Included = []string{"A"}

	c.IncludeDescendants = false
	assert.Assert(t, !query.Matches(x, c, g.AncestryOf), "A is not a direct tag of x")

	c.IncludeDescendants = true
	assert.Assert(t, query.Matches(x, c, g.AncestryOf), "A is in the ancestry of x's tags")
}

func TestMatches(t *testing.T) {
	g := workGraph()

	tests := []struct {
		name   string
		b      model.Bookmark
		modify func(*query.Criteria)
		want   bool
	}{
		{
			name: "empty criteria keeps inbox bookmark",
			b:    model.Bookmark{ID: "1"},
			want: true,
		},
		{
			name: "archived bookmark outside inbox scope",
			b:    model.Bookmark{ID: "1", IsArchived: true},
			want: false,
		},
		{
			name:   "archived bookmark in archive scope",
			b:      model.Bookmark{ID: "1", IsArchived: true},
			modify: func(c *query.Criteria) { c.Archived = true },
			want:   true,
		},
		{
			name:   "tagged only drops untagged",
			b:      model.Bookmark{ID: "1"},
			modify: func(c *query.Criteria) { c.Tagged = query.TaggedOnly },
			want:   false,
		},
		{
			name:   "untagged only drops tagged",
			b:      model.Bookmark{ID: "1", TagIDs: []string{"C"}},
			modify: func(c *query.Criteria) { c.Tagged = query.UntaggedOnly },
			want:   false,
		},
		{
			name:   "all included must be direct",
			b:      model.Bookmark{ID: "1", TagIDs: []string{"A", "C"}},
			modify: func(c *query.Criteria) { c.Included = []string{"A", "C"} },
			want:   true,
		},
		{
			name: "missing one included direct tag without ancestry",
			b:    model.Bookmark{ID: "1", TagIDs: []string{"A"}},
			modify: func(c *query.Criteria) {
				c.Included = []string{"A", "C"}
				c.IncludeDescendants = false
			},
			want: false,
		},
		{
			name:   "any included tag in ancestry is enough",
			b:      model.Bookmark{ID: "1", TagIDs: []string{"B"}},
			modify: func(c *query.Criteria) { c.Included = []string{"A", "C"} },
			want:   true,
		},
		{
			name:   "excluded direct tag",
			b:      model.Bookmark{ID: "1", TagIDs: []string{"C"}},
			modify: func(c *query.Criteria) { c.Excluded = []string{"C"} },
			want:   false,
		},
		{
			name:   "excluded ancestor",
			b:      model.Bookmark{ID: "1", TagIDs: []string{"B"}},
			modify: func(c *query.Criteria) { c.Excluded = []string{"A"} },
			want:   false,
		},
		{
			name: "excluded ancestor ignored without descendants",
			b:    model.Bookmark{ID: "1", TagIDs: []string{"B"}},
			modify: func(c *query.Criteria) {
				c.Excluded = []string{"A"}
				c.IncludeDescendants = false
			},
			want: true,
		},
		{
			name: "exclusion wins over inclusion",
			b:    model.Bookmark{ID: "1", TagIDs: []string{"B", "C"}},
			modify: func(c *query.Criteria) {
				c.Included = []string{"B"}
				c.Excluded = []string{"C"}
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := query.DefaultCriteria()
			if tt.modify != nil {
				tt.modify(&c)
			}
			assert.Equal(t, query.Matches(tt.b, c, g.AncestryOf), tt.want)
		})
	}
}

func TestSort_RatingScenario(t *testing.T) {
	bookmarks := []model.Bookmark{
		{ID: "five", Rating: 5},
		{ID: "one", Rating: 1},
		{ID: "nine", Rating: 9},
	}

	query.Sort(bookmarks, query.SortRating, true)
	assert.DeepEqual(t, ratings(bookmarks), []int{9, 5, 1})

	query.Sort(bookmarks, query.SortRating, false)
	assert.DeepEqual(t, ratings(bookmarks), []int{1, 5, 9})
}

func TestSort_ReversalIsExact(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var input []model.Bookmark
	for i := range 12 {
		input = append(input, model.Bookmark{
			ID:          fmt.Sprintf("b%02d", i),
			Title:       []string{"b", "a", "B", "a"}[i%4],
			Rating:      i % 3,
			DateCreated: base.Add(time.Duration(i%5) * time.Hour),
		})
	}

	keys := []string{query.SortRating, query.SortTitle, query.SortDateCreated, query.SortWidth, "unknown"}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			desc := slices.Clone(input)
			asc := slices.Clone(input)
			query.Sort(desc, key, true)
			query.Sort(asc, key, false)

			slices.Reverse(asc)
			assert.DeepEqual(t, ids(desc), ids(asc))
		})
	}
}

func TestCompare_StringsAreCaseSensitive(t *testing.T) {
	upper := model.Bookmark{ID: "1", Title: "Zebra"}
	lower := model.Bookmark{ID: "2", Title: "apple"}

	// "Z" sorts before "a" in byte order.
	assert.Assert(t, query.Compare(upper, lower, query.SortTitle, false) < 0)
}

func TestPageCountAndPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		page, size int
		want       []int
	}{
		{1, 2, []int{1, 2}},
		{3, 2, []int{5}},
		{4, 2, []int{}},
		{0, 2, []int{}},
		{1, 10, []int{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d size %d", tt.page, tt.size), func(t *testing.T) {
			assert.DeepEqual(t, query.Paginate(items, tt.page, tt.size), tt.want)
		})
	}

	assert.Equal(t, query.PageCount(0, 21), 1)
	assert.Equal(t, query.PageCount(21, 21), 1)
	assert.Equal(t, query.PageCount(22, 21), 2)
	assert.Equal(t, query.PageOf(21, 21), 2)
}

func TestView_FilteredMatchesPredicate(t *testing.T) {
	g := workGraph()
	coll := collection.New([]model.Bookmark{
		{ID: "x", TagIDs: []string{"B"}},
		{ID: "y", TagIDs: []string{"C"}},
		{ID: "z"},
		{ID: "old", TagIDs: []string{"A"}, IsArchived: true},
	})
	v := query.NewView(coll, g, query.DefaultCriteria())

	v.ToggleIncluded("A")
	c := v.Criteria()
	for _, b := range coll.All() {
		want := query.Matches(b, c, g.AncestryOf)
		got := slices.Contains(v.FilteredIDs(), b.ID)
		assert.Equal(t, got, want, "bookmark %s", b.ID)
	}
	assert.DeepEqual(t, v.FilteredIDs(), []string{"x"})
}

func TestView_RecomputesOnCollectionChange(t *testing.T) {
	g := workGraph()
	coll := collection.New([]model.Bookmark{{ID: "a"}})
	v := query.NewView(coll, g, query.DefaultCriteria())

	assert.Equal(t, len(v.Filtered()), 1)

	assert.NilError(t, coll.Add(model.Bookmark{ID: "b"}))
	assert.Equal(t, len(v.Filtered()), 2)

	_, err := coll.Update([]string{"a"}, func(b *model.Bookmark) error {
		b.IsArchived = true
		return nil
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, v.FilteredIDs(), []string{"b"})
}

func TestView_PagingAndClamp(t *testing.T) {
	var bookmarks []model.Bookmark
	for i := range 5 {
		bookmarks = append(bookmarks, model.Bookmark{ID: fmt.Sprintf("b%d", i), Rating: i})
	}
	coll := collection.New(bookmarks)

	c := query.DefaultCriteria()
	c.PageSize = 2
	c.SortKey = query.SortRating
	v := query.NewView(coll, taggraph.New(nil), c)

	assert.Equal(t, v.PageCount(), 3)
	assert.DeepEqual(t, ids(v.Displayed()), []string{"b4", "b3"})

	v.SetPage(3)
	assert.DeepEqual(t, ids(v.Displayed()), []string{"b0"})

	coll.Remove("b0")
	assert.Equal(t, v.PageCount(), 2)
	assert.Equal(t, len(v.Displayed()), 0, "page is not clamped implicitly")

	assert.Assert(t, v.ClampPage())
	assert.Equal(t, v.Criteria().Page, 2)
	assert.Assert(t, !v.ClampPage())

	page, ok := v.PageOfID("b4")
	assert.Assert(t, ok)
	assert.Equal(t, page, 1)
}

func TestView_SetArchivedResetsPage(t *testing.T) {
	v := query.NewView(collection.New(nil), taggraph.New(nil), query.DefaultCriteria())
	v.SetPage(4)
	v.SetArchived(true)

	assert.Equal(t, v.Criteria().Page, 1)
	assert.Assert(t, v.Criteria().Archived)
}

func TestView_ToggleIncludedAndExcludedAreExclusive(t *testing.T) {
	v := query.NewView(collection.New(nil), taggraph.New(nil), query.DefaultCriteria())

	v.ToggleIncluded("A")
	v.ToggleExcluded("A")
	c := v.Criteria()
	assert.DeepEqual(t, c.Included, []string{})
	assert.DeepEqual(t, c.Excluded, []string{"A"})

	v.ToggleExcluded("A")
	assert.DeepEqual(t, v.Criteria().Excluded, []string{})
}

func TestTagCounts_IncludeAncestry(t *testing.T) {
	g := workGraph()
	counts := query.TagCounts([]model.Bookmark{
		{ID: "1", TagIDs: []string{"B"}},
		{ID: "2", TagIDs: []string{"A", "B"}},
		{ID: "3", TagIDs: []string{"C", "ghost"}},
	}, g)

	assert.Equal(t, counts["A"], 2, "counted once per bookmark")
	assert.Equal(t, counts["B"], 2)
	assert.Equal(t, counts["C"], 1)
	assert.Equal(t, counts["ghost"], 0)

	opts := query.TagOptions(g, counts)
	assert.Equal(t, len(opts), 3)
	// Ties keep label order.
	assert.Equal(t, opts[0].Tag.Label, "urgent")
	assert.Equal(t, opts[1].Tag.Label, "work")
	assert.Equal(t, opts[2].Tag.Label, "home")
	assert.DeepEqual(t, opts[0].ParentLabels, []string{"work"})
}

func ratings(bookmarks []model.Bookmark) []int {
	out := make([]int, len(bookmarks))
	for i, b := range bookmarks {
		out[i] = b.Rating
	}
	return out
}

func ids(bookmarks []model.Bookmark) []string {
	out := make([]string, len(bookmarks))
	for i, b := range bookmarks {
		out[i] = b.ID
	}
	return out
}
