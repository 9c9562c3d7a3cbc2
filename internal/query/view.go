package query

import (
	"slices"
	"sync"

	"github.com/nikbrunner/marks/internal/collection"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/reactive"
	"github.com/nikbrunner/marks/internal/taggraph"
)

// View derives the displayed bookmarks from the collection, the tag graph
// and the criteria. Derived lists are memoized and recomputed only after one
// of those inputs changed.
type View struct {
	coll  *collection.Collection
	graph *taggraph.Graph

	mu       sync.RWMutex
	criteria Criteria
	// filterVersion tracks every criterion but the page; pageVersion the page.
	filterVersion reactive.Counter
	pageVersion   reactive.Counter

	scoped    *reactive.Memo[[]model.Bookmark]
	filtered  *reactive.Memo[[]model.Bookmark]
	tagCounts *reactive.Memo[map[string]int]
}

// NewView creates a View. A zero PageSize in criteria falls back to
// DefaultPageSize.
func NewView(coll *collection.Collection, graph *taggraph.Graph, criteria Criteria) *View {
	if criteria.PageSize <= 0 {
		criteria.PageSize = DefaultPageSize
	}
	if criteria.Page < 1 {
		criteria.Page = 1
	}
	v := &View{coll: coll, graph: graph, criteria: criteria.Clone()}

	v.scoped = reactive.NewMemo(func() []model.Bookmark {
		archived := v.Criteria().Archived
		out := make([]model.Bookmark, 0)
		for _, b := range coll.All() {
			if b.IsArchived == archived {
				out = append(out, b)
			}
		}
		return out
	}, coll, &v.filterVersion)

	v.filtered = reactive.NewMemo(func() []model.Bookmark {
		c := v.Criteria()
		out := Filter(v.scoped.Get(), c, graph.AncestryOf)
		Sort(out, c.SortKey, c.SortDesc)
		return out
	}, v.scoped, graph, &v.filterVersion)

	v.tagCounts = reactive.NewMemo(func() map[string]int {
		return TagCounts(v.scoped.Get(), graph)
	}, v.scoped, graph)

	return v
}

// Version implements reactive.Source for the criteria.
func (v *View) Version() uint64 {
	return v.filterVersion.Version() + v.pageVersion.Version()
}

// Criteria returns a copy of the current criteria.
func (v *View) Criteria() Criteria {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.criteria.Clone()
}

// Graph returns the tag graph the view resolves ancestry against.
func (v *View) Graph() *taggraph.Graph {
	return v.graph
}

// Filtered returns every bookmark passing the criteria, sorted.
func (v *View) Filtered() []model.Bookmark {
	return slices.Clone(v.filtered.Get())
}

// FilteredIDs returns the ids of Filtered in order.
func (v *View) FilteredIDs() []string {
	f := v.filtered.Get()
	ids := make([]string, len(f))
	for i, b := range f {
		ids[i] = b.ID
	}
	return ids
}

// Displayed returns the current page of Filtered.
func (v *View) Displayed() []model.Bookmark {
	c := v.Criteria()
	return slices.Clone(Paginate(v.filtered.Get(), c.Page, c.PageSize))
}

// PageCount returns the number of pages of Filtered, at least 1.
func (v *View) PageCount() int {
	return PageCount(len(v.filtered.Get()), v.Criteria().PageSize)
}

// TagCounts returns per-tag counts over the bookmarks in the current
// archive scope, including inherited tags.
func (v *View) TagCounts() map[string]int {
	return v.tagCounts.Get()
}

// TagOptions returns every tag with its count, most used first.
func (v *View) TagOptions() []TagOption {
	return TagOptions(v.graph, v.TagCounts())
}

// ClampPage moves the page back into [1, PageCount]. It reports whether the
// page changed.
func (v *View) ClampPage() bool {
	n := v.PageCount()
	changed := false
	v.update(func(c *Criteria) {
		if c.Page > n {
			c.Page = n
			changed = true
		}
		if c.Page < 1 {
			c.Page = 1
			changed = true
		}
	})
	return changed
}

// PageOfID returns the page holding id in the filtered order.
func (v *View) PageOfID(id string) (int, bool) {
	idx := slices.Index(v.FilteredIDs(), id)
	if idx < 0 {
		return 0, false
	}
	return PageOf(idx, v.Criteria().PageSize), true
}

func (v *View) update(fn func(*Criteria)) {
	v.mu.Lock()
	before := v.criteria.Clone()
	fn(&v.criteria)
	after := v.criteria.Clone()
	v.mu.Unlock()

	if before.Page != after.Page {
		v.pageVersion.Bump()
	}
	before.Page = after.Page
	if !criteriaEqual(before, after) {
		v.filterVersion.Bump()
	}
}

func criteriaEqual(a, b Criteria) bool {
	return a.Archived == b.Archived &&
		a.IncludeDescendants == b.IncludeDescendants &&
		slices.Equal(a.Included, b.Included) &&
		slices.Equal(a.Excluded, b.Excluded) &&
		a.Tagged == b.Tagged &&
		a.SortKey == b.SortKey &&
		a.SortDesc == b.SortDesc &&
		a.Page == b.Page &&
		a.PageSize == b.PageSize
}

// SetPage sets the 1-based page without clamping.
func (v *View) SetPage(page int) {
	v.update(func(c *Criteria) { c.Page = page })
}

// SetArchived switches between inbox and archive and resets the page.
func (v *View) SetArchived(archived bool) {
	v.update(func(c *Criteria) {
		if c.Archived != archived {
			c.Archived = archived
			c.Page = 1
		}
	})
}

// SetIncludeDescendants toggles ancestry-aware tag matching.
func (v *View) SetIncludeDescendants(on bool) {
	v.update(func(c *Criteria) { c.IncludeDescendants = on })
}

// SetIncluded replaces the included tag ids.
func (v *View) SetIncluded(ids []string) {
	v.update(func(c *Criteria) { c.Included = append([]string{}, ids...) })
}

// SetExcluded replaces the excluded tag ids.
func (v *View) SetExcluded(ids []string) {
	v.update(func(c *Criteria) { c.Excluded = append([]string{}, ids...) })
}

// ToggleIncluded adds id to the included tags, or removes it if present.
// An included tag is never also excluded.
func (v *View) ToggleIncluded(id string) {
	v.update(func(c *Criteria) {
		c.Included = toggle(c.Included, id)
		c.Excluded = slices.DeleteFunc(c.Excluded, func(x string) bool { return x == id })
	})
}

// ToggleExcluded adds id to the excluded tags, or removes it if present.
func (v *View) ToggleExcluded(id string) {
	v.update(func(c *Criteria) {
		c.Excluded = toggle(c.Excluded, id)
		c.Included = slices.DeleteFunc(c.Included, func(x string) bool { return x == id })
	})
}

// ForgetTag drops id from the included and excluded tags.
func (v *View) ForgetTag(id string) {
	v.update(func(c *Criteria) {
		c.Included = slices.DeleteFunc(c.Included, func(x string) bool { return x == id })
		c.Excluded = slices.DeleteFunc(c.Excluded, func(x string) bool { return x == id })
	})
}

// SetTagged sets the tagged filter.
func (v *View) SetTagged(f TaggedFilter) {
	v.update(func(c *Criteria) { c.Tagged = f })
}

// SetSort sets the sort key and direction.
func (v *View) SetSort(key string, desc bool) {
	v.update(func(c *Criteria) {
		c.SortKey = key
		c.SortDesc = desc
	})
}

// SetPageSize sets the page size; non-positive sizes fall back to the default.
func (v *View) SetPageSize(n int) {
	if n <= 0 {
		n = DefaultPageSize
	}
	v.update(func(c *Criteria) { c.PageSize = n })
}

// Reset restores the default criteria, keeping the page size and archive scope.
func (v *View) Reset() {
	v.update(func(c *Criteria) {
		d := DefaultCriteria()
		d.PageSize = c.PageSize
		d.Archived = c.Archived
		*c = d
	})
}

func toggle(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return slices.DeleteFunc(slices.Clone(ids), func(x string) bool { return x == id })
	}
	return append(slices.Clone(ids), id)
}
