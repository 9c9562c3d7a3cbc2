package query

import (
	"slices"
	"sort"
	"strings"

	"github.com/nikbrunner/marks/internal/model"
)

// AncestryFunc resolves the ancestry of a set of tag ids.
type AncestryFunc func(ids []string) []string

// Matches reports whether b passes the criteria's scope, tagged filter and
// tag inclusion/exclusion. Page and sort fields are ignored.
//
// An empty included set always passes. Otherwise a bookmark passes when it
// carries every included tag directly, or when any included tag appears in
// the ancestry of its tags. Any excluded tag, direct or inherited, rejects it.
func Matches(b model.Bookmark, c Criteria, ancestry AncestryFunc) bool {
	if b.IsArchived != c.Archived {
		return false
	}
	switch c.Tagged {
	case TaggedOnly:
		if !b.IsTagged() {
			return false
		}
	case UntaggedOnly:
		if b.IsTagged() {
			return false
		}
	}

	var parent []string
	if c.IncludeDescendants && ancestry != nil && len(b.TagIDs) > 0 {
		parent = ancestry(b.TagIDs)
	}

	allIncludedDirect := true
	for _, id := range c.Included {
		if !b.HasTag(id) {
			allIncludedDirect = false
			break
		}
	}
	anyIncludedParent := false
	for _, id := range c.Included {
		if slices.Contains(parent, id) {
			anyIncludedParent = true
			break
		}
	}
	if !allIncludedDirect && !anyIncludedParent {
		return false
	}

	for _, id := range c.Excluded {
		if b.HasTag(id) || slices.Contains(parent, id) {
			return false
		}
	}
	return true
}

// Filter returns the bookmarks matching c, in input order.
func Filter(bookmarks []model.Bookmark, c Criteria, ancestry AncestryFunc) []model.Bookmark {
	out := make([]model.Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if Matches(b, c, ancestry) {
			out = append(out, b)
		}
	}
	return out
}

// Compare orders two bookmarks by key. It returns a negative number when a
// sorts before b. The base order is descending; ascending is its negation.
// Ties are broken by id so that the order is total.
func Compare(a, b model.Bookmark, key string, desc bool) int {
	c := compareDesc(a, b, key)
	if c == 0 {
		c = strings.Compare(b.ID, a.ID)
	}
	if desc {
		return c
	}
	return -c
}

func compareDesc(a, b model.Bookmark, key string) int {
	switch key {
	case SortRating, SortWidth, SortHeight, SortDuration, SortSize:
		return cmpInt(numeric(b, key), numeric(a, key))
	case SortDateCreated:
		return b.DateCreated.Compare(a.DateCreated)
	case SortDateModified:
		return b.DateModified.Compare(a.DateModified)
	default:
		return strings.Compare(text(b, key), text(a, key))
	}
}

// numeric reads a numeric sort field. Media dimensions are not tracked, so
// width, height, duration and size read as 0.
func numeric(b model.Bookmark, key string) int {
	if key == SortRating {
		return b.Rating
	}
	return 0
}

func text(b model.Bookmark, key string) string {
	switch key {
	case SortTitle:
		return b.Title
	case SortOriginalTitle:
		return b.OriginalTitle
	case SortPageURL:
		return b.PageURL
	case SortImageHash:
		return b.ImageHash
	case SortImagePath:
		return b.ImagePath
	case SortID:
		return b.ID
	default:
		return ""
	}
}

func cmpInt(x, y int) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// Sort orders bookmarks in place.
func Sort(bookmarks []model.Bookmark, key string, desc bool) {
	sort.SliceStable(bookmarks, func(i, j int) bool {
		return Compare(bookmarks[i], bookmarks[j], key, desc) < 0
	})
}

// PageCount returns the number of pages needed for n items, at least 1.
func PageCount(n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

// Paginate returns the 1-based page of items. Pages out of range are empty.
func Paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		return []T{}
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}

// PageOf returns the 1-based page holding position index.
func PageOf(index, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if index < 0 {
		return 1
	}
	return index/pageSize + 1
}
