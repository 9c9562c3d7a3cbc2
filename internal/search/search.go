// Package search ranks bookmarks and tags against a fuzzy query.
package search

import (
	"github.com/nikbrunner/marks/internal/model"
	"github.com/sahilm/fuzzy"
)

// BookmarkResult is a fuzzy match on a bookmark title, or on its page URL
// when the title does not match.
type BookmarkResult struct {
	Bookmark       model.Bookmark
	MatchedURL     bool
	MatchedIndexes []int
	Score          int
}

type bookmarkTitles []model.Bookmark

func (bt bookmarkTitles) String(i int) string { return bt[i].Title }
func (bt bookmarkTitles) Len() int            { return len(bt) }

type bookmarkURLs []model.Bookmark

func (bu bookmarkURLs) String(i int) string { return bu[i].PageURL }
func (bu bookmarkURLs) Len() int            { return len(bu) }

// Bookmarks searches bookmarks by title, then by page URL for the ones
// whose title did not match. Title matches rank first; each group is sorted
// by score, best first.
func Bookmarks(bookmarks []model.Bookmark, query string) []BookmarkResult {
	if query == "" {
		return nil
	}

	var results []BookmarkResult
	hit := make(map[int]bool)
	for _, m := range fuzzy.FindFrom(query, bookmarkTitles(bookmarks)) {
		hit[m.Index] = true
		results = append(results, BookmarkResult{
			Bookmark:       bookmarks[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		})
	}
	for _, m := range fuzzy.FindFrom(query, bookmarkURLs(bookmarks)) {
		if hit[m.Index] {
			continue
		}
		results = append(results, BookmarkResult{
			Bookmark:       bookmarks[m.Index],
			MatchedURL:     true,
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		})
	}
	return results
}

// TagResult is a fuzzy match on a tag label or one of its aliases.
type TagResult struct {
	Tag model.Tag
	// Matched is the label or alias that matched.
	Matched        string
	MatchedIndexes []int
	Score          int
}

// tagNames flattens every tag into its label followed by its aliases.
type tagNames struct {
	names []string
	owner []int
}

func (tn tagNames) String(i int) string { return tn.names[i] }
func (tn tagNames) Len() int            { return len(tn.names) }

// Tags searches tag labels and aliases. A tag appears once, with its best
// scoring name.
func Tags(tags []model.Tag, query string) []TagResult {
	if query == "" {
		return nil
	}

	var src tagNames
	for i, t := range tags {
		src.names = append(src.names, t.Label)
		src.owner = append(src.owner, i)
		for _, a := range t.Aliases {
			src.names = append(src.names, a)
			src.owner = append(src.owner, i)
		}
	}

	// Matches arrive best first, so the first match per tag is its best.
	var results []TagResult
	seen := make(map[int]bool)
	for _, m := range fuzzy.FindFrom(query, src) {
		owner := src.owner[m.Index]
		if seen[owner] {
			continue
		}
		seen[owner] = true
		results = append(results, TagResult{
			Tag:            tags[owner],
			Matched:        src.names[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		})
	}
	return results
}
