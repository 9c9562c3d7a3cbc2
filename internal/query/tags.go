package query

import (
	"sort"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/taggraph"
)

// TagCounts counts, for every tag, the bookmarks that carry it directly or
// through the ancestry of their tags. Each bookmark counts once per tag.
func TagCounts(bookmarks []model.Bookmark, graph *taggraph.Graph) map[string]int {
	counts := make(map[string]int)
	for _, b := range bookmarks {
		seen := make(map[string]bool, len(b.TagIDs))
		for _, id := range b.TagIDs {
			if graph.Has(id) {
				seen[id] = true
			}
		}
		for _, id := range graph.AncestryOf(b.TagIDs) {
			seen[id] = true
		}
		for id := range seen {
			counts[id]++
		}
	}
	return counts
}

// TagOption is a tag as offered in tag pickers.
type TagOption struct {
	Tag          model.Tag
	Count        int
	ParentLabels []string
}

// TagOptions lists every tag with its count and the labels of its direct
// parents, most used first, then by label.
func TagOptions(graph *taggraph.Graph, counts map[string]int) []TagOption {
	tags := graph.All()
	out := make([]TagOption, 0, len(tags))
	for _, t := range tags {
		opt := TagOption{Tag: t, Count: counts[t.ID], ParentLabels: []string{}}
		for _, pid := range t.ParentIDs {
			if p, ok := graph.Get(pid); ok {
				opt.ParentLabels = append(opt.ParentLabels, p.Label)
			}
		}
		sort.Strings(opt.ParentLabels)
		out = append(out, opt)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
