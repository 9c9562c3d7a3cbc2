// Package taggraph owns the set of tags and their parent relationships.
package taggraph

import (
	"slices"
	"sort"
	"sync"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/reactive"
)

// Graph holds tags keyed by id. Reads are safe for concurrent use; the
// mutators are reserved for the mutation façade.
type Graph struct {
	mu      sync.RWMutex
	tags    map[string]*model.Tag
	version reactive.Counter

	// ancestry caches per-tag ancestry for cachedAt == version.
	ancestry map[string][]string
	cachedAt uint64
}

// New creates a Graph from the given tags.
func New(tags []model.Tag) *Graph {
	g := &Graph{}
	g.Replace(tags)
	return g
}

// Version implements reactive.Source.
func (g *Graph) Version() uint64 {
	return g.version.Version()
}

// Len returns the number of tags.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tags)
}

// Get returns a copy of the tag with the given id.
func (g *Graph) Get(id string) (model.Tag, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tags[id]
	if !ok {
		return model.Tag{}, false
	}
	return t.Clone(), true
}

// Has reports whether the id is present.
func (g *Graph) Has(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.tags[id]
	return ok
}

// ByLabel finds a tag by exact label.
func (g *Graph) ByLabel(label string) (model.Tag, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, t := range g.tags {
		if t.Label == label {
			return t.Clone(), true
		}
	}
	return model.Tag{}, false
}

// All returns copies of every tag sorted by label.
func (g *Graph) All() []model.Tag {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.Tag, 0, len(g.tags))
	for _, t := range g.tags {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListByParentID returns the direct children of id sorted by label.
func (g *Graph) ListByParentID(id string) []model.Tag {
	var out []model.Tag
	for _, t := range g.All() {
		if t.HasParent(id) {
			out = append(out, t)
		}
	}
	return out
}

// IsLabelTaken reports whether another tag already uses label.
// Comparison is exact and case-sensitive.
func (g *Graph) IsLabelTaken(label, excludingID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for id, t := range g.tags {
		if id != excludingID && t.Label == label {
			return true
		}
	}
	return false
}

// AncestryOf returns every tag id reachable from ids by following parent
// edges, sorted. Ids missing from the graph are neither returned nor
// expanded. An input id is only part of the result when a cycle leads back
// to it.
func (g *Graph) AncestryOf(ids []string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[string]bool)
	for _, id := range ids {
		for _, a := range g.ancestryLocked(id) {
			seen[a] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ChildrenOf returns every tag, other than id itself, whose ancestry
// contains id: all descendants, not only direct children.
func (g *Graph) ChildrenOf(id string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []string
	for tid := range g.tags {
		if tid == id {
			continue
		}
		if slices.Contains(g.ancestryLocked(tid), id) {
			out = append(out, tid)
		}
	}
	sort.Strings(out)
	return out
}

// Cycles returns the ids of tags that are their own ancestor. Validated
// edits never create cycles, so a non-empty result means the stored data
// is malformed.
func (g *Graph) Cycles() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []string
	for id := range g.tags {
		if slices.Contains(g.ancestryLocked(id), id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// ancestryLocked returns the cached ancestry of a single tag, computing it
// with a visited-set walk. Caller must hold g.mu for writing.
func (g *Graph) ancestryLocked(id string) []string {
	if v := g.version.Version(); g.ancestry == nil || g.cachedAt != v {
		g.ancestry = make(map[string][]string, len(g.tags))
		g.cachedAt = v
	}
	if cached, ok := g.ancestry[id]; ok {
		return cached
	}

	root, ok := g.tags[id]
	if !ok {
		return nil
	}

	visited := make(map[string]bool)
	var result []string
	queue := slices.Clone(root.ParentIDs)
	// Each id is expanded at most once, so the walk is bounded by the number
	// of tags. The budget is a second guard against bookkeeping mistakes.
	budget := len(g.tags) + 1

	for len(queue) > 0 && budget > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true

		t, ok := g.tags[cur]
		if !ok {
			continue
		}
		budget--
		result = append(result, cur)
		queue = append(queue, t.ParentIDs...)
	}

	sort.Strings(result)
	g.ancestry[id] = result
	return result
}

// Put inserts or replaces a tag.
func (g *Graph) Put(t model.Tag) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := t.Clone()
	g.tags[c.ID] = &c
	g.version.Bump()
}

// Remove deletes a tag and removes its id from every other tag's parents.
// It returns false if the tag does not exist.
func (g *Graph) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.tags[id]; !ok {
		return false
	}
	delete(g.tags, id)
	for _, t := range g.tags {
		if t.HasParent(id) {
			t.ParentIDs = slices.DeleteFunc(t.ParentIDs, func(p string) bool { return p == id })
		}
	}
	g.version.Bump()
	return true
}

// Replace swaps in a whole new set of tags.
func (g *Graph) Replace(tags []model.Tag) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tags = make(map[string]*model.Tag, len(tags))
	for _, t := range tags {
		c := t.Clone()
		g.tags[c.ID] = &c
	}
	g.version.Bump()
}
