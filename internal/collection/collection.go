// Package collection owns the in-memory set of bookmarks.
package collection

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/reactive"
)

// Collection maps bookmark ids to bookmarks. Reads return copies and are
// safe for concurrent use. Mutators are reserved for the mutation façade and
// the selection controller; each one is atomic.
type Collection struct {
	mu        sync.RWMutex
	bookmarks map[string]*model.Bookmark
	version   reactive.Counter
}

// New creates a Collection from the given bookmarks. Later duplicates of an
// id replace earlier ones.
func New(bookmarks []model.Bookmark) *Collection {
	c := &Collection{}
	c.Replace(bookmarks)
	return c
}

// Version implements reactive.Source.
func (c *Collection) Version() uint64 {
	return c.version.Version()
}

// Len returns the number of bookmarks.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bookmarks)
}

// Get returns a copy of the bookmark with the given id.
func (c *Collection) Get(id string) (model.Bookmark, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bookmarks[id]
	if !ok {
		return model.Bookmark{}, false
	}
	return b.Clone(), true
}

// Has reports whether the id is present.
func (c *Collection) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bookmarks[id]
	return ok
}

// All returns copies of every bookmark ordered by id.
func (c *Collection) All() []model.Bookmark {
	return c.filter(func(*model.Bookmark) bool { return true })
}

// ByImageHash returns the bookmarks holding hash. More than one match means
// dedup was violated upstream; the matches are still returned together with
// ErrDuplicateHash so the caller can warn.
func (c *Collection) ByImageHash(hash string) ([]model.Bookmark, error) {
	if hash == "" {
		return nil, nil
	}
	matches := c.filter(func(b *model.Bookmark) bool { return b.ImageHash == hash })
	if len(matches) > 1 {
		return matches, fmt.Errorf("%w: %s held by %d bookmarks", model.ErrDuplicateHash, hash, len(matches))
	}
	return matches, nil
}

// ByTagID returns every bookmark directly tagged with tagID.
func (c *Collection) ByTagID(tagID string) []model.Bookmark {
	return c.filter(func(b *model.Bookmark) bool { return b.HasTag(tagID) })
}

// Archived returns every archived bookmark.
func (c *Collection) Archived() []model.Bookmark {
	return c.filter(func(b *model.Bookmark) bool { return b.IsArchived })
}

// Selected returns every selected bookmark.
func (c *Collection) Selected() []model.Bookmark {
	return c.filter(func(b *model.Bookmark) bool { return b.IsSelected })
}

// SelectedIDs returns the ids of every selected bookmark.
func (c *Collection) SelectedIDs() []string {
	sel := c.Selected()
	ids := make([]string, len(sel))
	for i, b := range sel {
		ids[i] = b.ID
	}
	return ids
}

// DuplicateHashes returns every non-empty hash held by more than one bookmark.
func (c *Collection) DuplicateHashes() []string {
	c.mu.RLock()
	counts := make(map[string]int)
	for _, b := range c.bookmarks {
		if b.ImageHash != "" {
			counts[b.ImageHash]++
		}
	}
	c.mu.RUnlock()

	var out []string
	for h, n := range counts {
		if n > 1 {
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Collection) filter(keep func(*model.Bookmark) bool) []model.Bookmark {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Bookmark, 0)
	for _, b := range c.bookmarks {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Add inserts new bookmarks. Nothing is inserted if any id already exists or
// if a non-empty image hash is already held.
func (c *Collection) Add(bookmarks ...model.Bookmark) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hashes := make(map[string]bool)
	for _, b := range c.bookmarks {
		if b.ImageHash != "" {
			hashes[b.ImageHash] = true
		}
	}
	ids := make(map[string]bool, len(bookmarks))
	for _, b := range bookmarks {
		if _, exists := c.bookmarks[b.ID]; exists || ids[b.ID] {
			return fmt.Errorf("%w: bookmark %s", model.ErrDuplicateID, b.ID)
		}
		if b.ImageHash != "" && hashes[b.ImageHash] {
			return fmt.Errorf("%w: %s", model.ErrDuplicateHash, b.ImageHash)
		}
		ids[b.ID] = true
		hashes[b.ImageHash] = b.ImageHash != ""
	}

	for _, b := range bookmarks {
		nb := b.Clone()
		c.bookmarks[nb.ID] = &nb
	}
	c.version.Bump()
	return nil
}

// Remove deletes the bookmarks with the given ids and returns how many
// existed.
func (c *Collection) Remove(ids ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := c.bookmarks[id]; ok {
			delete(c.bookmarks, id)
			n++
		}
	}
	if n > 0 {
		c.version.Bump()
	}
	return n
}

// Update applies fn to every bookmark in ids that exists. fn runs on clones;
// if it fails for any bookmark, nothing is committed. Unknown ids are
// skipped. Update returns the ids it modified.
func (c *Collection) Update(ids []string, fn func(*model.Bookmark) error) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	staged := make(map[string]*model.Bookmark, len(ids))
	var touched []string
	for _, id := range ids {
		b, ok := c.bookmarks[id]
		if !ok || staged[id] != nil {
			continue
		}
		nb := b.Clone()
		if err := fn(&nb); err != nil {
			return nil, err
		}
		staged[id] = &nb
		touched = append(touched, id)
	}

	if len(staged) == 0 {
		return nil, nil
	}
	for id, nb := range staged {
		c.bookmarks[id] = nb
	}
	c.version.Bump()
	return touched, nil
}

// UpdateWhere applies fn to every bookmark matching match, with the same
// all-or-nothing semantics as Update.
func (c *Collection) UpdateWhere(match func(model.Bookmark) bool, fn func(*model.Bookmark) error) ([]string, error) {
	var ids []string
	c.mu.RLock()
	for id, b := range c.bookmarks {
		if match(*b) {
			ids = append(ids, id)
		}
	}
	c.mu.RUnlock()
	sort.Strings(ids)
	return c.Update(ids, fn)
}

// Merge upserts bookmarks received from outside, keeping the local
// selection flag of bookmarks that already exist.
func (c *Collection) Merge(bookmarks ...model.Bookmark) {
	if len(bookmarks) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range bookmarks {
		nb := b.Clone()
		nb.IsSelected = false
		if existing, ok := c.bookmarks[nb.ID]; ok {
			nb.IsSelected = existing.IsSelected
		}
		c.bookmarks[nb.ID] = &nb
	}
	c.version.Bump()
}

// Replace swaps in a whole new set of bookmarks. Bookmarks that survive the
// replacement keep their selection.
func (c *Collection) Replace(bookmarks []model.Bookmark) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make(map[string]*model.Bookmark, len(bookmarks))
	for _, b := range bookmarks {
		nb := b.Clone()
		nb.IsSelected = false
		if existing, ok := c.bookmarks[nb.ID]; ok {
			nb.IsSelected = existing.IsSelected
		}
		next[nb.ID] = &nb
	}
	c.bookmarks = next
	c.version.Bump()
}
