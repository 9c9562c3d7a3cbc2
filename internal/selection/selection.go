// Package selection implements multi-select, range-select and keyboard
// navigation over the filtered bookmark order.
package selection

import (
	"slices"

	"github.com/nikbrunner/marks/internal/collection"
	"github.com/nikbrunner/marks/internal/model"
)

// Entry is one selection change. A nil IsSelected flips the current value.
type Entry struct {
	ID         string
	IsSelected *bool
}

// Select returns an entry that selects id.
func Select(id string) Entry {
	v := true
	return Entry{ID: id, IsSelected: &v}
}

// Deselect returns an entry that deselects id.
func Deselect(id string) Entry {
	v := false
	return Entry{ID: id, IsSelected: &v}
}

// Flip returns an entry that flips the selection of id.
func Flip(id string) Entry {
	return Entry{ID: id}
}

// Direction is a navigation step through the filtered order.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// Order is the filtered bookmark order and its pagination.
type Order interface {
	FilteredIDs() []string
	PageOfID(id string) (int, bool)
	SetPage(page int)
}

// Controller applies selection changes to the collection. It is the only
// writer of the selection flag.
type Controller struct {
	coll  *collection.Collection
	order Order
}

// New creates a Controller.
func New(coll *collection.Collection, order Order) *Controller {
	return &Controller{coll: coll, order: order}
}

// Toggle applies a batch of entries. When an id appears more than once, the
// first entry wins. Unknown ids are ignored.
func (c *Controller) Toggle(entries []Entry) {
	if len(entries) == 0 {
		return
	}
	byID := make(map[string]Entry, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, dup := byID[e.ID]; dup {
			continue
		}
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}
	// The callback never fails, so Update cannot return an error here.
	_, _ = c.coll.Update(ids, func(b *model.Bookmark) error {
		e := byID[b.ID]
		if e.IsSelected != nil {
			b.IsSelected = *e.IsSelected
		} else {
			b.IsSelected = !b.IsSelected
		}
		return nil
	})
}

// ClearAll deselects every bookmark.
func (c *Controller) ClearAll() {
	sel := c.coll.SelectedIDs()
	entries := make([]Entry, len(sel))
	for i, id := range sel {
		entries[i] = Deselect(id)
	}
	c.Toggle(entries)
}

// SelectAll selects every bookmark in the filtered order.
func (c *Controller) SelectAll() {
	ids := c.order.FilteredIDs()
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = Select(id)
	}
	c.Toggle(entries)
}

// SelectOnly makes id the sole selected bookmark.
func (c *Controller) SelectOnly(id string) {
	if !c.coll.Has(id) {
		return
	}
	var entries []Entry
	entries = append(entries, Select(id))
	for _, sid := range c.coll.SelectedIDs() {
		entries = append(entries, Deselect(sid))
	}
	c.Toggle(entries)
}

// RangeSelect extends the selection from the earliest selected bookmark to
// focusID in the filtered order.
func (c *Controller) RangeSelect(focusID string) {
	c.Toggle(RangeDelta(c.coll.SelectedIDs(), focusID, c.order.FilteredIDs()))
}

// RangeDelta computes the entries a range selection applies. Let first and
// last be the smallest and largest positions of the selected ids in order,
// and f the position of focusID. Everything between first and f is
// selected, in either direction; everything after that range up to last is
// deselected. No id appears twice. Without a previous selection in order
// only the focus is selected. A focus missing from order yields no entries.
func RangeDelta(selected []string, focusID string, order []string) []Entry {
	f := slices.Index(order, focusID)
	if f < 0 {
		return nil
	}

	first, last := -1, -1
	for _, id := range selected {
		i := slices.Index(order, id)
		if i < 0 {
			continue
		}
		if first < 0 || i < first {
			first = i
		}
		if i > last {
			last = i
		}
	}
	if first < 0 {
		return []Entry{Select(focusID)}
	}

	lo, hi := min(first, f), max(first, f)
	var out []Entry
	for i := lo; i <= hi; i++ {
		out = append(out, Select(order[i]))
	}
	for i := hi + 1; i <= last; i++ {
		out = append(out, Deselect(order[i]))
	}
	return out
}

// SoleSelected returns the id of the selected bookmark when exactly one is
// selected.
func (c *Controller) SoleSelected() (string, bool) {
	sel := c.coll.SelectedIDs()
	if len(sel) != 1 {
		return "", false
	}
	return sel[0], true
}

// Navigate moves a sole selection to the neighbouring bookmark in the
// filtered order, wrapping at both ends, and shows the page holding it. It
// does nothing unless exactly one bookmark is selected and that bookmark is
// in the filtered order. It returns the newly selected id.
func (c *Controller) Navigate(dir Direction) (string, bool) {
	cur, ok := c.SoleSelected()
	if !ok {
		return "", false
	}
	order := c.order.FilteredIDs()
	i := slices.Index(order, cur)
	if i < 0 {
		return "", false
	}
	n := len(order)
	target := order[((i+int(dir))%n+n)%n]
	if target == cur {
		return cur, true
	}

	c.Toggle([]Entry{Deselect(cur), Select(target)})
	if page, ok := c.order.PageOfID(target); ok {
		c.order.SetPage(page)
	}
	return target, true
}
