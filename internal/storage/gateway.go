package storage

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/nikbrunner/marks/internal/model"
)

// Gateway is the persistence boundary. Updates take a filter and a patch
// and report how many records matched and how many actually changed.
type Gateway interface {
	FindAllBookmarks(ctx context.Context) ([]model.Bookmark, error)
	FindBookmarksByIDs(ctx context.Context, ids []string) ([]model.Bookmark, error)
	// FindBookmarkByHash returns the bookmark holding hash, or ok == false.
	FindBookmarkByHash(ctx context.Context, hash string) (b model.Bookmark, ok bool, err error)
	InsertBookmark(ctx context.Context, b model.Bookmark) error
	UpdateBookmarks(ctx context.Context, f BookmarkFilter, p BookmarkPatch) (UpdateResult, error)
	DeleteBookmarks(ctx context.Context, f BookmarkFilter) (int, error)

	FindAllTags(ctx context.Context) ([]model.Tag, error)
	InsertTag(ctx context.Context, t model.Tag) error
	UpdateTags(ctx context.Context, f TagFilter, p TagPatch) (UpdateResult, error)
	DeleteTags(ctx context.Context, ids []string) (int, error)
	// DeleteTagCascade removes tag id together with every reference to it
	// in one step. See TagCascade.
	DeleteTagCascade(ctx context.Context, id string, bp BookmarkPatch) (TagCascade, error)

	// ReplaceAll swaps the whole library for snap in one step.
	ReplaceAll(ctx context.Context, snap *model.Snapshot) error
	Close() error
}

// UpdateResult counts the records an update matched and modified.
type UpdateResult struct {
	Matched  int
	Modified int
}

// TagCascade reports what DeleteTagCascade changed. The cascade pulls the
// tag from the parents of every child tag, applies the bookmark patch to
// every bookmark holding the tag, then deletes the tag. When either update
// modifies fewer records than it matched nothing is written and the error
// wraps model.ErrCountMismatch.
type TagCascade struct {
	Children  UpdateResult
	Bookmarks UpdateResult
	Deleted   int
}

func (c TagCascade) check(id string) error {
	if c.Children.Matched != c.Children.Modified {
		return fmt.Errorf("delete tag %s from parents: %d matched, %d modified: %w",
			id, c.Children.Matched, c.Children.Modified, model.ErrCountMismatch)
	}
	if c.Bookmarks.Matched != c.Bookmarks.Modified {
		return fmt.Errorf("delete tag %s from bookmarks: %d matched, %d modified: %w",
			id, c.Bookmarks.Matched, c.Bookmarks.Modified, model.ErrCountMismatch)
	}
	return nil
}

// BookmarkFilter selects bookmarks. Set fields are combined with AND.
// A zero filter is rejected by updates and deletes.
type BookmarkFilter struct {
	IDs       []string
	TagID     string
	ImageHash string
	Archived  *bool
}

// IsZero reports whether no field is set.
func (f BookmarkFilter) IsZero() bool {
	return len(f.IDs) == 0 && f.TagID == "" && f.ImageHash == "" && f.Archived == nil
}

// Match reports whether b passes the filter.
func (f BookmarkFilter) Match(b model.Bookmark) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, b.ID) {
		return false
	}
	if f.TagID != "" && !b.HasTag(f.TagID) {
		return false
	}
	if f.ImageHash != "" && b.ImageHash != f.ImageHash {
		return false
	}
	if f.Archived != nil && b.IsArchived != *f.Archived {
		return false
	}
	return true
}

// ByIDs selects bookmarks by id.
func ByIDs(ids ...string) BookmarkFilter {
	return BookmarkFilter{IDs: ids}
}

// BookmarkPatch describes a change to bookmarks. Nil fields are left alone.
type BookmarkPatch struct {
	Title        *string
	Rating       *int
	IsArchived   *bool
	IsSelected   *bool
	ImageHash    *string
	ImagePath    *string
	DateModified *time.Time
	// AddTagIDs are appended when missing; PullTagIDs are removed.
	AddTagIDs  []string
	PullTagIDs []string
}

// Apply changes b in place and reports whether anything changed. The same
// patch is applied by gateways and to the in-memory collection, so both
// sides agree on the result. IsSelected is ignored by gateways.
func (p BookmarkPatch) Apply(b *model.Bookmark) bool {
	changed := false
	if p.Title != nil && b.Title != *p.Title {
		b.Title = *p.Title
		changed = true
	}
	if p.Rating != nil && b.Rating != *p.Rating {
		b.Rating = *p.Rating
		changed = true
	}
	if p.IsArchived != nil && b.IsArchived != *p.IsArchived {
		b.IsArchived = *p.IsArchived
		changed = true
	}
	if p.IsSelected != nil && b.IsSelected != *p.IsSelected {
		b.IsSelected = *p.IsSelected
		changed = true
	}
	if p.ImageHash != nil && b.ImageHash != *p.ImageHash {
		b.ImageHash = *p.ImageHash
		changed = true
	}
	if p.ImagePath != nil && b.ImagePath != *p.ImagePath {
		b.ImagePath = *p.ImagePath
		changed = true
	}

	tagsChanged := false
	for _, id := range p.AddTagIDs {
		if !b.HasTag(id) {
			b.TagIDs = append(b.TagIDs, id)
			tagsChanged = true
		}
	}
	if len(p.PullTagIDs) > 0 {
		n := len(b.TagIDs)
		b.TagIDs = slices.DeleteFunc(b.TagIDs, func(id string) bool {
			return slices.Contains(p.PullTagIDs, id)
		})
		tagsChanged = tagsChanged || len(b.TagIDs) != n
	}
	changed = changed || tagsChanged

	// DateModified follows a real change; on its own it is a refresh.
	if p.DateModified != nil && (changed || p.onlyDate()) && !b.DateModified.Equal(*p.DateModified) {
		b.DateModified = *p.DateModified
		changed = true
	}
	return changed
}

func (p BookmarkPatch) onlyDate() bool {
	return p.Title == nil && p.Rating == nil && p.IsArchived == nil && p.IsSelected == nil &&
		p.ImageHash == nil && p.ImagePath == nil && len(p.AddTagIDs) == 0 && len(p.PullTagIDs) == 0
}

// TagFilter selects tags. Set fields are combined with AND.
type TagFilter struct {
	IDs      []string
	ParentID string
}

// IsZero reports whether no field is set.
func (f TagFilter) IsZero() bool {
	return len(f.IDs) == 0 && f.ParentID == ""
}

// Match reports whether t passes the filter.
func (f TagFilter) Match(t model.Tag) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, t.ID) {
		return false
	}
	if f.ParentID != "" && !t.HasParent(f.ParentID) {
		return false
	}
	return true
}

// TagPatch describes a change to tags. Unset fields are left alone.
type TagPatch struct {
	Label         *string
	Aliases       []string
	SetAliases    bool
	ParentIDs     []string
	SetParentIDs  bool
	PullParentIDs []string
}

// Apply changes t in place and reports whether anything changed.
func (p TagPatch) Apply(t *model.Tag) bool {
	changed := false
	if p.Label != nil && t.Label != *p.Label {
		t.Label = *p.Label
		changed = true
	}
	if p.SetAliases && !slices.Equal(t.Aliases, p.Aliases) {
		t.Aliases = append([]string{}, p.Aliases...)
		changed = true
	}
	if p.SetParentIDs && !slices.Equal(t.ParentIDs, p.ParentIDs) {
		t.ParentIDs = append([]string{}, p.ParentIDs...)
		changed = true
	}
	if len(p.PullParentIDs) > 0 {
		n := len(t.ParentIDs)
		t.ParentIDs = slices.DeleteFunc(t.ParentIDs, func(id string) bool {
			return slices.Contains(p.PullParentIDs, id)
		})
		changed = changed || len(t.ParentIDs) != n
	}
	return changed
}

// LoadSnapshot reads the whole library through g.
func LoadSnapshot(ctx context.Context, g Gateway) (*model.Snapshot, error) {
	tags, err := g.FindAllTags(ctx)
	if err != nil {
		return nil, err
	}
	bookmarks, err := g.FindAllBookmarks(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Snapshot{Tags: tags, Bookmarks: bookmarks}, nil
}
