package actions

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
)

// apply persists patch for ids and then applies it locally to the ids that
// still exist. It returns the ids changed locally.
func (f *Facade) apply(ctx context.Context, op string, ids []string, patch storage.BookmarkPatch) ([]string, error) {
	ids = f.existing(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := f.gw.UpdateBookmarks(ctx, storage.ByIDs(ids...), patch); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	changed, err := f.coll.Update(ids, func(b *model.Bookmark) error {
		patch.Apply(b)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return changed, nil
}

// ArchiveBookmarks moves bookmarks to the archive and deselects them.
func (f *Facade) ArchiveBookmarks(ctx context.Context, ids []string) ([]string, error) {
	changed, err := f.apply(ctx, "archive bookmarks", ids, storage.BookmarkPatch{
		IsArchived: ptr(true),
		IsSelected: ptr(false),
	})
	if err == nil && len(changed) > 0 {
		f.logger.Info("bookmarks.archived", "count", len(changed))
	}
	return changed, err
}

// UnarchiveBookmarks moves bookmarks back out of the archive.
func (f *Facade) UnarchiveBookmarks(ctx context.Context, ids []string) ([]string, error) {
	changed, err := f.apply(ctx, "unarchive bookmarks", ids, storage.BookmarkPatch{IsArchived: ptr(false)})
	if err == nil && len(changed) > 0 {
		f.logger.Info("bookmarks.unarchived", "count", len(changed))
	}
	return changed, err
}

// DeleteResult reports what DeleteBookmarks did.
type DeleteResult struct {
	Archived      []string
	Deleted       []string
	AssetsRemoved int
}

// DeleteBookmarks archives the bookmarks that are not archived yet and
// permanently deletes the ones that are. An image file is removed once no
// remaining bookmark holds its hash. Asset failures are reported after the
// records are gone.
func (f *Facade) DeleteBookmarks(ctx context.Context, ids []string) (DeleteResult, error) {
	var res DeleteResult
	var doomed []model.Bookmark
	var toArchive []string
	for _, id := range f.existing(ids) {
		b, _ := f.coll.Get(id)
		if b.IsArchived {
			doomed = append(doomed, b)
		} else {
			toArchive = append(toArchive, id)
		}
	}

	if len(toArchive) > 0 {
		archived, err := f.ArchiveBookmarks(ctx, toArchive)
		if err != nil {
			return res, err
		}
		res.Archived = archived
	}
	if len(doomed) == 0 {
		return res, nil
	}

	doomedIDs := make([]string, len(doomed))
	for i, b := range doomed {
		doomedIDs[i] = b.ID
	}
	if _, err := f.gw.DeleteBookmarks(ctx, storage.BookmarkFilter{IDs: doomedIDs, Archived: ptr(true)}); err != nil {
		return res, fmt.Errorf("delete bookmarks: %w", err)
	}
	f.coll.Remove(doomedIDs...)
	res.Deleted = doomedIDs

	var errs []error
	var handled []string
	for _, b := range doomed {
		if b.ImageHash == "" || slices.Contains(handled, b.ImageHash) {
			continue
		}
		handled = append(handled, b.ImageHash)
		holders, _ := f.coll.ByImageHash(b.ImageHash)
		if len(holders) > 0 {
			continue
		}
		path := b.ImagePath
		if path == "" {
			path = f.assets.PathFor(b.ImageHash)
		}
		if err := f.assets.Delete(path); err != nil {
			f.logger.Warn("asset.delete.failed", "path", path, "err", err)
			errs = append(errs, err)
			continue
		}
		res.AssetsRemoved++
	}

	f.logger.Info("bookmarks.deleted", "count", len(doomedIDs), "assets", res.AssetsRemoved)
	return res, errors.Join(errs...)
}

// RetagBookmarks adds and removes tags on bookmarks in one step. A tag named
// in both lists ends up removed.
func (f *Facade) RetagBookmarks(ctx context.Context, ids, added, removed []string) ([]string, error) {
	removed = dedup(removed)
	added = slices.DeleteFunc(dedup(added), func(id string) bool { return slices.Contains(removed, id) })
	if len(added) == 0 && len(removed) == 0 {
		return nil, nil
	}
	for _, id := range added {
		if !f.graph.Has(id) {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownTag, id)
		}
	}

	now := f.now()
	changed, err := f.apply(ctx, "retag bookmarks", ids, storage.BookmarkPatch{
		AddTagIDs:    added,
		PullTagIDs:   removed,
		DateModified: &now,
	})
	if err == nil && len(changed) > 0 {
		f.logger.Info("bookmarks.retagged", "count", len(changed), "added", len(added), "removed", len(removed))
	}
	return changed, err
}

// SetRating sets the rating of bookmarks, clamped to the valid range.
func (f *Facade) SetRating(ctx context.Context, ids []string, rating int) ([]string, error) {
	now := f.now()
	changed, err := f.apply(ctx, "set rating", ids, storage.BookmarkPatch{
		Rating:       ptr(model.ClampRating(rating)),
		DateModified: &now,
	})
	if err == nil && len(changed) > 0 {
		f.logger.Info("bookmarks.rated", "count", len(changed), "rating", model.ClampRating(rating))
	}
	return changed, err
}

// SetTitle renames a bookmark. The original title is kept.
func (f *Facade) SetTitle(ctx context.Context, id, title string) error {
	if title == "" {
		return fmt.Errorf("%w: title cannot be blank", model.ErrValidation)
	}
	if !f.coll.Has(id) {
		return fmt.Errorf("set title %s: %w", id, model.ErrNotFound)
	}
	now := f.now()
	_, err := f.apply(ctx, "set title", []string{id}, storage.BookmarkPatch{Title: &title, DateModified: &now})
	return err
}
