package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/refresh"
	"github.com/nikbrunner/marks/internal/storage"
)

// RefreshResult is the outcome of refreshing one bookmark.
type RefreshResult struct {
	ID      string
	Changed bool
	Err     error
}

func (f *Facade) assetPath(b model.Bookmark) (string, error) {
	if b.ImagePath != "" {
		return b.ImagePath, nil
	}
	if b.ImageHash != "" {
		return f.assets.PathFor(b.ImageHash), nil
	}
	return "", fmt.Errorf("%w: bookmark %s has no image", model.ErrValidation, b.ID)
}

// Refresh rehashes the image of a bookmark and moves its modification date
// forward to the file's mtime when that is newer. A read failure changes
// nothing.
func (f *Facade) Refresh(ctx context.Context, id string) (bool, error) {
	b, ok := f.coll.Get(id)
	if !ok {
		return false, fmt.Errorf("refresh %s: %w", id, model.ErrNotFound)
	}
	path, err := f.assetPath(b)
	if err != nil {
		return false, err
	}
	hash, mtime, err := f.assets.Hash(path)
	if err != nil {
		return false, fmt.Errorf("refresh %s: %w", id, err)
	}
	return f.applyRefresh(ctx, id, path, hash, mtime)
}

// RefreshMany hashes the images of ids concurrently and applies the results
// one at a time. Failures are reported per bookmark and do not stop the rest.
func (f *Facade) RefreshMany(ctx context.Context, ids []string, onProgress refresh.ProgressFunc) []RefreshResult {
	ids = dedup(ids)
	results := make([]RefreshResult, len(ids))
	var jobs []refresh.Job
	slot := make(map[string]int, len(ids))

	for i, id := range ids {
		results[i].ID = id
		b, ok := f.coll.Get(id)
		if !ok {
			results[i].Err = fmt.Errorf("refresh %s: %w", id, model.ErrNotFound)
			continue
		}
		path, err := f.assetPath(b)
		if err != nil {
			results[i].Err = err
			continue
		}
		slot[id] = i
		jobs = append(jobs, refresh.Job{ID: id, Path: path})
	}

	hashed := refresh.HashAll(ctx, jobs, f.assets, f.concurrency, onProgress)
	for j, h := range hashed {
		i := slot[h.ID]
		if h.Err != nil {
			results[i].Err = fmt.Errorf("refresh %s: %w", h.ID, h.Err)
			continue
		}
		results[i].Changed, results[i].Err = f.applyRefresh(ctx, h.ID, jobs[j].Path, h.Hash, h.ModTime)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	f.logger.Info("bookmarks.refreshed", "count", len(ids), "failed", failed)
	return results
}

func (f *Facade) applyRefresh(ctx context.Context, id, path, hash string, mtime time.Time) (bool, error) {
	b, ok := f.coll.Get(id)
	if !ok {
		// Deleted while hashing.
		return false, nil
	}
	holders, err := f.coll.ByImageHash(hash)
	if err != nil {
		return false, fmt.Errorf("refresh %s: %w", id, err)
	}
	if len(holders) > 0 && holders[0].ID != id {
		return false, fmt.Errorf("refresh %s: %w: held by %s", id, model.ErrDuplicateHash, holders[0].ID)
	}

	var patch storage.BookmarkPatch
	dirty := false
	if hash != b.ImageHash {
		patch.ImageHash = &hash
		dirty = true
	}
	if b.ImagePath == "" {
		patch.ImagePath = &path
		dirty = true
	}
	if mtime.After(b.DateModified) {
		mtime = mtime.UTC()
		patch.DateModified = &mtime
		dirty = true
	}
	if !dirty {
		return false, nil
	}

	changed, err := f.apply(ctx, "refresh "+id, []string{id}, patch)
	if err != nil {
		return false, err
	}
	return len(changed) > 0, nil
}
