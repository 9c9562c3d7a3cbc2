package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nikbrunner/marks/internal/assets"
	"github.com/nikbrunner/marks/internal/model"
)

// CaptureInput is a page captured by the browser extension.
type CaptureInput struct {
	PageURL     string
	Title       string
	Image       []byte
	IsIncognito bool
	TagIDs      []string
}

// CaptureResult holds the stored bookmark. IsDuplicate is set when the image
// was already captured and no record was created.
type CaptureResult struct {
	Bookmark    model.Bookmark
	IsDuplicate bool
}

// Capture stores a captured page. The image is addressed by its md5; a hash
// already held by a bookmark returns that bookmark instead of a new record.
// An asset file left behind without a record is reused.
func (f *Facade) Capture(ctx context.Context, in CaptureInput) (CaptureResult, error) {
	in.PageURL = strings.TrimSpace(in.PageURL)
	if in.PageURL == "" {
		return CaptureResult{}, fmt.Errorf("%w: page url is required", model.ErrValidation)
	}
	if len(in.Image) == 0 {
		return CaptureResult{}, fmt.Errorf("%w: image is required", model.ErrValidation)
	}
	if in.IsIncognito && f.skipIncognito {
		f.logger.Debug("capture.skipped", "reason", "incognito")
		return CaptureResult{}, model.ErrIncognito
	}
	for _, id := range in.TagIDs {
		if !f.graph.Has(id) {
			return CaptureResult{}, fmt.Errorf("%w: %s", model.ErrUnknownTag, id)
		}
	}

	hash := assets.HashBytes(in.Image)
	if b, ok, err := f.findByHash(ctx, hash); err != nil || ok {
		if ok {
			f.logger.Info("capture.duplicate", "id", b.ID, "hash", hash)
		}
		return CaptureResult{Bookmark: b, IsDuplicate: ok}, err
	}

	path := f.assets.PathFor(hash)
	if f.assets.Exists(hash) {
		f.logger.Debug("capture.asset.reused", "hash", hash, "path", path)
	} else {
		var err error
		if path, err = f.assets.Write(hash, in.Image); err != nil {
			return CaptureResult{}, fmt.Errorf("capture %s: %w", in.PageURL, err)
		}
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.PageURL
	}
	b := model.NewBookmark(model.NewBookmarkParams{
		PageURL:   in.PageURL,
		Title:     title,
		ImageHash: hash,
		ImagePath: path,
		TagIDs:    dedup(in.TagIDs),
	})
	now := f.now()
	b.DateCreated, b.DateModified = now, now

	if err := f.gw.InsertBookmark(ctx, b); err != nil {
		// Lost a race with another capture of the same image.
		if errors.Is(err, model.ErrDuplicateHash) {
			if dup, ok, ferr := f.findByHash(ctx, hash); ferr == nil && ok {
				return CaptureResult{Bookmark: dup, IsDuplicate: true}, nil
			}
		}
		return CaptureResult{}, fmt.Errorf("capture %s: %w", in.PageURL, err)
	}
	f.addLocal("capture", b)

	f.logger.Info("capture.created", "id", b.ID, "url", b.PageURL, "hash", hash)
	return CaptureResult{Bookmark: b}, nil
}

// findByHash looks hash up locally and then in the gateway. A bookmark found
// only remotely is merged into the collection.
func (f *Facade) findByHash(ctx context.Context, hash string) (model.Bookmark, bool, error) {
	holders, err := f.coll.ByImageHash(hash)
	if err != nil {
		return model.Bookmark{}, false, err
	}
	if len(holders) == 1 {
		return holders[0], true, nil
	}

	b, ok, err := f.gw.FindBookmarkByHash(ctx, hash)
	if err != nil {
		return model.Bookmark{}, false, fmt.Errorf("capture lookup %s: %w", hash, err)
	}
	if ok {
		f.coll.Merge(b)
	}
	return b, ok, nil
}
