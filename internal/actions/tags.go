package actions

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
)

// TagInput holds the editable fields of a tag.
type TagInput struct {
	Label     string
	Aliases   []string
	ParentIDs []string
}

func (f *Facade) validateTag(id string, in TagInput) (TagInput, error) {
	in.Label = strings.TrimSpace(in.Label)
	if err := model.ValidateLabel(in.Label); err != nil {
		return in, err
	}
	if f.graph.IsLabelTaken(in.Label, id) {
		return in, fmt.Errorf("%w: %q", model.ErrDuplicateLabel, in.Label)
	}

	in.ParentIDs = dedup(in.ParentIDs)
	var descendants []string
	if id != "" {
		descendants = f.graph.ChildrenOf(id)
	}
	for _, pid := range in.ParentIDs {
		if pid == id {
			return in, fmt.Errorf("%w: %q lists itself as parent", model.ErrCyclicParent, in.Label)
		}
		if !f.graph.Has(pid) {
			return in, fmt.Errorf("%w: parent %s", model.ErrUnknownTag, pid)
		}
		if slices.Contains(descendants, pid) {
			return in, fmt.Errorf("%w: %s descends from %q", model.ErrCyclicParent, pid, in.Label)
		}
	}

	var aliases []string
	for _, a := range in.Aliases {
		if a = strings.TrimSpace(a); a != "" && !slices.Contains(aliases, a) {
			aliases = append(aliases, a)
		}
	}
	in.Aliases = aliases
	if in.Aliases == nil {
		in.Aliases = []string{}
	}
	return in, nil
}

// CreateTag validates and stores a new tag.
func (f *Facade) CreateTag(ctx context.Context, in TagInput) (model.Tag, error) {
	in, err := f.validateTag("", in)
	if err != nil {
		return model.Tag{}, err
	}

	tag := model.NewTag(model.NewTagParams{Label: in.Label, Aliases: in.Aliases, ParentIDs: in.ParentIDs})
	if err := f.gw.InsertTag(ctx, tag); err != nil {
		return model.Tag{}, fmt.Errorf("create tag %q: %w", in.Label, err)
	}
	f.graph.Put(tag)

	f.logger.Info("tag.created", "id", tag.ID, "label", tag.Label)
	return tag, nil
}

// EditTag replaces the label, aliases and parents of an existing tag.
// A parent may not be the tag itself or one of its descendants.
func (f *Facade) EditTag(ctx context.Context, id string, in TagInput) (model.Tag, error) {
	if !f.graph.Has(id) {
		return model.Tag{}, fmt.Errorf("edit tag %s: %w", id, model.ErrNotFound)
	}
	in, err := f.validateTag(id, in)
	if err != nil {
		return model.Tag{}, err
	}

	patch := storage.TagPatch{
		Label:        &in.Label,
		Aliases:      in.Aliases,
		SetAliases:   true,
		ParentIDs:    in.ParentIDs,
		SetParentIDs: true,
	}
	if _, err := f.gw.UpdateTags(ctx, storage.TagFilter{IDs: []string{id}}, patch); err != nil {
		return model.Tag{}, fmt.Errorf("edit tag %s: %w", id, err)
	}

	tag, ok := f.graph.Get(id)
	if !ok {
		f.logger.Warn("tag.edit.discarded", "id", id)
		return model.Tag{}, fmt.Errorf("edit tag %s: %w", id, model.ErrNotFound)
	}
	patch.Apply(&tag)
	f.graph.Put(tag)

	f.logger.Info("tag.edited", "id", id, "label", tag.Label)
	return tag, nil
}

// DeleteTag removes a tag and every reference to it. The gateway must
// confirm that every bookmark and tag referencing it was modified;
// otherwise ErrCountMismatch is returned and nothing changes locally.
func (f *Facade) DeleteTag(ctx context.Context, id string) error {
	if !f.graph.Has(id) {
		return fmt.Errorf("delete tag %s: %w", id, model.ErrNotFound)
	}
	now := f.now()

	bookmarkPatch := storage.BookmarkPatch{PullTagIDs: []string{id}, DateModified: &now}
	res, err := f.gw.DeleteTagCascade(ctx, id, bookmarkPatch)
	if errors.Is(err, model.ErrCountMismatch) {
		f.logger.Error("tag.delete.mismatch", "id", id,
			"bookmarks.matched", res.Bookmarks.Matched, "bookmarks.modified", res.Bookmarks.Modified,
			"children.matched", res.Children.Matched, "children.modified", res.Children.Modified)
	}
	if err != nil {
		return fmt.Errorf("delete tag %s: %w", id, err)
	}

	// Callback never fails.
	_, _ = f.coll.UpdateWhere(
		func(b model.Bookmark) bool { return b.HasTag(id) },
		func(b *model.Bookmark) error { bookmarkPatch.Apply(b); return nil },
	)
	f.graph.Remove(id)

	f.logger.Info("tag.deleted", "id", id, "bookmarks", res.Bookmarks.Modified, "children", res.Children.Modified)
	return nil
}
