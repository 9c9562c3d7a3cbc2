// Package library wires the stores, the view and the mutation façade into a
// single root object owned by the caller.
package library

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/nikbrunner/marks/internal/actions"
	"github.com/nikbrunner/marks/internal/assets"
	"github.com/nikbrunner/marks/internal/collection"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/query"
	"github.com/nikbrunner/marks/internal/selection"
	"github.com/nikbrunner/marks/internal/storage"
	"github.com/nikbrunner/marks/internal/taggraph"
)

// Library holds every component of an open bookmark library.
type Library struct {
	Gateway   storage.Gateway
	Assets    assets.Store
	Graph     *taggraph.Graph
	Bookmarks *collection.Collection
	View      *query.View
	Selection *selection.Controller
	Actions   *actions.Facade
}

// New builds a library around gw and store. Nothing is loaded yet.
func New(gw storage.Gateway, store assets.Store, criteria query.Criteria, opts ...actions.Option) *Library {
	graph := taggraph.New(nil)
	coll := collection.New(nil)
	view := query.NewView(coll, graph, criteria)
	return &Library{
		Gateway:   gw,
		Assets:    store,
		Graph:     graph,
		Bookmarks: coll,
		View:      view,
		Selection: selection.New(coll, view),
		Actions:   actions.New(gw, store, graph, coll, opts...),
	}
}

// Open opens the configured storage and loads the library.
func Open(ctx context.Context, cfg *storage.Config, logger *log.Logger) (*Library, error) {
	gw, err := storage.OpenGateway(cfg)
	if err != nil {
		return nil, err
	}

	criteria := query.DefaultCriteria()
	if cfg.PageSize > 0 {
		criteria.PageSize = cfg.PageSize
	}
	if cfg.SortKey != "" {
		criteria.SortKey = cfg.SortKey
		criteria.SortDesc = cfg.SortDesc
	}

	lib := New(gw, assets.NewFileStore(cfg.AssetDir), criteria,
		actions.WithLogger(logger),
		actions.WithSkipIncognito(cfg.Capture.SkipIncognito),
		actions.WithConcurrency(cfg.Refresh.Concurrency),
	)
	if err := lib.Actions.Load(ctx); err != nil {
		gw.Close()
		return nil, err
	}
	return lib, nil
}

// Close releases the storage.
func (l *Library) Close() error {
	return l.Gateway.Close()
}

// Reload reads everything from storage again and keeps the view on a valid
// page.
func (l *Library) Reload(ctx context.Context) error {
	if err := l.Actions.Load(ctx); err != nil {
		return err
	}
	l.View.ClampPage()
	return nil
}

// HandleKey runs the keyboard shortcuts that act on the sole selected
// bookmark: left and right move the selection through the filtered order,
// 1 to 9 set its rating. It reports whether key was handled.
func (l *Library) HandleKey(ctx context.Context, key string) (bool, error) {
	switch key {
	case "left":
		_, ok := l.Selection.Navigate(selection.Prev)
		return ok, nil
	case "right":
		_, ok := l.Selection.Navigate(selection.Next)
		return ok, nil
	}

	rating, err := strconv.Atoi(key)
	if err != nil || len(key) != 1 || rating == 0 || model.ValidateRating(rating) != nil {
		return false, nil
	}
	id, ok := l.Selection.SoleSelected()
	if !ok {
		return false, nil
	}
	if _, err := l.Actions.SetRating(ctx, []string{id}, rating); err != nil {
		return true, err
	}
	return true, nil
}

// DeleteTag deletes a tag and drops it from the filter criteria.
func (l *Library) DeleteTag(ctx context.Context, id string) error {
	if err := l.Actions.DeleteTag(ctx, id); err != nil {
		return err
	}
	l.View.ForgetTag(id)
	return nil
}

// ArchiveSelected archives the selected bookmarks.
func (l *Library) ArchiveSelected(ctx context.Context) (int, error) {
	changed, err := l.Actions.ArchiveBookmarks(ctx, l.Bookmarks.SelectedIDs())
	l.View.ClampPage()
	return len(changed), err
}

// UnarchiveSelected moves the selected bookmarks out of the archive.
func (l *Library) UnarchiveSelected(ctx context.Context) (int, error) {
	changed, err := l.Actions.UnarchiveBookmarks(ctx, l.Bookmarks.SelectedIDs())
	l.View.ClampPage()
	return len(changed), err
}

// DeleteSelected archives or permanently deletes the selected bookmarks.
func (l *Library) DeleteSelected(ctx context.Context) (actions.DeleteResult, error) {
	res, err := l.Actions.DeleteBookmarks(ctx, l.Bookmarks.SelectedIDs())
	l.View.ClampPage()
	return res, err
}

// RetagSelected adds and removes tags on the selected bookmarks.
func (l *Library) RetagSelected(ctx context.Context, added, removed []string) (int, error) {
	changed, err := l.Actions.RetagBookmarks(ctx, l.Bookmarks.SelectedIDs(), added, removed)
	l.View.ClampPage()
	return len(changed), err
}

// RateSelected sets the rating of the selected bookmarks.
func (l *Library) RateSelected(ctx context.Context, rating int) (int, error) {
	changed, err := l.Actions.SetRating(ctx, l.Bookmarks.SelectedIDs(), rating)
	return len(changed), err
}

// ApplyRemote merges bookmarks another process changed.
func (l *Library) ApplyRemote(ctx context.Context, ids []string) error {
	if err := l.Actions.ApplyRemote(ctx, ids); err != nil {
		return fmt.Errorf("remote update: %w", err)
	}
	l.View.ClampPage()
	return nil
}
