// Package actions is the only path through which tags and bookmarks change.
// Every operation validates its input, persists through the gateway and only
// then applies the identical change to the in-memory graph and collection.
package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nikbrunner/marks/internal/assets"
	"github.com/nikbrunner/marks/internal/collection"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
	"github.com/nikbrunner/marks/internal/taggraph"
)

// Facade performs mutations. It holds no lock of its own; the graph and the
// collection synchronize themselves, and state is re-checked after every
// gateway call so results for records deleted in the meantime are dropped.
type Facade struct {
	gw     storage.Gateway
	assets assets.Store
	graph  *taggraph.Graph
	coll   *collection.Collection

	logger        *log.Logger
	now           func() time.Time
	skipIncognito bool
	concurrency   int
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(f *Facade) { f.logger = l }
}

// WithClock sets the time source used for modification dates.
func WithClock(now func() time.Time) Option {
	return func(f *Facade) { f.now = now }
}

// WithSkipIncognito rejects captures made in private windows.
func WithSkipIncognito(skip bool) Option {
	return func(f *Facade) { f.skipIncognito = skip }
}

// WithConcurrency sets the number of workers RefreshMany hashes with.
func WithConcurrency(n int) Option {
	return func(f *Facade) { f.concurrency = n }
}

// New creates a Facade.
func New(gw storage.Gateway, store assets.Store, graph *taggraph.Graph, coll *collection.Collection, opts ...Option) *Facade {
	f := &Facade{
		gw:          gw,
		assets:      store,
		graph:       graph,
		coll:        coll,
		logger:      log.New(io.Discard),
		now:         func() time.Time { return time.Now().UTC() },
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load replaces the graph and the collection with the gateway's contents.
// Integrity problems in the stored data are logged, not fatal.
func (f *Facade) Load(ctx context.Context) error {
	snap, err := storage.LoadSnapshot(ctx, f.gw)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	f.graph.Replace(snap.Tags)
	f.coll.Replace(snap.Bookmarks)

	if cycles := f.graph.Cycles(); len(cycles) > 0 {
		f.logger.Warn("tags.cycle", "ids", cycles)
	}
	if dups := f.coll.DuplicateHashes(); len(dups) > 0 {
		f.logger.Warn("bookmarks.duplicate_hash", "hashes", dups)
	}
	f.logger.Info("library.loaded", "tags", len(snap.Tags), "bookmarks", len(snap.Bookmarks))
	return nil
}

// ApplyRemote refreshes the given bookmarks from the gateway after another
// process changed them. Local selection is kept; ids the gateway no longer
// knows are removed locally.
func (f *Facade) ApplyRemote(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := f.gw.FindBookmarksByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("apply remote: %w", err)
	}

	seen := make(map[string]bool, len(found))
	for _, b := range found {
		seen[b.ID] = true
	}
	var gone []string
	for _, id := range ids {
		if !seen[id] {
			gone = append(gone, id)
		}
	}

	f.coll.Merge(found...)
	removed := f.coll.Remove(gone...)
	f.logger.Debug("bookmarks.remote", "merged", len(found), "removed", removed)
	return nil
}

// Import merges imported tags and bookmarks. Tags are reused by label and
// bookmarks whose page URL already exists are skipped. It stops at the first
// gateway failure; everything inserted before it stays.
func (f *Facade) Import(ctx context.Context, tags []model.Tag, bookmarks []model.Bookmark) (model.ImportResult, error) {
	snap := &model.Snapshot{Tags: f.graph.All(), Bookmarks: f.coll.All()}
	plan := snap.ImportMerge(tags, bookmarks)

	var done model.ImportResult
	done.Skipped = plan.Skipped
	for _, t := range plan.Tags {
		if err := f.gw.InsertTag(ctx, t); err != nil {
			return done, fmt.Errorf("import tag %q: %w", t.Label, err)
		}
		f.graph.Put(t)
		done.Tags = append(done.Tags, t)
	}
	for _, b := range plan.Bookmarks {
		if err := f.gw.InsertBookmark(ctx, b); err != nil {
			return done, fmt.Errorf("import bookmark %s: %w", b.PageURL, err)
		}
		f.addLocal("import", b)
		done.Bookmarks = append(done.Bookmarks, b)
	}

	f.logger.Info("library.imported", "tags", len(done.Tags), "bookmarks", len(done.Bookmarks), "skipped", done.Skipped)
	return done, nil
}

// addLocal adds a bookmark the gateway just inserted. A push notification
// may have merged it already, in which case the stored copy wins. Any other
// conflict leaves the collection out of step with storage and is logged.
func (f *Facade) addLocal(op string, b model.Bookmark) {
	err := f.coll.Add(b)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrDuplicateID):
		f.coll.Merge(b)
	default:
		f.logger.Warn(op+".local.conflict", "id", b.ID, "hash", b.ImageHash, "err", err)
	}
}

// existing returns the ids present in the collection, deduplicated, in
// input order.
func (f *Facade) existing(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if f.coll.Has(id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func dedup(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
