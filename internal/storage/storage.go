package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/nikbrunner/marks/internal/model"
)

// JSONGateway implements Gateway on top of a single JSON file. The file is
// read once and rewritten after every change.
type JSONGateway struct {
	path string

	mu   sync.Mutex
	snap *model.Snapshot
}

var _ Gateway = (*JSONGateway)(nil)
var _ Gateway = (*SQLiteGateway)(nil)

// NewJSONGateway opens the JSON library at path. A missing file is an empty
// library.
func NewJSONGateway(path string) (*JSONGateway, error) {
	g := &JSONGateway{path: path}
	snap, err := g.load()
	if err != nil {
		return nil, err
	}
	g.snap = snap
	return g, nil
}

// Path returns the storage file path.
func (g *JSONGateway) Path() string {
	return g.path
}

func (g *JSONGateway) load() (*model.Snapshot, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewSnapshot(), nil
		}
		return nil, gatewayErr("read library", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, gatewayErr("decode library", err)
	}

	// Ensure slices are not nil
	if snap.Tags == nil {
		snap.Tags = []model.Tag{}
	}
	if snap.Bookmarks == nil {
		snap.Bookmarks = []model.Bookmark{}
	}
	for i := range snap.Bookmarks {
		snap.Bookmarks[i] = snap.Bookmarks[i].Clone()
	}
	for i := range snap.Tags {
		snap.Tags[i] = snap.Tags[i].Clone()
	}
	return &snap, nil
}

// save writes snap and makes it current. On failure the previous state is
// kept.
func (g *JSONGateway) save(snap *model.Snapshot) error {
	dir := filepath.Dir(g.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return gatewayErr("write library", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return gatewayErr("encode library", err)
	}

	if err := os.WriteFile(g.path, data, 0644); err != nil {
		return gatewayErr("write library", err)
	}
	g.snap = snap
	return nil
}

// working returns a deep copy of the current snapshot to mutate.
func (g *JSONGateway) working() *model.Snapshot {
	out := &model.Snapshot{
		Tags:      make([]model.Tag, len(g.snap.Tags)),
		Bookmarks: make([]model.Bookmark, len(g.snap.Bookmarks)),
	}
	for i, t := range g.snap.Tags {
		out.Tags[i] = t.Clone()
	}
	for i, b := range g.snap.Bookmarks {
		out.Bookmarks[i] = b.Clone()
	}
	return out
}

func (g *JSONGateway) findBookmarks(f BookmarkFilter) []model.Bookmark {
	out := []model.Bookmark{}
	for _, b := range g.snap.Bookmarks {
		if f.Match(b) {
			out = append(out, b.Clone())
		}
	}
	return out
}

// FindAllBookmarks returns every bookmark in file order.
func (g *JSONGateway) FindAllBookmarks(ctx context.Context) ([]model.Bookmark, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.findBookmarks(BookmarkFilter{}), nil
}

// FindBookmarksByIDs returns the bookmarks with the given ids.
func (g *JSONGateway) FindBookmarksByIDs(ctx context.Context, ids []string) ([]model.Bookmark, error) {
	if len(ids) == 0 {
		return []model.Bookmark{}, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.findBookmarks(ByIDs(ids...)), nil
}

// FindBookmarkByHash returns the bookmark holding hash.
func (g *JSONGateway) FindBookmarkByHash(ctx context.Context, hash string) (model.Bookmark, bool, error) {
	if hash == "" {
		return model.Bookmark{}, false, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, b := range g.snap.Bookmarks {
		if b.ImageHash == hash {
			return b.Clone(), true, nil
		}
	}
	return model.Bookmark{}, false, nil
}

// InsertBookmark appends a new bookmark.
func (g *JSONGateway) InsertBookmark(ctx context.Context, b model.Bookmark) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, existing := range g.snap.Bookmarks {
		if existing.ID == b.ID {
			return fmt.Errorf("insert bookmark %s: %w", b.ID, model.ErrDuplicateID)
		}
		if b.ImageHash != "" && existing.ImageHash == b.ImageHash {
			return fmt.Errorf("insert bookmark %s: %w", b.ID, model.ErrDuplicateHash)
		}
	}
	snap := g.working()
	nb := b.Clone()
	nb.IsSelected = false
	snap.Bookmarks = append(snap.Bookmarks, nb)
	return g.save(snap)
}

// UpdateBookmarks applies p to every bookmark matching f.
func (g *JSONGateway) UpdateBookmarks(ctx context.Context, f BookmarkFilter, p BookmarkPatch) (UpdateResult, error) {
	if f.IsZero() {
		return UpdateResult{}, fmt.Errorf("%w: update needs a filter", model.ErrValidation)
	}
	p.IsSelected = nil

	g.mu.Lock()
	defer g.mu.Unlock()
	snap := g.working()
	var res UpdateResult
	for i := range snap.Bookmarks {
		if !f.Match(snap.Bookmarks[i]) {
			continue
		}
		res.Matched++
		if p.Apply(&snap.Bookmarks[i]) {
			res.Modified++
		}
	}
	if res.Modified == 0 {
		return res, nil
	}
	if err := g.save(snap); err != nil {
		return UpdateResult{}, err
	}
	return res, nil
}

// DeleteBookmarks removes every bookmark matching f.
func (g *JSONGateway) DeleteBookmarks(ctx context.Context, f BookmarkFilter) (int, error) {
	if f.IsZero() {
		return 0, fmt.Errorf("%w: delete needs a filter", model.ErrValidation)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	snap := g.working()
	n := len(snap.Bookmarks)
	snap.Bookmarks = slices.DeleteFunc(snap.Bookmarks, f.Match)
	removed := n - len(snap.Bookmarks)
	if removed == 0 {
		return 0, nil
	}
	if err := g.save(snap); err != nil {
		return 0, err
	}
	return removed, nil
}

// FindAllTags returns every tag in file order.
func (g *JSONGateway) FindAllTags(ctx context.Context) ([]model.Tag, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.Tag, len(g.snap.Tags))
	for i, t := range g.snap.Tags {
		out[i] = t.Clone()
	}
	return out, nil
}

// InsertTag appends a new tag.
func (g *JSONGateway) InsertTag(ctx context.Context, t model.Tag) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.snap.GetTagByID(t.ID) != nil {
		return fmt.Errorf("insert tag %s: %w", t.ID, model.ErrDuplicateID)
	}
	snap := g.working()
	snap.Tags = append(snap.Tags, t.Clone())
	return g.save(snap)
}

// UpdateTags applies p to every tag matching f.
func (g *JSONGateway) UpdateTags(ctx context.Context, f TagFilter, p TagPatch) (UpdateResult, error) {
	if f.IsZero() {
		return UpdateResult{}, fmt.Errorf("%w: update needs a filter", model.ErrValidation)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	snap := g.working()
	var res UpdateResult
	for i := range snap.Tags {
		if !f.Match(snap.Tags[i]) {
			continue
		}
		res.Matched++
		if p.Apply(&snap.Tags[i]) {
			res.Modified++
		}
	}
	if res.Modified == 0 {
		return res, nil
	}
	if err := g.save(snap); err != nil {
		return UpdateResult{}, err
	}
	return res, nil
}

// DeleteTags removes the tags with the given ids.
func (g *JSONGateway) DeleteTags(ctx context.Context, ids []string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap := g.working()
	n := len(snap.Tags)
	snap.Tags = slices.DeleteFunc(snap.Tags, func(t model.Tag) bool { return slices.Contains(ids, t.ID) })
	removed := n - len(snap.Tags)
	if removed == 0 {
		return 0, nil
	}
	if err := g.save(snap); err != nil {
		return 0, err
	}
	return removed, nil
}

// DeleteTagCascade applies the whole cascade to a working copy and writes
// the file once.
func (g *JSONGateway) DeleteTagCascade(ctx context.Context, id string, bp BookmarkPatch) (TagCascade, error) {
	if id == "" {
		return TagCascade{}, fmt.Errorf("%w: delete needs a tag id", model.ErrValidation)
	}
	bp.IsSelected = nil

	g.mu.Lock()
	defer g.mu.Unlock()
	snap := g.working()

	var res TagCascade
	pull := TagPatch{PullParentIDs: []string{id}}
	for i := range snap.Tags {
		if snap.Tags[i].ID == id || !snap.Tags[i].HasParent(id) {
			continue
		}
		res.Children.Matched++
		if pull.Apply(&snap.Tags[i]) {
			res.Children.Modified++
		}
	}
	for i := range snap.Bookmarks {
		if !snap.Bookmarks[i].HasTag(id) {
			continue
		}
		res.Bookmarks.Matched++
		if bp.Apply(&snap.Bookmarks[i]) {
			res.Bookmarks.Modified++
		}
	}
	if err := res.check(id); err != nil {
		return res, err
	}

	n := len(snap.Tags)
	snap.Tags = slices.DeleteFunc(snap.Tags, func(t model.Tag) bool { return t.ID == id })
	res.Deleted = n - len(snap.Tags)

	if err := g.save(snap); err != nil {
		return TagCascade{}, err
	}
	return res, nil
}

// ReplaceAll overwrites the file with snap.
func (g *JSONGateway) ReplaceAll(ctx context.Context, snap *model.Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	next := model.NewSnapshot()
	for _, t := range snap.Tags {
		next.Tags = append(next.Tags, t.Clone())
	}
	for _, b := range snap.Bookmarks {
		nb := b.Clone()
		nb.IsSelected = false
		next.Bookmarks = append(next.Bookmarks, nb)
	}
	return g.save(next)
}

// Close is a no-op; every change is already on disk.
func (g *JSONGateway) Close() error {
	return nil
}

// Backend names accepted by the database config key.
const (
	BackendAuto   = "auto"
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// OpenGateway opens the backend named in cfg. With BackendAuto it prefers
// an existing SQLite database, then an existing JSON file, and creates a
// SQLite database otherwise.
func OpenGateway(cfg *Config) (Gateway, error) {
	switch cfg.Database {
	case BackendSQLite:
		return NewSQLiteGateway(cfg.SQLitePath())
	case BackendJSON:
		return NewJSONGateway(cfg.JSONPath())
	case BackendAuto, "":
		if _, err := os.Stat(cfg.SQLitePath()); err == nil {
			return NewSQLiteGateway(cfg.SQLitePath())
		}
		if _, err := os.Stat(cfg.JSONPath()); err == nil {
			return NewJSONGateway(cfg.JSONPath())
		}
		return NewSQLiteGateway(cfg.SQLitePath())
	default:
		return nil, fmt.Errorf("%w: unknown database backend %q", model.ErrValidation, cfg.Database)
	}
}
