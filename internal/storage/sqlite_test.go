package storage_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
	"gotest.tools/v3/assert"
)

func TestSQLiteGateway_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "marks.db")

	g, err := storage.NewSQLiteGateway(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer g.Close()

	version, err := g.SchemaVersion()
	assert.NilError(t, err)
	assert.Equal(t, version, 2)
}

func TestSQLiteGateway_MigratesV1Database(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "old.db")

	// A database written before page url indexes existed.
	db, err := sql.Open("sqlite", dbPath)
	assert.NilError(t, err)
	_, err = db.Exec(`
		CREATE TABLE schema_version (version INTEGER PRIMARY KEY);
		INSERT INTO schema_version (version) VALUES (1);
		CREATE TABLE tags (id TEXT PRIMARY KEY NOT NULL, label TEXT NOT NULL,
			aliases TEXT NOT NULL DEFAULT '[]', parent_ids TEXT NOT NULL DEFAULT '[]');
		CREATE TABLE bookmarks (id TEXT PRIMARY KEY NOT NULL, page_url TEXT NOT NULL,
			title TEXT NOT NULL, original_title TEXT NOT NULL, date_created TEXT NOT NULL,
			date_modified TEXT NOT NULL, image_hash TEXT NOT NULL DEFAULT '',
			image_path TEXT NOT NULL DEFAULT '', rating INTEGER NOT NULL DEFAULT 0,
			is_archived INTEGER NOT NULL DEFAULT 0, tag_ids TEXT NOT NULL DEFAULT '[]');
		INSERT INTO bookmarks (id, page_url, title, original_title, date_created, date_modified, tag_ids)
			VALUES ('b1', 'https://go.dev', 'Go', 'Go', '2025-01-15T10:30:00Z', '2025-01-15T10:30:00Z', '["t1"]');
	`)
	assert.NilError(t, err)
	db.Close()

	g, err := storage.NewSQLiteGateway(dbPath)
	assert.NilError(t, err)
	defer g.Close()

	version, err := g.SchemaVersion()
	assert.NilError(t, err)
	assert.Equal(t, version, 2)

	all, err := g.FindAllBookmarks(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, len(all), 1)
	assert.DeepEqual(t, all[0].TagIDs, []string{"t1"})
}

func TestSQLiteGateway_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "marks.db")
	ctx := context.Background()

	g, err := storage.NewSQLiteGateway(dbPath)
	assert.NilError(t, err)
	seed(t, g)
	assert.NilError(t, g.Close())

	g, err = storage.NewSQLiteGateway(dbPath)
	assert.NilError(t, err)
	defer g.Close()

	snap, err := storage.LoadSnapshot(ctx, g)
	assert.NilError(t, err)
	assert.Equal(t, len(snap.Bookmarks), 3)
	assert.Equal(t, len(snap.Tags), 2)

	// Tags come back ordered by label.
	assert.Equal(t, snap.Tags[0].Label, "urgent")
	assert.DeepEqual(t, snap.Tags[0].ParentIDs, []string{"work"})
	assert.DeepEqual(t, snap.Tags[1].Aliases, []string{"job"})
}

func TestSQLiteGateway_EmptyLists(t *testing.T) {
	ctx := context.Background()
	g, err := storage.NewSQLiteGateway(filepath.Join(t.TempDir(), "marks.db"))
	assert.NilError(t, err)
	defer g.Close()

	assert.NilError(t, g.InsertBookmark(ctx, model.Bookmark{ID: "b", PageURL: "https://x.example"}))
	assert.NilError(t, g.InsertTag(ctx, model.Tag{ID: "t", Label: "t"}))

	bookmarks, err := g.FindAllBookmarks(ctx)
	assert.NilError(t, err)
	assert.Assert(t, bookmarks[0].TagIDs != nil)

	tags, err := g.FindAllTags(ctx)
	assert.NilError(t, err)
	assert.Assert(t, tags[0].Aliases != nil)
	assert.Assert(t, tags[0].ParentIDs != nil)
}
