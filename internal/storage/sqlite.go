package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/marks/internal/model"
)

// SQLiteGateway implements Gateway using a SQLite database. Tag and parent
// id lists are stored as JSON arrays.
type SQLiteGateway struct {
	db   *sql.DB
	path string
}

// NewSQLiteGateway opens or creates the database at path and migrates it.
func NewSQLiteGateway(path string) (*SQLiteGateway, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	g := &SQLiteGateway{db: db, path: path}
	if err := g.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	return g, nil
}

// Path returns the database file path.
func (g *SQLiteGateway) Path() string {
	return g.path
}

// Close closes the database connection.
func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}

// SchemaVersion returns the migrated schema version.
func (g *SQLiteGateway) SchemaVersion() (int, error) {
	var version int
	err := g.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	return version, err
}

func (g *SQLiteGateway) migrate() error {
	var version int
	err := g.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := g.migrateV1(); err != nil {
			return err
		}
	}

	if version < 2 {
		if err := g.migrateV2(); err != nil {
			return err
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func (g *SQLiteGateway) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS tags (
			id TEXT PRIMARY KEY NOT NULL,
			label TEXT NOT NULL,
			aliases TEXT NOT NULL DEFAULT '[]',
			parent_ids TEXT NOT NULL DEFAULT '[]'
		);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id TEXT PRIMARY KEY NOT NULL,
			page_url TEXT NOT NULL,
			title TEXT NOT NULL,
			original_title TEXT NOT NULL,
			date_created TEXT NOT NULL,
			date_modified TEXT NOT NULL,
			image_hash TEXT NOT NULL DEFAULT '',
			image_path TEXT NOT NULL DEFAULT '',
			rating INTEGER NOT NULL DEFAULT 0,
			is_archived INTEGER NOT NULL DEFAULT 0,
			tag_ids TEXT NOT NULL DEFAULT '[]'
		);

		CREATE INDEX IF NOT EXISTS idx_bookmarks_image_hash ON bookmarks(image_hash) WHERE image_hash != '';

		DELETE FROM schema_version;
		INSERT INTO schema_version (version) VALUES (1);
	`
	_, err := g.db.Exec(schema)
	return err
}

// migrateV2 indexes page urls for import dedup and archive scope lookups.
func (g *SQLiteGateway) migrateV2() error {
	migration := `
		CREATE INDEX IF NOT EXISTS idx_bookmarks_page_url ON bookmarks(page_url);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_is_archived ON bookmarks(is_archived);
		UPDATE schema_version SET version = 2;
	`
	_, err := g.db.Exec(migration)
	return err
}

const bookmarkColumns = `id, page_url, title, original_title, date_created, date_modified,
	image_hash, image_path, rating, is_archived, tag_ids`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row rowScanner) (model.Bookmark, error) {
	var b model.Bookmark
	var created, modified, tagsJSON string
	var archived int
	if err := row.Scan(
		&b.ID, &b.PageURL, &b.Title, &b.OriginalTitle, &created, &modified,
		&b.ImageHash, &b.ImagePath, &b.Rating, &archived, &tagsJSON,
	); err != nil {
		return b, err
	}
	b.DateCreated, _ = time.Parse(time.RFC3339Nano, created)
	b.DateModified, _ = time.Parse(time.RFC3339Nano, modified)
	b.IsArchived = archived == 1
	if err := json.Unmarshal([]byte(tagsJSON), &b.TagIDs); err != nil || b.TagIDs == nil {
		b.TagIDs = []string{}
	}
	return b, nil
}

func bookmarkArgs(b model.Bookmark) []any {
	tagsJSON := jsonArray(b.TagIDs)
	archived := 0
	if b.IsArchived {
		archived = 1
	}
	return []any{
		b.ID, b.PageURL, b.Title, b.OriginalTitle,
		b.DateCreated.UTC().Format(time.RFC3339Nano), b.DateModified.UTC().Format(time.RFC3339Nano),
		b.ImageHash, b.ImagePath, b.Rating, archived, tagsJSON,
	}
}

func jsonArray(ids []string) string {
	if ids == nil {
		return "[]"
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

// where builds a SQL condition for f. The zero filter matches everything.
func (f BookmarkFilter) where() (string, []any) {
	var conds []string
	var args []any
	if len(f.IDs) > 0 {
		conds = append(conds, "id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if f.TagID != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM json_each(bookmarks.tag_ids) WHERE value = ?)")
		args = append(args, f.TagID)
	}
	if f.ImageHash != "" {
		conds = append(conds, "image_hash = ?")
		args = append(args, f.ImageHash)
	}
	if f.Archived != nil {
		conds = append(conds, "is_archived = ?")
		if *f.Archived {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	if len(conds) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func gatewayErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrGateway, err)
}

func (g *SQLiteGateway) queryBookmarks(ctx context.Context, q rowsQuerier, f BookmarkFilter) ([]model.Bookmark, error) {
	cond, args := f.where()
	rows, err := q.QueryContext(ctx, "SELECT "+bookmarkColumns+" FROM bookmarks WHERE "+cond+" ORDER BY date_created, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowsQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// FindAllBookmarks returns every bookmark ordered by creation date.
func (g *SQLiteGateway) FindAllBookmarks(ctx context.Context) ([]model.Bookmark, error) {
	out, err := g.queryBookmarks(ctx, g.db, BookmarkFilter{})
	if err != nil {
		return nil, gatewayErr("find bookmarks", err)
	}
	return out, nil
}

// FindBookmarksByIDs returns the bookmarks with the given ids; missing ids
// are skipped.
func (g *SQLiteGateway) FindBookmarksByIDs(ctx context.Context, ids []string) ([]model.Bookmark, error) {
	if len(ids) == 0 {
		return []model.Bookmark{}, nil
	}
	out, err := g.queryBookmarks(ctx, g.db, ByIDs(ids...))
	if err != nil {
		return nil, gatewayErr("find bookmarks by id", err)
	}
	return out, nil
}

// FindBookmarkByHash returns the bookmark holding hash.
func (g *SQLiteGateway) FindBookmarkByHash(ctx context.Context, hash string) (model.Bookmark, bool, error) {
	if hash == "" {
		return model.Bookmark{}, false, nil
	}
	row := g.db.QueryRowContext(ctx, "SELECT "+bookmarkColumns+" FROM bookmarks WHERE image_hash = ? LIMIT 1", hash)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bookmark{}, false, nil
	}
	if err != nil {
		return model.Bookmark{}, false, gatewayErr("find bookmark by hash", err)
	}
	return b, true, nil
}

// InsertBookmark inserts a new bookmark. Duplicate ids and non-empty
// duplicate hashes are rejected.
func (g *SQLiteGateway) InsertBookmark(ctx context.Context, b model.Bookmark) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return gatewayErr("insert bookmark", err)
	}
	defer tx.Rollback()

	var ids, hashes int
	if err := tx.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM bookmarks WHERE id = ?),
			(SELECT COUNT(*) FROM bookmarks WHERE image_hash != '' AND image_hash = ?)
	`, b.ID, b.ImageHash).Scan(&ids, &hashes); err != nil {
		return gatewayErr("insert bookmark", err)
	}
	if ids > 0 {
		return fmt.Errorf("insert bookmark %s: %w", b.ID, model.ErrDuplicateID)
	}
	if hashes > 0 {
		return fmt.Errorf("insert bookmark %s: %w", b.ID, model.ErrDuplicateHash)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO bookmarks ("+bookmarkColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		bookmarkArgs(b)...,
	); err != nil {
		return gatewayErr("insert bookmark", err)
	}
	if err := tx.Commit(); err != nil {
		return gatewayErr("insert bookmark", err)
	}
	return nil
}

// UpdateBookmarks applies p to every bookmark matching f in one transaction.
func (g *SQLiteGateway) UpdateBookmarks(ctx context.Context, f BookmarkFilter, p BookmarkPatch) (UpdateResult, error) {
	if f.IsZero() {
		return UpdateResult{}, fmt.Errorf("%w: update needs a filter", model.ErrValidation)
	}
	p.IsSelected = nil

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return UpdateResult{}, gatewayErr("update bookmarks", err)
	}
	defer tx.Rollback()

	matched, err := g.queryBookmarks(ctx, tx, f)
	if err != nil {
		return UpdateResult{}, gatewayErr("update bookmarks", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE bookmarks SET title = ?, date_modified = ?, image_hash = ?, image_path = ?,
			rating = ?, is_archived = ?, tag_ids = ?
		WHERE id = ?
	`)
	if err != nil {
		return UpdateResult{}, gatewayErr("update bookmarks", err)
	}
	defer stmt.Close()

	res := UpdateResult{Matched: len(matched)}
	for _, b := range matched {
		if !p.Apply(&b) {
			continue
		}
		args := bookmarkArgs(b)
		// title, date_modified, image_hash, image_path, rating, is_archived, tag_ids, id
		if _, err := stmt.ExecContext(ctx, args[2], args[5], args[6], args[7], args[8], args[9], args[10], b.ID); err != nil {
			return UpdateResult{}, gatewayErr("update bookmarks", err)
		}
		res.Modified++
	}

	if err := tx.Commit(); err != nil {
		return UpdateResult{}, gatewayErr("update bookmarks", err)
	}
	return res, nil
}

// DeleteBookmarks removes every bookmark matching f.
func (g *SQLiteGateway) DeleteBookmarks(ctx context.Context, f BookmarkFilter) (int, error) {
	if f.IsZero() {
		return 0, fmt.Errorf("%w: delete needs a filter", model.ErrValidation)
	}
	cond, args := f.where()
	res, err := g.db.ExecContext(ctx, "DELETE FROM bookmarks WHERE "+cond, args...)
	if err != nil {
		return 0, gatewayErr("delete bookmarks", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanTag(row rowScanner) (model.Tag, error) {
	var t model.Tag
	var aliases, parents string
	if err := row.Scan(&t.ID, &t.Label, &aliases, &parents); err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(aliases), &t.Aliases); err != nil || t.Aliases == nil {
		t.Aliases = []string{}
	}
	if err := json.Unmarshal([]byte(parents), &t.ParentIDs); err != nil || t.ParentIDs == nil {
		t.ParentIDs = []string{}
	}
	return t, nil
}

func (g *SQLiteGateway) queryTags(ctx context.Context, q rowsQuerier, f TagFilter) ([]model.Tag, error) {
	var conds []string
	var args []any
	if len(f.IDs) > 0 {
		conds = append(conds, "id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if f.ParentID != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM json_each(tags.parent_ids) WHERE value = ?)")
		args = append(args, f.ParentID)
	}
	cond := "1 = 1"
	if len(conds) > 0 {
		cond = strings.Join(conds, " AND ")
	}

	rows, err := q.QueryContext(ctx, "SELECT id, label, aliases, parent_ids FROM tags WHERE "+cond+" ORDER BY label, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FindAllTags returns every tag ordered by label.
func (g *SQLiteGateway) FindAllTags(ctx context.Context) ([]model.Tag, error) {
	out, err := g.queryTags(ctx, g.db, TagFilter{})
	if err != nil {
		return nil, gatewayErr("find tags", err)
	}
	return out, nil
}

// InsertTag inserts a new tag.
func (g *SQLiteGateway) InsertTag(ctx context.Context, t model.Tag) error {
	_, err := g.db.ExecContext(ctx,
		"INSERT INTO tags (id, label, aliases, parent_ids) VALUES (?, ?, ?, ?)",
		t.ID, t.Label, jsonArray(t.Aliases), jsonArray(t.ParentIDs),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("insert tag %s: %w", t.ID, model.ErrDuplicateID)
		}
		return gatewayErr("insert tag", err)
	}
	return nil
}

// UpdateTags applies p to every tag matching f in one transaction.
func (g *SQLiteGateway) UpdateTags(ctx context.Context, f TagFilter, p TagPatch) (UpdateResult, error) {
	if f.IsZero() {
		return UpdateResult{}, fmt.Errorf("%w: update needs a filter", model.ErrValidation)
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return UpdateResult{}, gatewayErr("update tags", err)
	}
	defer tx.Rollback()

	matched, err := g.queryTags(ctx, tx, f)
	if err != nil {
		return UpdateResult{}, gatewayErr("update tags", err)
	}

	res := UpdateResult{Matched: len(matched)}
	for _, t := range matched {
		if !p.Apply(&t) {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE tags SET label = ?, aliases = ?, parent_ids = ? WHERE id = ?",
			t.Label, jsonArray(t.Aliases), jsonArray(t.ParentIDs), t.ID,
		); err != nil {
			return UpdateResult{}, gatewayErr("update tags", err)
		}
		res.Modified++
	}

	if err := tx.Commit(); err != nil {
		return UpdateResult{}, gatewayErr("update tags", err)
	}
	return res, nil
}

// DeleteTags removes the tags with the given ids. It does not touch
// references held by bookmarks or other tags.
func (g *SQLiteGateway) DeleteTags(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := g.db.ExecContext(ctx, "DELETE FROM tags WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return 0, gatewayErr("delete tags", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteTagCascade runs the whole cascade in one transaction and rolls it
// back when a count check fails.
func (g *SQLiteGateway) DeleteTagCascade(ctx context.Context, id string, bp BookmarkPatch) (TagCascade, error) {
	if id == "" {
		return TagCascade{}, fmt.Errorf("%w: delete needs a tag id", model.ErrValidation)
	}
	bp.IsSelected = nil

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return TagCascade{}, gatewayErr("delete tag", err)
	}
	defer tx.Rollback()

	var res TagCascade
	children, err := g.queryTags(ctx, tx, TagFilter{ParentID: id})
	if err != nil {
		return TagCascade{}, gatewayErr("delete tag", err)
	}
	pull := TagPatch{PullParentIDs: []string{id}}
	for _, t := range children {
		if t.ID == id {
			continue
		}
		res.Children.Matched++
		if !pull.Apply(&t) {
			continue
		}
		if _, err := tx.ExecContext(ctx, "UPDATE tags SET parent_ids = ? WHERE id = ?", jsonArray(t.ParentIDs), t.ID); err != nil {
			return TagCascade{}, gatewayErr("delete tag", err)
		}
		res.Children.Modified++
	}

	holders, err := g.queryBookmarks(ctx, tx, BookmarkFilter{TagID: id})
	if err != nil {
		return TagCascade{}, gatewayErr("delete tag", err)
	}
	for _, b := range holders {
		res.Bookmarks.Matched++
		if !bp.Apply(&b) {
			continue
		}
		args := bookmarkArgs(b)
		// title, date_modified, image_hash, image_path, rating, is_archived, tag_ids, id
		if _, err := tx.ExecContext(ctx, `
			UPDATE bookmarks SET title = ?, date_modified = ?, image_hash = ?, image_path = ?,
				rating = ?, is_archived = ?, tag_ids = ?
			WHERE id = ?
		`, args[2], args[5], args[6], args[7], args[8], args[9], args[10], b.ID); err != nil {
			return TagCascade{}, gatewayErr("delete tag", err)
		}
		res.Bookmarks.Modified++
	}

	if err := res.check(id); err != nil {
		return res, err
	}

	deleted, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return TagCascade{}, gatewayErr("delete tag", err)
	}
	n, _ := deleted.RowsAffected()
	res.Deleted = int(n)

	if err := tx.Commit(); err != nil {
		return TagCascade{}, gatewayErr("delete tag", err)
	}
	return res, nil
}

// ReplaceAll clears both tables and inserts snap in one transaction.
func (g *SQLiteGateway) ReplaceAll(ctx context.Context, snap *model.Snapshot) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return gatewayErr("replace library", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM bookmarks"); err != nil {
		return gatewayErr("replace library", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tags"); err != nil {
		return gatewayErr("replace library", err)
	}

	tagStmt, err := tx.PrepareContext(ctx, "INSERT INTO tags (id, label, aliases, parent_ids) VALUES (?, ?, ?, ?)")
	if err != nil {
		return gatewayErr("replace library", err)
	}
	defer tagStmt.Close()
	for _, t := range snap.Tags {
		if _, err := tagStmt.ExecContext(ctx, t.ID, t.Label, jsonArray(t.Aliases), jsonArray(t.ParentIDs)); err != nil {
			return gatewayErr("replace library", err)
		}
	}

	bookmarkStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO bookmarks ("+bookmarkColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return gatewayErr("replace library", err)
	}
	defer bookmarkStmt.Close()
	for _, b := range snap.Bookmarks {
		if _, err := bookmarkStmt.ExecContext(ctx, bookmarkArgs(b)...); err != nil {
			return gatewayErr("replace library", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return gatewayErr("replace library", err)
	}
	return nil
}
