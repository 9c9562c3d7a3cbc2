// Package backup writes and reads whole-library snapshots as lz4-compressed
// JSON.
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/pierrec/lz4/v4"
)

// FormatVersion is written into every backup.
const FormatVersion = 1

// Ext is the file extension of backups.
const Ext = ".json.lz4"

type envelope struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	model.Snapshot
}

// Write compresses snap into w.
func Write(w io.Writer, snap *model.Snapshot, now time.Time) error {
	zw := lz4.NewWriter(w)
	env := envelope{Version: FormatVersion, CreatedAt: now.UTC(), Snapshot: *snap}
	if err := json.NewEncoder(zw).Encode(env); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

// Read decompresses a snapshot from r. Data that is not a backup of a known
// version is a validation error.
func Read(r io.Reader) (*model.Snapshot, time.Time, error) {
	var env envelope
	if err := json.NewDecoder(lz4.NewReader(r)).Decode(&env); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: not a marks backup: %v", model.ErrValidation, err)
	}
	if env.Version != FormatVersion {
		return nil, time.Time{}, fmt.Errorf("%w: unsupported backup version %d", model.ErrValidation, env.Version)
	}
	snap := env.Snapshot
	if snap.Tags == nil {
		snap.Tags = []model.Tag{}
	}
	if snap.Bookmarks == nil {
		snap.Bookmarks = []model.Bookmark{}
	}
	return &snap, env.CreatedAt, nil
}

// DefaultPath returns <dir>/backups/marks-YYYYMMDD-HHMMSS.json.lz4.
func DefaultPath(dir string, now time.Time) string {
	return filepath.Join(dir, "backups", "marks-"+now.UTC().Format("20060102-150405")+Ext)
}

// WriteFile writes a backup to path through a temporary file, so an
// interrupted backup never replaces a good one.
func WriteFile(path string, snap *model.Snapshot, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("write backup: %w: %w", model.ErrTransient, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".marks-backup-*")
	if err != nil {
		return fmt.Errorf("write backup: %w: %w", model.ErrTransient, err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, snap, now); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write backup: %w: %w", model.ErrTransient, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write backup: %w: %w", model.ErrTransient, err)
	}
	return nil
}

// ReadFile reads the backup at path.
func ReadFile(path string) (*model.Snapshot, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read backup: %w: %w", model.ErrTransient, err)
	}
	defer f.Close()
	return Read(f)
}
