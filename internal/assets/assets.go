// Package assets stores captured screenshots addressed by the md5 of their
// bytes.
package assets

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/marks/internal/model"
)

// Store reads and writes content-addressed image files.
type Store interface {
	// PathFor returns where the asset for hash lives, whether or not it exists.
	PathFor(hash string) string
	Exists(hash string) bool
	// Write stores data under hash and returns its path. Writing an existing
	// hash leaves the file untouched.
	Write(hash string, data []byte) (string, error)
	// Delete removes the file at path. A missing file is not an error.
	Delete(path string) error
	// Hash reads the file at path and returns its hash and modification time.
	Hash(path string) (string, time.Time, error)
}

// FileStore keeps assets below a root directory as
// <root>/<h[0:2]>/<h[2:4]>/<h>.jpg.
type FileStore struct {
	root string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at root.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// HashBytes returns the hex md5 of data.
func HashBytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// PathFor returns the path of hash below the root.
func (s *FileStore) PathFor(hash string) string {
	if len(hash) < 4 {
		return filepath.Join(s.root, hash+".jpg")
	}
	return filepath.Join(s.root, hash[0:2], hash[2:4], hash+".jpg")
}

// Exists reports whether the asset for hash is on disk.
func (s *FileStore) Exists(hash string) bool {
	if hash == "" {
		return false
	}
	_, err := os.Stat(s.PathFor(hash))
	return err == nil
}

// Write stores data under hash.
func (s *FileStore) Write(hash string, data []byte) (string, error) {
	if hash == "" {
		return "", fmt.Errorf("%w: empty hash", model.ErrValidation)
	}
	path := s.PathFor(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("write asset %s: %w: %w", hash, model.ErrAssetIO, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return path, nil
	}
	if err != nil {
		return "", fmt.Errorf("write asset %s: %w: %w", hash, model.ErrAssetIO, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write asset %s: %w: %w", hash, model.ErrAssetIO, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write asset %s: %w: %w", hash, model.ErrAssetIO, err)
	}
	return path, nil
}

// Delete removes the file at path.
func (s *FileStore) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete asset: %w: %w", model.ErrAssetIO, err)
	}
	return nil
}

// Hash reads the file at path and returns its md5 and modification time.
func (s *FileStore) Hash(path string) (string, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("hash asset: %w: %w", model.ErrAssetIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("hash asset: %w: %w", model.ErrAssetIO, err)
	}

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", time.Time{}, fmt.Errorf("hash asset: %w: %w", model.ErrAssetIO, err)
	}
	return hex.EncodeToString(h.Sum(nil)), info.ModTime().UTC(), nil
}

// DecodeDataURL returns the bytes of a base64 data URL such as
// "data:image/jpeg;base64,....". A bare base64 string is accepted too.
func DecodeDataURL(s string) ([]byte, error) {
	payload := s
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.Contains(s[:comma], ";base64") {
			return nil, fmt.Errorf("%w: image must be a base64 data url", model.ErrValidation)
		}
		payload = s[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", model.ErrValidation, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", model.ErrValidation)
	}
	return data, nil
}
