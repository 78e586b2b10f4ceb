// Package blobstore keeps uploaded image bytes addressable by key.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chart-analyst-bot/internal/features/upload/models"
)

var ErrNotFound = errors.New("blob not found")

// Store is the opaque blob store used by upload intake.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (models.ImageRef, error)
	Get(ctx context.Context, ref models.ImageRef) ([]byte, error)
}

// FileStore writes blobs below a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates root if it does not exist.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob dir %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

// Put writes data via temp file, fsync and atomic rename, so readers never see a
// partial blob. On error nothing is left behind.
func (fs *FileStore) Put(_ context.Context, key string, data []byte) (models.ImageRef, error) {
	fullPath, err := fs.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", key, err)
	}

	tmpPath := fullPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("fsync blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename blob: %w", err)
	}
	return models.ImageRef(key), nil
}

func (fs *FileStore) Get(_ context.Context, ref models.ImageRef) ([]byte, error) {
	fullPath, err := fs.resolve(string(ref))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("read blob %s: %w", ref, err)
	}
	return data, nil
}

// resolve maps a key to a path inside root and rejects keys escaping it.
func (fs *FileStore) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty blob key")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(fs.root, clean), nil
}
