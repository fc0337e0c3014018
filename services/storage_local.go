package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStorage keeps objects under a directory on the local filesystem
type LocalStorage struct {
	root string
}

// NewLocalStorage stores objects below root
func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{root: root}
}

// Name implements StorageProvider
func (l *LocalStorage) Name() string {
	return "local:" + l.root
}

// path resolves key below the root. Keys that escape it are rejected.
func (l *LocalStorage) path(key string) (cleaned, full string, err error) {
	cleaned, err = cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(l.root, filepath.FromSlash(cleaned)), nil
}

// Put implements StorageProvider. The object appears atomically: content is
// written to a temporary file in the target directory and then renamed.
func (l *LocalStorage) Put(ctx context.Context, key string, body io.Reader, meta ObjectMeta) (*StoredObject, error) {
	key, full, err := l.path(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".put-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), full)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write %s: %w", key, err)
	}

	if meta.ContentType == "" {
		meta.ContentType = contentTypeFor(key)
	}
	meta.Size = written
	return &StoredObject{Key: key, ObjectMeta: meta}, nil
}

// Open implements StorageProvider
func (l *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, ObjectMeta, error) {
	_, full, err := l.path(key)
	if err != nil {
		return nil, ObjectMeta{}, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ObjectMeta{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, ObjectMeta{}, fmt.Errorf("failed to open %s: %w", key, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectMeta{}, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return f, ObjectMeta{ContentType: contentTypeFor(key), Size: info.Size()}, nil
}

// Delete implements StorageProvider. Deleting a missing key succeeds.
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	_, full, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
