package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"board-relay/models"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("blob not found")

// BlobStore is durable key to bytes storage for downloaded media. Keys use
// forward slashes: <directory>/<thread id>/<filename>.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	// List returns every key under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes a key; a missing key is not an error.
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// New returns the S3 store when enabled, the local store otherwise.
func New(cfg *models.BotConfig) (BlobStore, error) {
	if cfg.S3.Enabled {
		return NewS3Store(cfg.S3)
	}
	return NewLocalStore(cfg.MediaDir)
}

// LocalStore implements BlobStore on the local disk.
type LocalStore struct {
	Root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalStore{Root: root}, nil
}

func (ls *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(ls.Root, clean), nil
}

// Put writes through a hidden temporary file so List never sees a
// partial download.
func (ls *LocalStore) Put(_ context.Context, key string, data []byte) error {
	full, err := ls.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(dir, ".part-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", key, err)
	}
	return os.Rename(tmp.Name(), full)
}

func (ls *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	full, err := ls.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (ls *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	full, err := ls.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (ls *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	start := ls.Root
	if trimmed := strings.TrimSuffix(prefix, "/"); trimmed != "" {
		p, err := ls.path(trimmed)
		if err != nil {
			return nil, err
		}
		start = p
	}

	var keys []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(ls.Root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (ls *LocalStore) Delete(_ context.Context, key string) error {
	full, err := ls.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (ls *LocalStore) DeletePrefix(_ context.Context, prefix string) error {
	trimmed := strings.TrimSuffix(prefix, "/")
	if trimmed == "" {
		return fmt.Errorf("refusing to delete the whole store")
	}
	full, err := ls.path(trimmed)
	if err != nil {
		return err
	}
	return os.RemoveAll(full)
}
