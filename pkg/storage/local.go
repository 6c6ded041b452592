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

	"github.com/hooplab/goatindex/pkg/logger"
)

// Local is the filesystem backend. Objects live under a root directory;
// keys map directly to relative paths.
type Local struct {
	root   string
	logger *logger.Logger
}

// NewLocal creates the local backend and ensures the root directory exists.
func NewLocal(root string, log *logger.Logger) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", normalizeFSErr(err))
	}

	log.WithField("root", root).Debug("Local store initialized")

	return &Local{root: root, logger: log}, nil
}

// Read returns the object at key.
func (l *Local) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	data, err := os.ReadFile(l.path(key))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, normalizeFSErr(err))
	}

	return data, nil
}

// Write stores the object at key with atomic replace semantics: the data
// is written to a temp file in the target directory and renamed over the
// destination, so a reader never observes a partial object.
func (l *Local) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	dst := l.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", key, normalizeFSErr(err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, normalizeFSErr(err))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, normalizeFSErr(err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, normalizeFSErr(err))
	}

	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, normalizeFSErr(err))
	}

	return nil
}

// List returns all keys under prefix, sorted. A missing prefix is an
// empty listing, not an error.
func (l *Local) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	base := l.path(prefix)
	if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var keys []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, normalizeFSErr(err))
	}

	sort.Strings(keys)
	return keys, nil
}

// Exists reports whether an object is present at key.
func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	_, err := os.Stat(l.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", key, normalizeFSErr(err))
}

// Ping verifies the root directory is accessible.
func (l *Local) Ping(ctx context.Context) error {
	if _, err := os.Stat(l.root); err != nil {
		return fmt.Errorf("ping: %w", normalizeFSErr(err))
	}
	return nil
}

// Close is a no-op for the filesystem backend.
func (l *Local) Close() error { return nil }

func (l *Local) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

// normalizeFSErr maps filesystem errors onto the storage taxonomy.
func normalizeFSErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermission, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
