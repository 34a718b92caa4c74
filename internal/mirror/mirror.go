// Package mirror maintains the local working copy of a bucket: a directory
// tree whose files map 1:1 onto bucket keys.
package mirror

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/rpmforge/reposync/internal/utils"
)

var ErrMirrorLocked = errors.New("staging directory is locked by another run")

// Mirror maps bucket keys to paths under a staging root. Key "a/b/c.rpm"
// lives at <root>/a/b/c.rpm.
type Mirror struct {
	root  string
	flock *flock.Flock
}

func New(root string) (*Mirror, error) {
	abs, err := utils.ResolvePath(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve staging directory %s: %w", root, err)
	}
	// the lock file sits next to the root so PreClean doesn't wipe it
	return &Mirror{
		root:  abs,
		flock: flock.New(abs + ".lock"),
	}, nil
}

// Lock guards the staging directory against a concurrent run over the same
// tree.
func (m *Mirror) Lock() error {
	locked, err := m.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock staging directory: %w", err)
	}
	if !locked {
		return ErrMirrorLocked
	}
	return nil
}

func (m *Mirror) Unlock() error {
	return m.flock.Unlock()
}

func (m *Mirror) Root() string {
	return m.root
}

// Path returns the local path backing a bucket key.
func (m *Mirror) Path(key string) string {
	return filepath.Join(m.root, filepath.FromSlash(key))
}

// Key relativizes an absolute local path into a bucket key, normalizing to
// forward slashes and stripping leading/trailing separators.
func (m *Mirror) Key(path string) (string, error) {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", path, err)
	}
	key := strings.Trim(filepath.ToSlash(rel), "/")
	if key == ".." || strings.HasPrefix(key, "../") {
		return "", fmt.Errorf("path %s is outside the staging directory", path)
	}
	return key, nil
}

func (m *Mirror) Exists(key string) bool {
	return utils.FileExists(m.Path(key))
}

// Delete removes the file backing key. A missing file is an error: at the
// point deletes run, every listed key must be present in the mirror.
func (m *Mirror) Delete(key string) error {
	path := m.Path(key)
	if !utils.FileExists(path) {
		return fmt.Errorf("cannot delete non-existent file: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

// Rename gives the file backing key a new filename in the same directory and
// returns the renamed file's key.
func (m *Mirror) Rename(key, newName string) (string, error) {
	oldPath := m.Path(key)
	newPath := filepath.Join(filepath.Dir(oldPath), newName)
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", fmt.Errorf("failed to rename %s to %s: %w", oldPath, newPath, err)
	}
	return m.Key(newPath)
}

// Files enumerates every regular file under dir (an absolute path inside the
// mirror), in walk order.
func (m *Mirror) Files(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", dir, err)
	}
	return files, nil
}

// PreClean recreates the staging root as an empty directory.
func (m *Mirror) PreClean() error {
	if err := os.RemoveAll(m.root); err != nil {
		return fmt.Errorf("failed to clean staging directory %s: %w", m.root, err)
	}
	return os.MkdirAll(m.root, 0o755)
}
