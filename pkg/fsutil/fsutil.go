// Package fsutil provides filesystem helpers: atomic installs via sibling
// temporary paths, tilde expansion, and an advisory process mutex.
package fsutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rossmacarthur/sheldon/pkg/errors"
)

// TempPath holds a temporary file or directory path placed next to a target
// path. The temporary path is renamed over the target on Commit, so a failed
// or interrupted install never leaves a partial result at the target.
type TempPath struct {
	path string
	done bool
}

// NewTempPath returns a TempPath next to target, named by prefixing the base
// name with "~". Anything already at the temporary path is removed.
func NewTempPath(target string) (*TempPath, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrPermission, "failed to create directory %q", dir)
	}
	path := filepath.Join(dir, "~"+filepath.Base(target))
	if err := removeAny(path); err != nil {
		return nil, errors.Wrapf(err, errors.ErrPermission, "failed to remove stale temporary path %q", path)
	}
	return &TempPath{path: path}, nil
}

// Path returns the temporary path to write to.
func (t *TempPath) Path() string {
	return t.path
}

// Commit removes the target and renames the temporary path onto it.
func (t *TempPath) Commit(target string) error {
	if err := removeAny(target); err != nil {
		return err
	}
	if err := os.Rename(t.path, target); err != nil {
		return err
	}
	t.done = true
	return nil
}

// Discard removes the temporary path if Commit was not called.
func (t *TempPath) Discard() {
	if !t.done {
		_ = removeAny(t.path)
	}
}

func removeAny(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

// ExpandTilde expands a leading "~" in path to the given home directory.
func ExpandTilde(home, path string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return filepath.Join(home, path[2:])
	}
	return path
}

// ReplaceHome replaces a leading home directory in path with "~".
func ReplaceHome(home, path string) string {
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+string(filepath.Separator)) {
		return filepath.Join("~", path[len(home)+1:])
	}
	return path
}
