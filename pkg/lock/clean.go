package lock

import (
	"os"
	"path/filepath"
	"strings"

	appcontext "github.com/rossmacarthur/sheldon/pkg/context"
	"github.com/rossmacarthur/sheldon/pkg/errors"
	"github.com/rossmacarthur/sheldon/pkg/logging"
)

// Clean removes clone and download directories that the lock document no
// longer references, e.g. after a plugin was removed from the config or its
// source changed. Paths recorded in the lock are kept, everything else
// under the clone and download roots is deleted. Problems are reported as
// warnings, not failures.
func (f *File) Clean(actx *appcontext.Context) []error {
	logger := logging.Logger("lock")

	var keep []string
	for i := range f.Plugins {
		plugin := &f.Plugins[i]
		if plugin.IsInline() || plugin.SourceDir == "" {
			continue
		}
		keep = append(keep, plugin.SourceDir)
		keep = append(keep, plugin.Files...)
	}

	logger.Debug().Int("kept", len(keep)).Msg("Cleaning unreferenced source directories")

	var warnings []error
	for _, root := range []string{actx.CloneDir, actx.DownloadDir} {
		cleanDir(root, keep, &warnings)
	}
	return warnings
}

func cleanDir(root string, keep []string, warnings *[]error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			*warnings = append(*warnings, errors.Wrapf(err, errors.ErrPermission, "failed to read directory %q", root))
		}
		return
	}
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		switch {
		case isKept(path, keep):
			// Exactly a kept path or inside one: leave it alone.
		case isAncestor(path, keep):
			cleanDir(path, keep, warnings)
		default:
			if err := os.RemoveAll(path); err != nil {
				*warnings = append(*warnings, errors.Wrapf(err, errors.ErrPermission, "failed to remove %q", path))
			}
		}
	}
}

// isKept reports whether path equals a kept path or lies inside one.
func isKept(path string, keep []string) bool {
	for _, k := range keep {
		if path == k || strings.HasPrefix(path, k+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// isAncestor reports whether path is a strict ancestor of any kept path.
func isAncestor(path string, keep []string) bool {
	for _, k := range keep {
		if strings.HasPrefix(k, path+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
