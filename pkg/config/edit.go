package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/rossmacarthur/sheldon/pkg/errors"
)

// DefaultConfig is the content written by `sheldon init`.
func DefaultConfig(shell Shell) string {
	return fmt.Sprintf(`# sheldon configuration file
# See the documentation for the full schema.

shell = %q

[plugins]

# For example:
#
# [plugins.base16]
# github = "chriskempson/base16-shell"
`, shell)
}

// InitFile writes a default config file at path unless one already exists.
// It reports whether a new file was created.
func InitFile(path string, shell Shell) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errors.Wrapf(err, errors.ErrConfigLoad, "failed to create directory for %q", path)
	}
	if err := os.WriteFile(path, []byte(DefaultConfig(shell)), 0o644); err != nil {
		return false, errors.Wrapf(err, errors.ErrConfigLoad, "failed to write %q", path)
	}
	return true, nil
}

// AddPlugin appends a [plugins.<name>] table to the config file, validating
// the resulting document before writing it back. Comments and formatting of
// the existing content are preserved.
func AddPlugin(path, name string, plugin RawPlugin) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigLoad, "failed to read config from %q", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return err
	}
	for _, p := range cfg.Plugins {
		if p.Name == name {
			return errors.Newf(errors.ErrConfigInvalid, "plugin %q already exists", name)
		}
	}

	body, err := toml.Marshal(map[string]map[string]RawPlugin{"plugins": {name: plugin}})
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to serialize plugin %q", name)
	}

	var sb strings.Builder
	sb.Write(data)
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	sb.Write(body)

	if _, err := Parse([]byte(sb.String())); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// RemovePlugin deletes the [plugins.<name>] table (and its nested tables)
// from the config file, leaving everything else untouched.
func RemovePlugin(path, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigLoad, "failed to read config from %q", path)
	}

	header := regexp.MustCompile(`^\s*\[plugins\.(?:"([^"]+)"|([^\]".\s]+))`)
	anyTable := regexp.MustCompile(`^\s*\[`)

	lines := strings.Split(string(data), "\n")
	var kept []string
	removed := false
	skipping := false
	for _, line := range lines {
		if m := header.FindStringSubmatch(line); m != nil {
			found := m[1]
			if found == "" {
				found = m[2]
			}
			if found == name {
				skipping = true
				removed = true
				continue
			}
			skipping = false
		} else if skipping && anyTable.MatchString(line) {
			skipping = false
		}
		if !skipping {
			kept = append(kept, line)
		}
	}

	if !removed {
		return errors.Newf(errors.ErrNotFound, "plugin %q was not found in the config", name)
	}

	out := strings.Join(kept, "\n")
	if _, err := Parse([]byte(out)); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), 0o644)
}
