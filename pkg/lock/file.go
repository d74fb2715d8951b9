package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/rossmacarthur/sheldon/pkg/config"
	appcontext "github.com/rossmacarthur/sheldon/pkg/context"
	"github.com/rossmacarthur/sheldon/pkg/errors"
)

// File is the lock document: the fully resolved state of every plugin,
// persisted as TOML. The leading context fields are the staleness
// fingerprint; if any of them differ from the current invocation the lock
// must be rebuilt.
type File struct {
	Version    string `toml:"version"`
	Home       string `toml:"home"`
	ConfigDir  string `toml:"config_dir"`
	DataDir    string `toml:"data_dir"`
	ConfigFile string `toml:"config_file"`
	Profile    string `toml:"profile,omitempty"`

	// ConfigHash digests the configuration this document was resolved
	// from. It is only set on complete documents: a run with failures
	// leaves it empty so the document is never reused verbatim.
	ConfigHash string `toml:"config_hash,omitempty"`

	Plugins   []Plugin                   `toml:"plugins"`
	Templates map[string]config.Template `toml:"templates"`

	// Errors collects per-plugin failures from the run that produced this
	// document. Failed plugins are excluded from Plugins. Not persisted.
	Errors []error `toml:"-"`
}

// Plugin is one resolved plugin in the lock document, in configuration
// declaration order. Inline plugins carry the raw script and no paths.
type Plugin struct {
	Name      string            `toml:"name"`
	Inline    string            `toml:"inline,omitempty"`
	SourceDir string            `toml:"source_dir,omitempty"`
	PluginDir string            `toml:"plugin_dir,omitempty"`
	Files     []string          `toml:"files,omitempty"`
	Apply     []string          `toml:"apply,omitempty"`
	Hooks     map[string]string `toml:"hooks,omitempty"`
}

// IsInline reports whether this locked plugin is an inline snippet.
func (p *Plugin) IsInline() bool {
	return p.Inline != ""
}

// Dir returns the directory templates render against: the sub-directory
// override when present, the source directory otherwise.
func (p *Plugin) Dir() string {
	if p.PluginDir != "" {
		return p.PluginDir
	}
	return p.SourceDir
}

// HashConfig returns a stable digest of everything in the configuration
// that affects resolution: the full plugin list with all fields, the
// effective template table, and the effective match and apply lists. JSON
// is used as the digest input because it serializes map keys in sorted
// order.
func HashConfig(cfg *config.Config) string {
	data, err := json.Marshal(struct {
		Matches   []string
		Apply     []string
		Templates map[string]config.Template
		Plugins   []config.Plugin
	}{cfg.EffectiveMatches(), cfg.EffectiveApply(), cfg.EffectiveTemplates(), cfg.Plugins})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ReadFile reads a lock document from path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrLockRead, "failed to read lock file from %q", path)
	}
	var file File
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, errors.ErrLockRead, "failed to parse lock file")
	}
	return &file, nil
}

// WriteTo persists the lock document to path.
func (f *File) WriteTo(path string) error {
	data, err := toml.Marshal(f)
	if err != nil {
		return errors.Wrap(err, errors.ErrLockWrite, "failed to serialize lock file")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrLockWrite, "failed to create directory for %q", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrLockWrite, "failed to write lock file to %q", path)
	}
	return nil
}

// Verify reports whether this lock document is still valid for the given
// context: the fingerprint must match exactly and every recorded directory
// and file must still exist on disk.
func (f *File) Verify(ctx *appcontext.Context) bool {
	if f.Version != ctx.Version ||
		f.Home != ctx.Home ||
		f.ConfigDir != ctx.ConfigDir ||
		f.DataDir != ctx.DataDir ||
		f.ConfigFile != ctx.ConfigFile ||
		f.Profile != ctx.Profile {
		return false
	}
	for i := range f.Plugins {
		plugin := &f.Plugins[i]
		if plugin.IsInline() {
			continue
		}
		if _, err := os.Stat(plugin.Dir()); err != nil {
			return false
		}
		for _, file := range plugin.Files {
			if _, err := os.Stat(file); err != nil {
				return false
			}
		}
	}
	return true
}
