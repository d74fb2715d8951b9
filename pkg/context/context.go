// Package context carries the resolved settings for a single sheldon
// invocation: directory layout, active profile, lock mode, and the console
// status printer.
package context

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/rossmacarthur/sheldon/internal/version"
	"github.com/rossmacarthur/sheldon/pkg/fsutil"
)

// Environment variable overrides, checked before the XDG defaults.
const (
	EnvConfigDir = "SHELDON_CONFIG_DIR"
	EnvDataDir   = "SHELDON_DATA_DIR"
	EnvProfile   = "SHELDON_PROFILE"
)

// Default file and directory names inside the config and data directories.
const (
	appDir          = "sheldon"
	configFileName  = "plugins.toml"
	lockFileName    = "plugins.lock"
	cloneDirName    = "repos"
	downloadDirName = "downloads"
)

// LockMode describes how sources should be brought up to date.
type LockMode int

const (
	// LockModeNormal installs missing sources and leaves the rest alone.
	LockModeNormal LockMode = iota
	// LockModeUpdate fetches the latest for all tracked references.
	LockModeUpdate
	// LockModeReinstall wipes and reinstalls every source.
	LockModeReinstall
)

// Context is the resolved environment for one invocation. The fields
// serialized into the lock file form the staleness fingerprint.
type Context struct {
	Version     string
	Home        string
	ConfigDir   string
	DataDir     string
	ConfigFile  string
	LockFile    string
	CloneDir    string
	DownloadDir string
	Profile     string

	LockMode LockMode
	Output   *Output
}

// Options are the CLI-level overrides used to construct a Context.
type Options struct {
	ConfigDir string
	DataDir   string
	Profile   string
	LockMode  LockMode
	Verbosity int
	NoColor   bool
}

// New resolves a Context from the given options, the SHELDON_* environment
// variables, and the XDG base directories, in that order of precedence.
func New(opts Options) (*Context, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configDir := opts.ConfigDir
	if configDir == "" {
		configDir = os.Getenv(EnvConfigDir)
	}
	if configDir == "" {
		configDir = filepath.Join(xdg.ConfigHome, appDir)
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = os.Getenv(EnvDataDir)
	}
	if dataDir == "" {
		dataDir = filepath.Join(xdg.DataHome, appDir)
	}

	profile := opts.Profile
	if profile == "" {
		profile = os.Getenv(EnvProfile)
	}

	return &Context{
		Version:     version.Version,
		Home:        home,
		ConfigDir:   configDir,
		DataDir:     dataDir,
		ConfigFile:  filepath.Join(configDir, configFileName),
		LockFile:    filepath.Join(dataDir, lockFileName),
		CloneDir:    filepath.Join(dataDir, cloneDirName),
		DownloadDir: filepath.Join(dataDir, downloadDirName),
		Profile:     profile,
		LockMode:    opts.LockMode,
		Output:      NewOutput(opts.Verbosity, opts.NoColor),
	}, nil
}

// ExpandTilde expands a leading "~" in path to the user's home directory.
func (c *Context) ExpandTilde(path string) string {
	return fsutil.ExpandTilde(c.Home, path)
}

// ReplaceHome replaces the home directory prefix in path with "~".
func (c *Context) ReplaceHome(path string) string {
	return fsutil.ReplaceHome(c.Home, path)
}
