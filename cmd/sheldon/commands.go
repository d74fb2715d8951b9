package main

import (
	stdcontext "context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rossmacarthur/sheldon/pkg/config"
	appcontext "github.com/rossmacarthur/sheldon/pkg/context"
	"github.com/rossmacarthur/sheldon/pkg/download"
	"github.com/rossmacarthur/sheldon/pkg/errors"
	"github.com/rossmacarthur/sheldon/pkg/fsutil"
	"github.com/rossmacarthur/sheldon/pkg/gitutil"
	"github.com/rossmacarthur/sheldon/pkg/lock"
)

var initShell string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		actx, err := newContext(appcontext.LockModeNormal)
		if err != nil {
			return err
		}
		shell := config.Zsh
		if initShell != "" {
			if shell, err = config.ParseShell(initShell); err != nil {
				return err
			}
		}
		created, err := config.InitFile(actx.ConfigFile, shell)
		if err != nil {
			return err
		}
		if created {
			actx.Output.Header("Initialized", actx.ReplaceHome(actx.ConfigFile))
		} else {
			actx.Output.Header("Already initialized", actx.ReplaceHome(actx.ConfigFile))
		}
		return nil
	},
}

var addFlags struct {
	git, gist, github, remote, local string
	branch, tag, rev, proto, dir     string
	use, apply, profiles             []string
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new plugin to the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actx, err := newContext(appcontext.LockModeNormal)
		if err != nil {
			return err
		}
		err = config.AddPlugin(actx.ConfigFile, args[0], config.RawPlugin{
			Git:      addFlags.git,
			Gist:     addFlags.gist,
			GitHub:   addFlags.github,
			Remote:   addFlags.remote,
			Local:    addFlags.local,
			Branch:   addFlags.branch,
			Tag:      addFlags.tag,
			Rev:      addFlags.rev,
			Proto:    addFlags.proto,
			Dir:      addFlags.dir,
			Use:      addFlags.use,
			Apply:    addFlags.apply,
			Profiles: addFlags.profiles,
		})
		if err != nil {
			return err
		}
		actx.Output.Status("Added", args[0])
		actx.Output.Header("Updated", actx.ReplaceHome(actx.ConfigFile))
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a plugin from the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actx, err := newContext(appcontext.LockModeNormal)
		if err != nil {
			return err
		}
		if err := config.RemovePlugin(actx.ConfigFile, args[0]); err != nil {
			return err
		}
		actx.Output.Status("Removed", args[0])
		actx.Output.Header("Updated", actx.ReplaceHome(actx.ConfigFile))
		return nil
	},
}

var (
	flagUpdate    bool
	flagReinstall bool
	flagRelock    bool
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Install the plugin sources and generate the lock file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		actx, err := newContext(lockMode())
		if err != nil {
			return err
		}
		_, err = relock(cmd.Context(), actx)
		return err
	},
}

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Generate and print out the shell script",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		actx, err := newContext(lockMode())
		if err != nil {
			return err
		}

		var relockErr error
		file := reusableLock(actx)
		if file == nil {
			file, relockErr = relock(cmd.Context(), actx)
			if file == nil {
				return relockErr
			}
		}

		script, err := file.Script(actx)
		if err != nil {
			return err
		}
		// The script for the plugins that did install is still printed;
		// a partial failure is reported through the exit status.
		fmt.Print(script)
		return relockErr
	},
}

func lockMode() appcontext.LockMode {
	switch {
	case flagReinstall:
		return appcontext.LockModeReinstall
	case flagUpdate:
		return appcontext.LockModeUpdate
	default:
		return appcontext.LockModeNormal
	}
}

// reusableLock returns the previous lock document when it can be reused
// verbatim: no relock-forcing flag, the stored config digest matches the
// current configuration, and the lock verifies against the current
// context. An unreadable lock file counts as no previous lock.
func reusableLock(actx *appcontext.Context) *lock.File {
	if flagRelock || actx.LockMode != appcontext.LockModeNormal {
		return nil
	}
	cfg, err := config.Load(actx.ConfigFile)
	if err != nil {
		return nil
	}
	file, err := lock.ReadFile(actx.LockFile)
	if err != nil {
		return nil
	}
	// A document produced by a failed run has no hash and never matches.
	if file.ConfigHash == "" || file.ConfigHash != lock.HashConfig(cfg) {
		return nil
	}
	if !file.Verify(actx) {
		return nil
	}
	actx.Output.StatusVerbose("Unlocked", actx.ReplaceHome(actx.LockFile))
	return file
}

// relock performs a full resolution and persists the result. With partial
// failures the successes are still written and an error is returned; when
// nothing succeeded the previous lock file is left untouched.
func relock(ctx stdcontext.Context, actx *appcontext.Context) (*lock.File, error) {
	if err := os.MkdirAll(actx.DataDir, 0o755); err != nil {
		return nil, err
	}
	mutex, err := fsutil.AcquireMutex(actx.DataDir)
	if err != nil {
		return nil, err
	}
	defer mutex.Release()

	cfg, err := config.Load(actx.ConfigFile)
	if err != nil {
		return nil, err
	}
	actx.Output.Header("Loaded", actx.ReplaceHome(actx.ConfigFile))

	locker := &lock.Locker{Git: gitutil.Git{}, Downloader: &download.Client{}}
	file := locker.Lock(ctx, actx, cfg)

	for _, lockErr := range file.Errors {
		actx.Output.Error(lockErr)
	}

	if len(file.Plugins) == 0 && len(file.Errors) > 0 {
		// Keep whatever lock was there before rather than overwrite it
		// with an empty document.
		return nil, errors.Newf(errors.ErrFetch, "failed to install all %d plugins", len(file.Errors))
	}

	// Clean only runs after a fully successful resolution: a partial
	// document is missing the failed plugins' directories, and cleaning
	// against it would delete their previously installed sources.
	if len(file.Errors) == 0 {
		for _, warning := range file.Clean(actx) {
			actx.Output.Warning(warning.Error())
		}
	}
	if err := file.WriteTo(actx.LockFile); err != nil {
		return file, err
	}
	actx.Output.Header("Locked", actx.ReplaceHome(actx.LockFile))

	if len(file.Errors) > 0 {
		return file, errors.Newf(errors.ErrFetch, "failed to install %d of the configured plugins", len(file.Errors))
	}
	return file, nil
}

func init() {
	initCmd.Flags().StringVar(&initShell, "shell", "", "The shell dialect to initialize for (bash or zsh)")

	addCmd.Flags().StringVar(&addFlags.git, "git", "", "Add a clonable Git repository")
	addCmd.Flags().StringVar(&addFlags.gist, "gist", "", "Add a clonable Gist snippet")
	addCmd.Flags().StringVar(&addFlags.github, "github", "", "Add a GitHub repository (owner/repo)")
	addCmd.Flags().StringVar(&addFlags.remote, "remote", "", "Add a downloadable file")
	addCmd.Flags().StringVar(&addFlags.local, "local", "", "Add a local directory")
	addCmd.Flags().StringVar(&addFlags.branch, "branch", "", "The branch to checkout")
	addCmd.Flags().StringVar(&addFlags.tag, "tag", "", "The tag to checkout")
	addCmd.Flags().StringVar(&addFlags.rev, "rev", "", "The revision to checkout")
	addCmd.Flags().StringVar(&addFlags.proto, "proto", "", "The protocol for Gist/GitHub sources (git, https, or ssh)")
	addCmd.Flags().StringVar(&addFlags.dir, "dir", "", "The sub-directory to use")
	addCmd.Flags().StringSliceVar(&addFlags.use, "use", nil, "File patterns to use")
	addCmd.Flags().StringSliceVar(&addFlags.apply, "apply", nil, "Template names to apply")
	addCmd.Flags().StringSliceVar(&addFlags.profiles, "profiles", nil, "Profiles this plugin is active for")

	for _, cmd := range []*cobra.Command{lockCmd, sourceCmd} {
		cmd.Flags().BoolVar(&flagUpdate, "update", false, "Update all plugin sources")
		cmd.Flags().BoolVar(&flagReinstall, "reinstall", false, "Reinstall all plugin sources")
	}
	sourceCmd.Flags().BoolVar(&flagRelock, "relock", false, "Regenerate the lock file")
}
