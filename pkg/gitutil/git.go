// Package gitutil wraps the git command line. Authentication relies on the
// ambient environment (SSH agent, credential helpers); interactive prompts
// are disabled so a missing credential fails instead of hanging.
package gitutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rossmacarthur/sheldon/pkg/config"
	"github.com/rossmacarthur/sheldon/pkg/errors"
	"github.com/rossmacarthur/sheldon/pkg/logging"
)

// Git runs git subcommands against local repositories.
type Git struct{}

// IsRepo reports whether dir looks like a git work tree.
func (Git) IsRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// Clone clones url into dir.
func (g Git) Clone(ctx context.Context, url, dir string) error {
	if _, err := g.run(ctx, "", "clone", url, dir); err != nil {
		return errors.Wrapf(err, errors.ErrGitClone, "failed to clone %q", url)
	}
	return nil
}

// Fetch fetches the latest refs and tags from origin.
func (g Git) Fetch(ctx context.Context, dir string) error {
	if _, err := g.run(ctx, dir, "fetch", "--tags", "origin"); err != nil {
		return errors.Wrapf(err, errors.ErrFetch, "failed to fetch %q", dir)
	}
	return nil
}

// Checkout checks out the given revision, detaching HEAD.
func (g Git) Checkout(ctx context.Context, dir, revision string) error {
	if _, err := g.run(ctx, dir, "checkout", "--detach", revision); err != nil {
		return errors.Wrapf(err, errors.ErrGitCheckout, "failed to checkout %q", revision)
	}
	return nil
}

// SubmoduleUpdate recursively initializes and updates submodules.
func (g Git) SubmoduleUpdate(ctx context.Context, dir string) error {
	if _, err := g.run(ctx, dir, "submodule", "update", "--init", "--recursive"); err != nil {
		return errors.Wrap(err, errors.ErrGitCheckout, "failed to recursively update submodules")
	}
	return nil
}

// Head returns the commit the repository currently has checked out.
func (g Git) Head(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrGitReference, "failed to resolve HEAD")
	}
	return out, nil
}

// Resolve resolves a git reference to a commit. A nil reference resolves the
// remote default branch, falling back to the local HEAD.
func (g Git) Resolve(ctx context.Context, dir string, reference *config.GitReference) (string, error) {
	if reference == nil {
		if out, err := g.run(ctx, dir, "rev-parse", "refs/remotes/origin/HEAD"); err == nil {
			return out, nil
		}
		return g.Head(ctx, dir)
	}
	switch reference.Kind {
	case config.Branch:
		out, err := g.run(ctx, dir, "rev-parse", "refs/remotes/origin/"+reference.Value)
		if err != nil {
			return "", errors.Newf(errors.ErrGitReference, "failed to find branch %q", reference.Value)
		}
		return out, nil
	case config.Tag:
		out, err := g.run(ctx, dir, "rev-parse", "refs/tags/"+reference.Value+"^{commit}")
		if err != nil {
			return "", errors.Newf(errors.ErrGitReference, "failed to find tag %q", reference.Value)
		}
		return out, nil
	default:
		out, err := g.run(ctx, dir, "rev-parse", "--verify", reference.Value+"^{commit}")
		if err != nil {
			return "", errors.Newf(errors.ErrGitReference, "failed to find revision %q", reference.Value)
		}
		return out, nil
	}
}

func (Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	logger := logging.Logger("gitutil")

	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	logger.Trace().Strs("args", args).Msg("Running git")
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			return "", err
		}
		return "", fmt.Errorf("%s: %w", detail, err)
	}
	return strings.TrimSpace(string(out)), nil
}
