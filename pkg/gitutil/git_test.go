package gitutil_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossmacarthur/sheldon/pkg/config"
	"github.com/rossmacarthur/sheldon/pkg/errors"
	"github.com/rossmacarthur/sheldon/pkg/gitutil"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}

// upstream creates a repository with two commits and a tag on the first.
func upstream(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "--initial-branch", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.zsh"), []byte("# a\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "first")
	runGit(t, dir, "tag", "v0.1.0")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.zsh"), []byte("# b\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "second")
	return dir
}

func TestGit_CloneAndResolve(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	git := gitutil.Git{}

	remote := upstream(t)
	clone := filepath.Join(t.TempDir(), "clone")

	require.NoError(t, git.Clone(ctx, remote, clone))
	assert.True(t, git.IsRepo(clone))
	assert.False(t, git.IsRepo(t.TempDir()))

	head, err := git.Head(ctx, clone)
	require.NoError(t, err)
	require.Len(t, head, 40)

	// A nil reference resolves to the default branch head.
	rev, err := git.Resolve(ctx, clone, nil)
	require.NoError(t, err)
	assert.Equal(t, head, rev)

	branch, err := git.Resolve(ctx, clone, &config.GitReference{Kind: config.Branch, Value: "main"})
	require.NoError(t, err)
	assert.Equal(t, head, branch)

	tag, err := git.Resolve(ctx, clone, &config.GitReference{Kind: config.Tag, Value: "v0.1.0"})
	require.NoError(t, err)
	assert.NotEqual(t, head, tag)

	byRev, err := git.Resolve(ctx, clone, &config.GitReference{Kind: config.Revision, Value: tag})
	require.NoError(t, err)
	assert.Equal(t, tag, byRev)
}

func TestGit_ResolveErrors(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	git := gitutil.Git{}

	remote := upstream(t)
	clone := filepath.Join(t.TempDir(), "clone")
	require.NoError(t, git.Clone(ctx, remote, clone))

	tests := []struct {
		name string
		ref  config.GitReference
		want string
	}{
		{"missing_branch", config.GitReference{Kind: config.Branch, Value: "nope"}, "failed to find branch"},
		{"missing_tag", config.GitReference{Kind: config.Tag, Value: "v9.9.9"}, "failed to find tag"},
		{"missing_rev", config.GitReference{Kind: config.Revision, Value: "0000000"}, "failed to find revision"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := git.Resolve(ctx, clone, &tt.ref)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrGitReference))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGit_CheckoutAndFetch(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	git := gitutil.Git{}

	remote := upstream(t)
	clone := filepath.Join(t.TempDir(), "clone")
	require.NoError(t, git.Clone(ctx, remote, clone))

	tag, err := git.Resolve(ctx, clone, &config.GitReference{Kind: config.Tag, Value: "v0.1.0"})
	require.NoError(t, err)
	require.NoError(t, git.Checkout(ctx, clone, tag))

	head, err := git.Head(ctx, clone)
	require.NoError(t, err)
	assert.Equal(t, tag, head)

	// A new upstream commit is visible after a fetch.
	require.NoError(t, os.WriteFile(filepath.Join(remote, "c.zsh"), []byte("# c\n"), 0o644))
	runGit(t, remote, "add", ".")
	runGit(t, remote, "commit", "-m", "third")
	require.NoError(t, git.Fetch(ctx, clone))

	latest, err := git.Resolve(ctx, clone, &config.GitReference{Kind: config.Branch, Value: "main"})
	require.NoError(t, err)
	assert.NotEqual(t, tag, latest)
}

func TestGit_CloneError(t *testing.T) {
	requireGit(t)
	git := gitutil.Git{}

	err := git.Clone(context.Background(), filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "clone"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrGitClone))
}
