package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossmacarthur/sheldon/pkg/fsutil"
)

func TestTempPath_CommitFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "file.txt")

	temp, err := fsutil.NewTempPath(target)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(target), "~file.txt"), temp.Path())

	require.NoError(t, os.WriteFile(temp.Path(), []byte("content"), 0o644))
	require.NoError(t, temp.Commit(target))
	temp.Discard()

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	_, err = os.Stat(temp.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestTempPath_CommitReplacesDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "dir")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "old"), 0o755))

	temp, err := fsutil.NewTempPath(target)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(temp.Path(), "new"), 0o755))
	require.NoError(t, temp.Commit(target))

	assert.DirExists(t, filepath.Join(target, "new"))
	assert.NoDirExists(t, filepath.Join(target, "old"))
}

func TestTempPath_Discard(t *testing.T) {
	target := filepath.Join(t.TempDir(), "file.txt")

	temp, err := fsutil.NewTempPath(target)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(temp.Path(), []byte("partial"), 0o644))
	temp.Discard()

	_, err = os.Stat(temp.Path())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestTempPath_RemovesStaleTemp(t *testing.T) {
	target := filepath.Join(t.TempDir(), "file.txt")
	stale := filepath.Join(filepath.Dir(target), "~file.txt")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	temp, err := fsutil.NewTempPath(target)
	require.NoError(t, err)
	_, err = os.Stat(temp.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestExpandTilde(t *testing.T) {
	home := "/home/user"
	assert.Equal(t, "/home/user", fsutil.ExpandTilde(home, "~"))
	assert.Equal(t, filepath.Join(home, "dotfiles"), fsutil.ExpandTilde(home, "~/dotfiles"))
	assert.Equal(t, "/etc/zsh", fsutil.ExpandTilde(home, "/etc/zsh"))
	assert.Equal(t, "~user/thing", fsutil.ExpandTilde(home, "~user/thing"))
}

func TestReplaceHome(t *testing.T) {
	home := "/home/user"
	assert.Equal(t, "~", fsutil.ReplaceHome(home, "/home/user"))
	assert.Equal(t, filepath.Join("~", "dotfiles"), fsutil.ReplaceHome(home, "/home/user/dotfiles"))
	assert.Equal(t, "/etc/zsh", fsutil.ReplaceHome(home, "/etc/zsh"))
	assert.Equal(t, "/home/userx", fsutil.ReplaceHome(home, "/home/userx"))
}

func TestMutex(t *testing.T) {
	dir := t.TempDir()

	mutex, err := fsutil.AcquireMutex(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, ".sheldon.lock"))
	mutex.Release()

	// Reacquirable after release, and Release is nil-safe.
	mutex, err = fsutil.AcquireMutex(dir)
	require.NoError(t, err)
	mutex.Release()
	(*fsutil.Mutex)(nil).Release()
}
