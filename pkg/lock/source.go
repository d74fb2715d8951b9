package lock

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rossmacarthur/sheldon/pkg/config"
	appcontext "github.com/rossmacarthur/sheldon/pkg/context"
	"github.com/rossmacarthur/sheldon/pkg/errors"
	"github.com/rossmacarthur/sheldon/pkg/fsutil"
)

// GitClient is the git transport capability the resolver consumes.
type GitClient interface {
	IsRepo(dir string) bool
	Clone(ctx context.Context, url, dir string) error
	Fetch(ctx context.Context, dir string) error
	Checkout(ctx context.Context, dir, revision string) error
	SubmoduleUpdate(ctx context.Context, dir string) error
	Head(ctx context.Context, dir string) (string, error)
	Resolve(ctx context.Context, dir string, reference *config.GitReference) (string, error)
}

// Downloader is the HTTP transport capability the resolver consumes.
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer) error
}

// installedSource is the on-disk result of installing one source.
type installedSource struct {
	// Dir is the clone or download directory.
	Dir string
	// File is the downloaded file, set only for remote sources.
	File string
}

// installSource ensures the source is present on disk at the state the
// configuration asks for, honoring the context's lock mode.
func (l *Locker) installSource(ctx context.Context, actx *appcontext.Context, src config.Source) (installedSource, error) {
	switch src.Kind {
	case config.KindGit:
		return l.installGit(ctx, actx, src)
	case config.KindRemote:
		return l.installRemote(ctx, actx, src)
	default:
		return installLocal(actx, src)
	}
}

// installGit clones or reconciles a git source.
//
// Normal mode performs only cheap local checks when the clone already
// exists, falling back to a fetch when the wanted reference is unknown
// locally. Update mode always fetches. Reinstall wipes and re-clones.
func (l *Locker) installGit(ctx context.Context, actx *appcontext.Context, src config.Source) (installedSource, error) {
	dir, err := gitDir(actx.CloneDir, src.URL)
	if err != nil {
		return installedSource{}, err
	}

	if actx.LockMode != appcontext.LockModeReinstall && l.Git.IsRepo(dir) {
		switch actx.LockMode {
		case appcontext.LockModeNormal:
			if err := l.checkoutReference(ctx, actx, dir, src, false); err != nil {
				// The reference may exist upstream but not locally yet.
				if err := l.Git.Fetch(ctx, dir); err != nil {
					return installedSource{}, err
				}
				if err := l.checkoutReference(ctx, actx, dir, src, true); err != nil {
					return installedSource{}, err
				}
			}
		case appcontext.LockModeUpdate:
			if err := l.Git.Fetch(ctx, dir); err != nil {
				return installedSource{}, err
			}
			if err := l.checkoutReference(ctx, actx, dir, src, true); err != nil {
				return installedSource{}, err
			}
		}
		return installedSource{Dir: dir}, nil
	}

	temp, err := fsutil.NewTempPath(dir)
	if err != nil {
		return installedSource{}, err
	}
	defer temp.Discard()

	if err := l.Git.Clone(ctx, src.URL, temp.Path()); err != nil {
		return installedSource{}, err
	}
	revision, err := l.Git.Resolve(ctx, temp.Path(), src.Reference)
	if err != nil {
		return installedSource{}, err
	}
	if err := l.Git.Checkout(ctx, temp.Path(), revision); err != nil {
		return installedSource{}, err
	}
	if err := l.Git.SubmoduleUpdate(ctx, temp.Path()); err != nil {
		return installedSource{}, err
	}
	if err := temp.Commit(dir); err != nil {
		return installedSource{}, errors.Wrapf(err, errors.ErrGitClone, "failed to install clone into %q", dir)
	}
	actx.Output.Status("Cloned", src.String())
	return installedSource{Dir: dir}, nil
}

// checkoutReference moves an existing clone to the wanted reference. With
// report set, a move is logged as "Updated" rather than "Checked".
func (l *Locker) checkoutReference(ctx context.Context, actx *appcontext.Context, dir string, src config.Source, report bool) error {
	expected, err := l.Git.Resolve(ctx, dir, src.Reference)
	if err != nil {
		return err
	}
	current, err := l.Git.Head(ctx, dir)
	if err != nil {
		return err
	}
	if current == expected {
		actx.Output.Status("Checked", src.String())
		return nil
	}
	if err := l.Git.Checkout(ctx, dir, expected); err != nil {
		return err
	}
	if err := l.Git.SubmoduleUpdate(ctx, dir); err != nil {
		return err
	}
	if report {
		actx.Output.Status("Updated", src.String())
	} else {
		actx.Output.Status("Checked", src.String())
	}
	return nil
}

// installRemote downloads a remote file, skipping the download in normal
// mode when the file is already present.
func (l *Locker) installRemote(ctx context.Context, actx *appcontext.Context, src config.Source) (installedSource, error) {
	dir, file, err := remoteTarget(actx.DownloadDir, src.URL)
	if err != nil {
		return installedSource{}, err
	}

	if actx.LockMode == appcontext.LockModeNormal {
		if _, err := os.Stat(file); err == nil {
			actx.Output.Status("Checked", src.URL)
			return installedSource{Dir: dir, File: file}, nil
		}
	}

	temp, err := fsutil.NewTempPath(file)
	if err != nil {
		return installedSource{}, err
	}
	defer temp.Discard()

	handle, err := os.Create(temp.Path())
	if err != nil {
		return installedSource{}, errors.Wrapf(err, errors.ErrDownload, "failed to create %q", temp.Path())
	}
	if err := l.Downloader.Download(ctx, src.URL, handle); err != nil {
		_ = handle.Close()
		return installedSource{}, err
	}
	if err := handle.Close(); err != nil {
		return installedSource{}, errors.Wrapf(err, errors.ErrDownload, "failed to write %q", temp.Path())
	}
	if err := temp.Commit(file); err != nil {
		return installedSource{}, errors.Wrapf(err, errors.ErrDownload, "failed to install download into %q", file)
	}
	actx.Output.Status("Fetched", src.URL)
	return installedSource{Dir: dir, File: file}, nil
}

// installLocal verifies that a local source directory exists. A path
// containing glob metacharacters must resolve to exactly one directory.
func installLocal(actx *appcontext.Context, src config.Source) (installedSource, error) {
	dir := actx.ExpandTilde(src.Dir)

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		actx.Output.Status("Checked", dir)
		return installedSource{Dir: dir}, nil
	}

	matches, err := doublestar.FilepathGlob(dir)
	if err != nil {
		return installedSource{}, errors.Newf(errors.ErrLocalSource, "%q is not a dir", dir)
	}
	var dirs []string
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && info.IsDir() {
			dirs = append(dirs, match)
		}
	}
	if len(dirs) != 1 {
		return installedSource{}, errors.Newf(errors.ErrLocalSource, "%q matches %d directories", dir, len(dirs))
	}
	actx.Output.Status("Checked", dirs[0])
	return installedSource{Dir: dirs[0]}, nil
}

// gitDir derives the clone directory for a git URL: <clone_dir>/<host>/<path>.
func gitDir(cloneDir, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", errors.Newf(errors.ErrInvalidInput, "URL %q has no host", raw)
	}
	return filepath.Join(cloneDir, u.Host, strings.TrimPrefix(u.Path, "/")), nil
}

// remoteTarget derives the download directory and file name for a remote
// URL: <download_dir>/<host>/<path dirs>/<base>, with "index" standing in
// for an empty final segment.
func remoteTarget(downloadDir, raw string) (dir, file string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", errors.Newf(errors.ErrInvalidInput, "URL %q has no host", raw)
	}
	path := strings.TrimPrefix(u.Path, "/")
	base := filepath.Base(path)
	if base == "." || base == "/" || base == "" {
		base = "index"
	}
	rest := filepath.Dir(path)
	if rest == "." {
		rest = ""
	}
	dir = filepath.Join(downloadDir, u.Host, rest)
	return dir, filepath.Join(dir, base), nil
}
