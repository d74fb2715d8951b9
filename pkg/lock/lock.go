// Package lock implements sheldon's lock resolution engine: it installs
// every configured plugin source (in parallel, bounded), matches files
// inside each source, and produces the lock document the `source` command
// renders from.
package lock

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rossmacarthur/sheldon/pkg/config"
	appcontext "github.com/rossmacarthur/sheldon/pkg/context"
	"github.com/rossmacarthur/sheldon/pkg/errors"
	"github.com/rossmacarthur/sheldon/pkg/logging"
)

// Locker resolves configurations into lock documents. The transports are
// capability interfaces so tests can substitute fakes.
type Locker struct {
	Git        GitClient
	Downloader Downloader
	// Limit bounds the number of concurrent source installs. Zero means
	// GOMAXPROCS.
	Limit int
}

// sourceJob is one unit of parallel work: a deduplicated source and every
// plugin (with its declaration index) that references it.
type sourceJob struct {
	source  config.Source
	plugins []indexedPlugin
}

type indexedPlugin struct {
	index  int
	plugin config.Plugin
}

// Lock resolves the configuration into a lock document.
//
// Plugins are filtered by the active profile, identical source descriptors
// are installed once and shared, and source installs run concurrently. One
// plugin's failure never aborts its siblings: failures are recorded in the
// returned document's Errors and the plugin is excluded from Plugins. The
// document's plugin order is always configuration declaration order.
func (l *Locker) Lock(ctx context.Context, actx *appcontext.Context, cfg *config.Config) *File {
	logger := logging.Logger("lock")

	templates := cfg.EffectiveTemplates()
	matches := cfg.EffectiveMatches()
	apply := cfg.EffectiveApply()

	results := make([]*Plugin, len(cfg.Plugins))
	var mu sync.Mutex
	var errs []error
	fail := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, errors.Wrapf(err, errors.CodeOf(err), "failed to install plugin %q", name).WithDetail("plugin", name))
	}

	// Group external plugins by canonical source identity so a descriptor
	// shared by several plugins is installed exactly once. Inline plugins
	// need no install and are resolved directly.
	var jobs []*sourceJob
	jobIndex := make(map[string]*sourceJob)
	for i, plugin := range cfg.Plugins {
		if !plugin.MatchesProfile(actx.Profile) {
			logger.Debug().Str("plugin", plugin.Name).Str("profile", actx.Profile).Msg("Skipped by profile")
			continue
		}
		if plugin.IsInline() {
			results[i] = &Plugin{
				Name:   plugin.Name,
				Inline: plugin.Inline,
				Hooks:  plugin.Hooks,
			}
			continue
		}
		key := plugin.Source.Key()
		job, ok := jobIndex[key]
		if !ok {
			job = &sourceJob{source: *plugin.Source}
			jobIndex[key] = job
			jobs = append(jobs, job)
		}
		job.plugins = append(job.plugins, indexedPlugin{index: i, plugin: plugin})
	}

	limit := l.Limit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var group errgroup.Group
	group.SetLimit(limit)
	for _, job := range jobs {
		job := job
		group.Go(func() error {
			installed, err := l.installSource(ctx, actx, job.source)
			if err != nil {
				// The error is attributed to every plugin that wanted
				// this source.
				for _, ip := range job.plugins {
					fail(ip.plugin.Name, err)
				}
				return nil
			}
			// Matching and rendering checks are local and fast; they run
			// on the worker that finished the fetch.
			for _, ip := range job.plugins {
				locked, err := lockPlugin(actx, installed, matches, apply, ip.plugin)
				if err != nil {
					fail(ip.plugin.Name, err)
					continue
				}
				mu.Lock()
				results[ip.index] = &locked
				mu.Unlock()
			}
			return nil
		})
	}
	// Workers record failures instead of returning them.
	_ = group.Wait()

	file := &File{
		Version:    actx.Version,
		Home:       actx.Home,
		ConfigDir:  actx.ConfigDir,
		DataDir:    actx.DataDir,
		ConfigFile: actx.ConfigFile,
		Profile:    actx.Profile,
		Plugins:    make([]Plugin, 0, len(results)),
		Templates:  templates,
		Errors:     errs,
	}
	for _, locked := range results {
		if locked != nil {
			file.Plugins = append(file.Plugins, *locked)
		}
	}
	// A partial document carries no config hash, so the source fast path
	// never reuses it and the failed plugins are retried next run.
	if len(errs) == 0 {
		file.ConfigHash = HashConfig(cfg)
	}
	return file
}
