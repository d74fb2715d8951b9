package lock

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rossmacarthur/sheldon/pkg/config"
	appcontext "github.com/rossmacarthur/sheldon/pkg/context"
	"github.com/rossmacarthur/sheldon/pkg/errors"
	"github.com/rossmacarthur/sheldon/pkg/template"
)

// patternData is the context available to `use`/`match` patterns and to the
// `dir` override before glob expansion.
type patternData struct {
	Name    string
	Dir     string
	DataDir string
}

// lockPlugin resolves an external plugin against its installed source:
// renders the dir override, matches files, and applies template defaulting.
func lockPlugin(actx *appcontext.Context, installed installedSource, matches, apply []string, plugin config.Plugin) (Plugin, error) {
	effectiveApply := plugin.Apply
	if effectiveApply == nil {
		effectiveApply = apply
	}

	// A remote source is the single downloaded file; there is nothing to
	// match.
	if plugin.Source.Kind == config.KindRemote {
		return Plugin{
			Name:      plugin.Name,
			SourceDir: installed.Dir,
			Files:     []string{installed.File},
			Apply:     effectiveApply,
			Hooks:     plugin.Hooks,
		}, nil
	}

	data := patternData{Name: plugin.Name, DataDir: actx.DataDir}

	sourceDir := installed.Dir
	pluginDir := ""
	if plugin.Dir != "" {
		rendered, err := template.Render(plugin.Name, plugin.Dir, data)
		if err != nil {
			return Plugin{}, err
		}
		pluginDir = filepath.Join(sourceDir, rendered)
	}
	dir := sourceDir
	if pluginDir != "" {
		dir = pluginDir
	}
	data.Dir = dir

	var files []string
	if plugin.Uses != nil {
		// Explicit `use` patterns: union across all patterns, first-seen
		// order, deduplicated.
		patterns := make([]string, 0, len(plugin.Uses))
		for _, use := range plugin.Uses {
			pattern, err := template.Render(plugin.Name, use, data)
			if err != nil {
				return Plugin{}, err
			}
			patterns = append(patterns, pattern)
		}
		files, err := matchPatterns(dir, patterns)
		if err != nil {
			return Plugin{}, err
		}
		if len(files) == 0 {
			return Plugin{}, errors.Newf(errors.ErrMatchNoFiles, "failed to find any files matching any of %q", patterns)
		}
		return Plugin{
			Name:      plugin.Name,
			SourceDir: sourceDir,
			PluginDir: pluginDir,
			Files:     files,
			Apply:     effectiveApply,
			Hooks:     plugin.Hooks,
		}, nil
	}

	// Global `match` patterns: the first pattern with any match wins; later
	// patterns are not consulted. This is deliberately not a union.
	tried := make([]string, 0, len(matches))
	for _, match := range matches {
		pattern, err := template.Render(plugin.Name, match, data)
		if err != nil {
			return Plugin{}, err
		}
		tried = append(tried, pattern)
		matched, err := matchPatterns(dir, []string{pattern})
		if err != nil {
			return Plugin{}, err
		}
		if len(matched) > 0 {
			files = matched
			break
		}
	}
	if len(files) == 0 {
		return Plugin{}, errors.Newf(errors.ErrMatchNoFiles, "failed to find any files matching any of %q", tried)
	}

	return Plugin{
		Name:      plugin.Name,
		SourceDir: sourceDir,
		PluginDir: pluginDir,
		Files:     files,
		Apply:     effectiveApply,
		Hooks:     plugin.Hooks,
	}, nil
}

// matchPatterns expands glob patterns relative to dir and returns matching
// regular files as absolute paths. Results are lexicographic within each
// pattern and deduplicated across patterns, preserving first-seen order.
func matchPatterns(dir string, patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Newf(errors.ErrMatchPattern, "failed to parse glob pattern %q", pattern)
		}
		// Glob over the directory FS; results come back in lexical walk
		// order, which keeps generated scripts reproducible.
		matches, err := doublestar.Glob(os.DirFS(dir), pattern)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrMatchPattern, "failed to match pattern %q", pattern)
		}
		for _, match := range matches {
			abs := filepath.Join(dir, filepath.FromSlash(match))
			info, err := os.Stat(abs)
			if err != nil || info.IsDir() {
				continue
			}
			if !seen[abs] {
				seen[abs] = true
				files = append(files, abs)
			}
		}
	}
	return files, nil
}
