package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rossmacarthur/sheldon/pkg/errors"
	"github.com/rossmacarthur/sheldon/pkg/template"
)

const (
	gistHost   = "gist.github.com"
	githubHost = "github.com"
)

// normalize validates a raw config and converts it into a Config. All
// configuration errors surface here, before any source is fetched.
func normalize(raw *rawConfig, order []string) (*Config, error) {
	shell := Zsh
	if raw.Shell != "" {
		parsed, err := ParseShell(raw.Shell)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigInvalid, "invalid `shell` setting")
		}
		shell = parsed
	}

	templates := make(map[string]Template, len(raw.Templates))
	for name, v := range raw.Templates {
		t, err := coerceTemplate(name, v)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigInvalid, "invalid template")
		}
		if err := template.Validate(name, t.Value); err != nil {
			return nil, err
		}
		templates[name] = t
	}

	cfg := &Config{
		Shell:     shell,
		Matches:   raw.Match,
		Apply:     raw.Apply,
		Templates: templates,
	}

	if err := validateTemplateNames(cfg, raw.Apply); err != nil {
		return nil, err
	}

	for _, name := range order {
		plugin, err := normalizePlugin(name, raw.Plugins[name], cfg)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigInvalid, "failed to normalize plugin %q", name)
		}
		cfg.Plugins = append(cfg.Plugins, plugin)
	}

	return cfg, nil
}

// normalizePlugin validates a single raw plugin. Gist and GitHub shorthands
// are normalized into Git sources here.
func normalizePlugin(name string, raw RawPlugin, cfg *Config) (Plugin, error) {
	if strings.TrimSpace(name) == "" {
		return Plugin{}, fmt.Errorf("plugin name must not be empty")
	}

	reference, err := normalizeReference(raw)
	if err != nil {
		return Plugin{}, err
	}

	var proto GitProtocol
	if raw.Proto != "" {
		proto, err = ParseGitProtocol(raw.Proto)
		if err != nil {
			return Plugin{}, err
		}
	} else {
		proto = ProtocolHTTPS
	}

	source, err := normalizeSource(raw, reference, proto)
	if err != nil {
		return Plugin{}, err
	}

	if source == nil && raw.Inline == "" {
		return Plugin{}, fmt.Errorf("plugin has no source fields")
	}

	if raw.Inline != "" {
		unsupported := []struct {
			field string
			set   bool
		}{
			{"proto", raw.Proto != ""},
			{"branch, tag, and rev", reference != nil},
			{"dir", raw.Dir != ""},
			{"use", raw.Use != nil},
			{"apply", raw.Apply != nil},
		}
		for _, u := range unsupported {
			if u.set {
				return Plugin{}, fmt.Errorf("the `%s` field is not supported by inline plugins", u.field)
			}
		}
		if err := template.Validate(name, raw.Inline); err != nil {
			return Plugin{}, err
		}
		return Plugin{
			Name:     name,
			Inline:   raw.Inline,
			Profiles: raw.Profiles,
			Hooks:    raw.Hooks,
		}, nil
	}

	if reference != nil && !source.IsGit() {
		return Plugin{}, fmt.Errorf("the `branch`, `tag`, and `rev` fields are not supported by this plugin type")
	}
	if raw.Proto != "" && raw.Gist == "" && raw.GitHub == "" {
		return Plugin{}, fmt.Errorf("the `proto` field is not supported by this plugin type")
	}

	if err := validateTemplateNames(cfg, raw.Apply); err != nil {
		return Plugin{}, err
	}
	if raw.Dir != "" {
		if err := template.Validate(name, raw.Dir); err != nil {
			return Plugin{}, err
		}
	}
	for _, pattern := range raw.Use {
		if err := template.Validate(name, pattern); err != nil {
			return Plugin{}, err
		}
	}

	return Plugin{
		Name:     name,
		Source:   source,
		Dir:      raw.Dir,
		Uses:     raw.Use,
		Apply:    raw.Apply,
		Profiles: raw.Profiles,
		Hooks:    raw.Hooks,
	}, nil
}

func normalizeReference(raw RawPlugin) (*GitReference, error) {
	var refs []*GitReference
	if raw.Branch != "" {
		refs = append(refs, &GitReference{Kind: Branch, Value: raw.Branch})
	}
	if raw.Tag != "" {
		refs = append(refs, &GitReference{Kind: Tag, Value: raw.Tag})
	}
	if raw.Rev != "" {
		refs = append(refs, &GitReference{Kind: Revision, Value: raw.Rev})
	}
	switch len(refs) {
	case 0:
		return nil, nil
	case 1:
		return refs[0], nil
	default:
		return nil, fmt.Errorf("the `branch`, `tag`, and `rev` fields are mutually exclusive")
	}
}

func normalizeSource(raw RawPlugin, reference *GitReference, proto GitProtocol) (*Source, error) {
	var sources []*Source

	if raw.Git != "" {
		if err := validateURL(raw.Git); err != nil {
			return nil, fmt.Errorf("invalid `git` URL %q: %w", raw.Git, err)
		}
		sources = append(sources, &Source{Kind: KindGit, URL: raw.Git, Reference: reference})
	}
	if raw.Gist != "" {
		u := proto.Prefix() + gistHost + "/" + raw.Gist
		if err := validateURL(u); err != nil {
			return nil, fmt.Errorf("failed to construct Gist URL using %q: %w", raw.Gist, err)
		}
		sources = append(sources, &Source{Kind: KindGit, URL: u, Reference: reference})
	}
	if raw.GitHub != "" {
		if strings.Count(raw.GitHub, "/") != 1 {
			return nil, fmt.Errorf("failed to parse %q as a GitHub repository, expected `<owner>/<repo>`", raw.GitHub)
		}
		u := proto.Prefix() + githubHost + "/" + raw.GitHub
		if err := validateURL(u); err != nil {
			return nil, fmt.Errorf("failed to construct GitHub URL using %q: %w", raw.GitHub, err)
		}
		sources = append(sources, &Source{Kind: KindGit, URL: u, Reference: reference})
	}
	if raw.Remote != "" {
		if err := validateURL(raw.Remote); err != nil {
			return nil, fmt.Errorf("invalid `remote` URL %q: %w", raw.Remote, err)
		}
		sources = append(sources, &Source{Kind: KindRemote, URL: raw.Remote})
	}
	if raw.Local != "" {
		sources = append(sources, &Source{Kind: KindLocal, Dir: raw.Local})
	}
	if raw.Inline != "" {
		// Counted as a source for the exactly-one check; the caller builds
		// the inline plugin itself.
		sources = append(sources, nil)
	}

	switch len(sources) {
	case 0:
		return nil, nil
	case 1:
		return sources[0], nil
	default:
		return nil, fmt.Errorf("plugin has multiple source fields")
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// validateTemplateNames checks that every name in apply refers to a built-in
// or user-defined template. This runs before any fetching starts.
func validateTemplateNames(cfg *Config, apply []string) error {
	effective := cfg.EffectiveTemplates()
	for _, name := range apply {
		if _, ok := effective[name]; !ok {
			return errors.Newf(errors.ErrTemplateUnknown, "unknown template %q", name)
		}
	}
	return nil
}
