package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossmacarthur/sheldon/pkg/config"
	"github.com/rossmacarthur/sheldon/pkg/errors"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte(``))
	require.NoError(t, err)

	assert.Equal(t, config.Zsh, cfg.Shell)
	assert.Nil(t, cfg.Matches)
	assert.Nil(t, cfg.Apply)
	assert.Empty(t, cfg.Plugins)
	assert.Equal(t, []string{"source"}, cfg.EffectiveApply())
	assert.Equal(t, config.Zsh.DefaultMatches(), cfg.EffectiveMatches())
}

func TestParse_Shell(t *testing.T) {
	cfg, err := config.Parse([]byte(`shell = "bash"`))
	require.NoError(t, err)
	assert.Equal(t, config.Bash, cfg.Shell)

	_, err = config.Parse([]byte(`shell = "fish"`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfigInvalid))
}

func TestParse_Sources(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want config.Source
	}{
		{
			name: "git_url",
			toml: `[plugins.test]
git = "https://example.com/owner/repo"`,
			want: config.Source{Kind: config.KindGit, URL: "https://example.com/owner/repo"},
		},
		{
			name: "github_default_proto",
			toml: `[plugins.test]
github = "owner/repo"`,
			want: config.Source{Kind: config.KindGit, URL: "https://github.com/owner/repo"},
		},
		{
			name: "github_ssh_proto",
			toml: `[plugins.test]
github = "owner/repo"
proto = "ssh"`,
			want: config.Source{Kind: config.KindGit, URL: "ssh://git@github.com/owner/repo"},
		},
		{
			name: "gist_git_proto",
			toml: `[plugins.test]
gist = "579d02802b1cc17baed07753d09f5009"
proto = "git"`,
			want: config.Source{Kind: config.KindGit, URL: "git://gist.github.com/579d02802b1cc17baed07753d09f5009"},
		},
		{
			name: "remote",
			toml: `[plugins.test]
remote = "https://example.com/plugin.zsh"`,
			want: config.Source{Kind: config.KindRemote, URL: "https://example.com/plugin.zsh"},
		},
		{
			name: "local",
			toml: `[plugins.test]
local = "~/dotfiles/zsh"`,
			want: config.Source{Kind: config.KindLocal, Dir: "~/dotfiles/zsh"},
		},
		{
			name: "git_with_tag",
			toml: `[plugins.test]
git = "https://example.com/owner/repo"
tag = "v1.2.3"`,
			want: config.Source{
				Kind:      config.KindGit,
				URL:       "https://example.com/owner/repo",
				Reference: &config.GitReference{Kind: config.Tag, Value: "v1.2.3"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Parse([]byte(tt.toml))
			require.NoError(t, err)
			require.Len(t, cfg.Plugins, 1)
			require.NotNil(t, cfg.Plugins[0].Source)
			assert.Equal(t, tt.want, *cfg.Plugins[0].Source)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{
			name: "no_source",
			toml: `[plugins.test]
use = ["*.zsh"]`,
		},
		{
			name: "multiple_sources",
			toml: `[plugins.test]
github = "owner/repo"
remote = "https://example.com/plugin.zsh"`,
		},
		{
			name: "branch_and_tag",
			toml: `[plugins.test]
github = "owner/repo"
branch = "main"
tag = "v1.0.0"`,
		},
		{
			name: "reference_on_remote",
			toml: `[plugins.test]
remote = "https://example.com/plugin.zsh"
tag = "v1.0.0"`,
		},
		{
			name: "proto_on_git_url",
			toml: `[plugins.test]
git = "https://example.com/owner/repo"
proto = "ssh"`,
		},
		{
			name: "bad_proto",
			toml: `[plugins.test]
github = "owner/repo"
proto = "ftp"`,
		},
		{
			name: "bad_github_shape",
			toml: `[plugins.test]
github = "owner/repo/extra"`,
		},
		{
			name: "git_url_without_host",
			toml: `[plugins.test]
git = "not-a-url"`,
		},
		{
			name: "inline_with_use",
			toml: `[plugins.test]
inline = "alias l='ls'"
use = ["*.zsh"]`,
		},
		{
			name: "inline_with_branch",
			toml: `[plugins.test]
inline = "alias l='ls'"
branch = "main"`,
		},
		{
			name: "unknown_apply_template",
			toml: `[plugins.test]
github = "owner/repo"
apply = ["nope"]`,
		},
		{
			name: "unknown_global_apply_template",
			toml: `apply = ["nope"]`,
		},
		{
			name: "bad_use_template",
			toml: `[plugins.test]
github = "owner/repo"
use = ["{{ .Name"]`,
		},
		{
			name: "bad_inline_template",
			toml: `[plugins.test]
inline = "{{ .Name"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.toml))
			assert.Error(t, err)
		})
	}
}

func TestParse_PluginOrder(t *testing.T) {
	cfg, err := config.Parse([]byte(`
[plugins.zulu]
github = "owner/zulu"

[plugins.alpha]
github = "owner/alpha"

[plugins."dotted.name"]
github = "owner/dotted"

[plugins.mike]
github = "owner/mike"
`))
	require.NoError(t, err)

	var names []string
	for _, p := range cfg.Plugins {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"zulu", "alpha", "dotted.name", "mike"}, names)
}

func TestParse_Templates(t *testing.T) {
	cfg, err := config.Parse([]byte(`
[templates]
short = "source {{ .File }}"
long = { value = "fpath+=( {{ .Dir }} )", each = true }
`))
	require.NoError(t, err)

	assert.Equal(t, config.Template{Value: "source {{ .File }}"}, cfg.Templates["short"])
	assert.Equal(t, config.Template{Value: "fpath+=( {{ .Dir }} )", Each: true}, cfg.Templates["long"])

	// A user template overrides a built-in of the same name.
	cfg, err = config.Parse([]byte(`
[templates]
source = "custom {{ .File }}"
`))
	require.NoError(t, err)
	effective := cfg.EffectiveTemplates()
	assert.Equal(t, "custom {{ .File }}", effective["source"].Value)
	assert.NotEmpty(t, effective["PATH"].Value)

	_, err = config.Parse([]byte(`
[templates]
bad = "{{ .Name"
`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTemplateCompile))
}

func TestParse_Hooks(t *testing.T) {
	cfg, err := config.Parse([]byte(`
[plugins.test]
github = "owner/repo"

[plugins.test.hooks]
pre = "setopt extended_glob"
post = "unsetopt extended_glob"
`))
	require.NoError(t, err)
	require.Len(t, cfg.Plugins, 1)
	assert.Equal(t, map[string]string{
		"pre":  "setopt extended_glob",
		"post": "unsetopt extended_glob",
	}, cfg.Plugins[0].Hooks)
}

func TestPlugin_MatchesProfile(t *testing.T) {
	always := config.Plugin{Name: "a"}
	assert.True(t, always.MatchesProfile(""))
	assert.True(t, always.MatchesProfile("work"))

	scoped := config.Plugin{Name: "b", Profiles: []string{"work", "home"}}
	assert.False(t, scoped.MatchesProfile(""))
	assert.False(t, scoped.MatchesProfile("laptop"))
	assert.True(t, scoped.MatchesProfile("home"))
}

func TestSource_Key(t *testing.T) {
	a := config.Source{Kind: config.KindGit, URL: "https://github.com/owner/repo"}
	b := config.Source{Kind: config.KindGit, URL: "https://github.com/owner/repo"}
	assert.Equal(t, a.Key(), b.Key())

	c := config.Source{
		Kind:      config.KindGit,
		URL:       "https://github.com/owner/repo",
		Reference: &config.GitReference{Kind: config.Branch, Value: "main"},
	}
	assert.NotEqual(t, a.Key(), c.Key())

	d := config.Source{Kind: config.KindRemote, URL: "https://github.com/owner/repo"}
	assert.NotEqual(t, a.Key(), d.Key())
}

func TestShell_DefaultMatches(t *testing.T) {
	assert.Contains(t, config.Zsh.DefaultMatches(), "{{ .Name }}.plugin.zsh")
	assert.Contains(t, config.Zsh.DefaultMatches(), "*.zsh-theme")
	assert.Contains(t, config.Bash.DefaultMatches(), "{{ .Name }}.plugin.bash")
	assert.NotContains(t, config.Bash.DefaultMatches(), "*.zsh")
}

func TestShell_DefaultTemplates(t *testing.T) {
	zsh := config.Zsh.DefaultTemplates()
	assert.Contains(t, zsh, "source")
	assert.Contains(t, zsh, "PATH")
	assert.Contains(t, zsh, "fpath")
	assert.True(t, zsh["source"].Each)

	bash := config.Bash.DefaultTemplates()
	assert.NotContains(t, bash, "fpath")
	assert.NotContains(t, bash, "path")
}
