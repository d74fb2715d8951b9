// Package config defines sheldon's configuration model: the TOML schema the
// user writes, and the normalized form the lock resolver consumes.
package config

import (
	"fmt"
	"strings"
)

// Shell is the shell dialect the generated script targets. It selects the
// built-in template set and the default match patterns.
type Shell string

const (
	Bash Shell = "bash"
	Zsh  Shell = "zsh"
)

// ParseShell validates a shell name from the config file.
func ParseShell(s string) (Shell, error) {
	switch Shell(strings.ToLower(s)) {
	case Bash:
		return Bash, nil
	case Zsh:
		return Zsh, nil
	default:
		return "", fmt.Errorf("unknown shell %q, expected one of: bash, zsh", s)
	}
}

// GitReferenceKind discriminates the kinds of Git reference.
type GitReferenceKind string

const (
	Branch   GitReferenceKind = "branch"
	Revision GitReferenceKind = "rev"
	Tag      GitReferenceKind = "tag"
)

// GitReference identifies what to check out after cloning a Git source.
type GitReference struct {
	Kind  GitReferenceKind
	Value string
}

func (r GitReference) String() string {
	return "@" + r.Value
}

// GitProtocol selects the URL scheme used for gist and github shorthands.
type GitProtocol string

const (
	ProtocolGit   GitProtocol = "git"
	ProtocolHTTPS GitProtocol = "https"
	ProtocolSSH   GitProtocol = "ssh"
)

// Prefix returns the URL prefix for this protocol.
func (p GitProtocol) Prefix() string {
	switch p {
	case ProtocolGit:
		return "git://"
	case ProtocolSSH:
		return "ssh://git@"
	default:
		return "https://"
	}
}

// ParseGitProtocol validates a protocol name from the config file.
func ParseGitProtocol(s string) (GitProtocol, error) {
	switch GitProtocol(strings.ToLower(s)) {
	case ProtocolGit:
		return ProtocolGit, nil
	case ProtocolHTTPS:
		return ProtocolHTTPS, nil
	case ProtocolSSH:
		return ProtocolSSH, nil
	default:
		return "", fmt.Errorf("unknown protocol %q, expected one of: git, https, ssh", s)
	}
}

// SourceKind discriminates normalized source kinds. Gist and GitHub
// shorthands are normalized to KindGit during config loading.
type SourceKind string

const (
	KindGit    SourceKind = "git"
	KindRemote SourceKind = "remote"
	KindLocal  SourceKind = "local"
)

// Source is the normalized origin of an external plugin.
type Source struct {
	Kind SourceKind
	// URL is set for git and remote sources.
	URL string
	// Dir is set for local sources; it may contain a leading tilde.
	Dir string
	// Reference is only set for git sources.
	Reference *GitReference
}

// IsGit reports whether this is a Git-family source.
func (s Source) IsGit() bool {
	return s.Kind == KindGit
}

// Key returns the canonical identity of the source, used to deduplicate
// installs across plugins that share the same descriptor.
func (s Source) Key() string {
	switch s.Kind {
	case KindGit:
		ref := ""
		if s.Reference != nil {
			ref = string(s.Reference.Kind) + "=" + s.Reference.Value
		}
		return "git\x00" + s.URL + "\x00" + ref
	case KindRemote:
		return "remote\x00" + s.URL
	default:
		return "local\x00" + s.Dir
	}
}

func (s Source) String() string {
	switch s.Kind {
	case KindGit:
		if s.Reference != nil {
			return s.URL + s.Reference.String()
		}
		return s.URL
	case KindRemote:
		return s.URL
	default:
		return s.Dir
	}
}

// Template is a named shell-script template.
type Template struct {
	// Value is the template body, in Go text/template syntax.
	Value string `toml:"value"`
	// Each applies the template once per matched file instead of once per
	// plugin.
	Each bool `toml:"each"`
}

// Plugin is a normalized plugin declaration. A plugin is either inline
// (Inline is non-empty, Source is nil) or external (Source is set).
type Plugin struct {
	Name string
	// Inline is the raw script body for inline plugins.
	Inline string
	// Source describes where to fetch an external plugin from.
	Source *Source
	// Dir optionally selects a sub-directory of the source; it is rendered
	// as a template before use.
	Dir string
	// Uses are the explicit file patterns; nil means fall back to the
	// global match list.
	Uses []string
	// Apply are the template names to apply; nil means the global default.
	Apply []string
	// Profiles restricts the plugin to the named profiles; empty means the
	// plugin is always active.
	Profiles []string
	// Hooks maps hook names (e.g. "pre", "post") to shell snippets.
	Hooks map[string]string
}

// IsInline reports whether this plugin is an inline snippet.
func (p *Plugin) IsInline() bool {
	return p.Source == nil
}

// MatchesProfile reports whether the plugin is active for the given profile.
// A plugin with no profiles is always active; a plugin with profiles is
// active only when the invocation profile is one of them.
func (p *Plugin) MatchesProfile(profile string) bool {
	if len(p.Profiles) == 0 {
		return true
	}
	if profile == "" {
		return false
	}
	for _, want := range p.Profiles {
		if want == profile {
			return true
		}
	}
	return false
}

// Config is the fully normalized user configuration.
type Config struct {
	Shell     Shell
	Matches   []string // nil means the shell's default match list
	Apply     []string // nil means DefaultApply
	Templates map[string]Template
	Plugins   []Plugin // declaration order
}

// DefaultApply is the template list applied when neither the config nor the
// plugin specifies one.
func DefaultApply() []string {
	return []string{"source"}
}

// DefaultMatches returns the default file patterns for the shell, tried in
// order with first-match-wins semantics.
func (s Shell) DefaultMatches() []string {
	switch s {
	case Bash:
		return []string{
			"{{ .Name }}.plugin.bash",
			"{{ .Name }}.plugin.sh",
			"{{ .Name }}.bash",
			"{{ .Name }}.sh",
			"*.plugin.bash",
			"*.plugin.sh",
			"*.bash",
			"*.sh",
		}
	default:
		return []string{
			"{{ .Name }}.plugin.zsh",
			"{{ .Name }}.zsh",
			"{{ .Name }}.sh",
			"{{ .Name }}.zsh-theme",
			"*.plugin.zsh",
			"*.zsh",
			"*.sh",
			"*.zsh-theme",
		}
	}
}

// DefaultTemplates returns the built-in template table for the shell. User
// templates of the same name take precedence when merged.
func (s Shell) DefaultTemplates() map[string]Template {
	source := Template{
		Value: `{{ with .Hooks.pre }}{{ . }}
{{ end }}source "{{ .File }}"{{ with .Hooks.post }}
{{ . }}{{ end }}`,
		Each: true,
	}
	templates := map[string]Template{
		"PATH":   {Value: `export PATH="{{ .Dir }}:$PATH"`},
		"source": source,
	}
	if s == Zsh {
		// The path and fpath arrays only exist in zsh.
		templates["path"] = Template{Value: `path=( "{{ .Dir }}" $path )`}
		templates["fpath"] = Template{Value: `fpath=( "{{ .Dir }}" $fpath )`}
	}
	return templates
}

// EffectiveTemplates merges the shell's built-in templates with the user
// defined ones, user templates winning on name collisions.
func (c *Config) EffectiveTemplates() map[string]Template {
	merged := c.Shell.DefaultTemplates()
	for name, template := range c.Templates {
		merged[name] = template
	}
	return merged
}

// EffectiveMatches returns the global match patterns after defaulting.
func (c *Config) EffectiveMatches() []string {
	if c.Matches != nil {
		return c.Matches
	}
	return c.Shell.DefaultMatches()
}

// EffectiveApply returns the global apply list after defaulting.
func (c *Config) EffectiveApply() []string {
	if c.Apply != nil {
		return c.Apply
	}
	return DefaultApply()
}
