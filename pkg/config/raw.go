package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/rossmacarthur/sheldon/pkg/errors"
)

// rawConfig mirrors the TOML schema of the config file before validation.
type rawConfig struct {
	Shell     string                 `toml:"shell"`
	Match     []string               `toml:"match"`
	Apply     []string               `toml:"apply,omitempty"`
	Templates map[string]interface{} `toml:"templates"`
	Plugins   map[string]RawPlugin   `toml:"plugins"`
}

// RawPlugin mirrors a single [plugins.<name>] table.
type RawPlugin struct {
	Git      string            `toml:"git,omitempty"`
	Gist     string            `toml:"gist,omitempty"`
	GitHub   string            `toml:"github,omitempty"`
	Remote   string            `toml:"remote,omitempty"`
	Local    string            `toml:"local,omitempty"`
	Inline   string            `toml:"inline,omitempty"`
	Proto    string            `toml:"proto,omitempty"`
	Branch   string            `toml:"branch,omitempty"`
	Tag      string            `toml:"tag,omitempty"`
	Rev      string            `toml:"rev,omitempty"`
	Dir      string            `toml:"dir,omitempty"`
	Use      []string          `toml:"use,omitempty"`
	Apply    []string          `toml:"apply,omitempty"`
	Profiles []string          `toml:"profiles,omitempty"`
	Hooks    map[string]string `toml:"hooks,omitempty"`
}

// Load reads and normalizes the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read config from %q", path)
	}
	return Parse(data)
}

// Parse decodes and normalizes a TOML config document.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to parse config")
	}
	return normalize(&raw, pluginOrder(data, raw.Plugins))
}

// tableHeader matches a [plugins.<name>] table header, with or without a
// quoted name. Nested tables like [plugins.<name>.hooks] do not match.
var tableHeader = regexp.MustCompile(`(?m)^\s*\[plugins\.(?:"([^"]+)"|([^\]".\s]+))\]`)

// pluginOrder recovers the declaration order of the plugin tables from the
// raw document, since TOML decoding into a map loses it. Plugin ordering is
// load-bearing: the lock file and the generated script must follow it.
func pluginOrder(data []byte, plugins map[string]RawPlugin) []string {
	order := make([]string, 0, len(plugins))
	seen := make(map[string]bool, len(plugins))
	for _, m := range tableHeader.FindAllSubmatch(data, -1) {
		name := string(m[1])
		if name == "" {
			name = string(m[2])
		}
		if _, ok := plugins[name]; ok && !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}
	// Any names not found in the text (e.g. dotted-key declarations) are
	// appended in sorted order so nothing is dropped.
	var rest []string
	for name := range plugins {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// coerceTemplate accepts the two forms a template may take in TOML: a bare
// string, or a { value = "...", each = true } table.
func coerceTemplate(name string, v interface{}) (Template, error) {
	switch t := v.(type) {
	case string:
		return Template{Value: t}, nil
	case map[string]interface{}:
		var template Template
		value, ok := t["value"].(string)
		if !ok {
			return Template{}, fmt.Errorf("template %q is missing a string `value` field", name)
		}
		template.Value = value
		if each, ok := t["each"]; ok {
			b, ok := each.(bool)
			if !ok {
				return Template{}, fmt.Errorf("template %q has a non-boolean `each` field", name)
			}
			template.Each = b
		}
		return template, nil
	default:
		return Template{}, fmt.Errorf("template %q must be a string or a table", name)
	}
}
