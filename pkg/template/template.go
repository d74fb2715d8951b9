// Package template renders sheldon's shell-script templates. Templates use
// Go text/template syntax. Referencing an undefined context variable is a
// render error; looking up an absent hook name yields an empty string so
// that the built-in templates work for plugins without hooks.
package template

import (
	"strings"
	texttemplate "text/template"

	"github.com/rossmacarthur/sheldon/pkg/errors"
)

// Validate checks that the template body parses.
func Validate(name, text string) error {
	if _, err := parse(name, text); err != nil {
		return errors.Wrapf(err, errors.ErrTemplateCompile, "failed to compile template %q", name)
	}
	return nil
}

// Render parses and executes the template body with the given data.
func Render(name, text string, data interface{}) (string, error) {
	t, err := parse(name, text)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTemplateCompile, "failed to compile template %q", name)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", errors.Wrapf(err, errors.ErrTemplateRender, "failed to render template %q", name)
	}
	return sb.String(), nil
}

func parse(name, text string) (*texttemplate.Template, error) {
	return texttemplate.New(name).Parse(text)
}
