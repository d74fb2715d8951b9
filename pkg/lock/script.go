package lock

import (
	"strings"

	appcontext "github.com/rossmacarthur/sheldon/pkg/context"
	"github.com/rossmacarthur/sheldon/pkg/errors"
	"github.com/rossmacarthur/sheldon/pkg/template"
)

// renderData is the context exposed to templates when rendering the final
// script. File is only set while rendering an `each` template.
type renderData struct {
	Name    string
	Dir     string
	File    string
	Files   []string
	Hooks   map[string]string
	DataDir string
}

// Script renders the shell script for the whole lock document: each plugin
// in order, each applied template in order, `each` templates once per file.
// Every rendered fragment is newline terminated.
func (f *File) Script(actx *appcontext.Context) (string, error) {
	var sb strings.Builder

	for i := range f.Plugins {
		plugin := &f.Plugins[i]

		if plugin.IsInline() {
			out, err := template.Render(plugin.Name, plugin.Inline, renderData{
				Name:    plugin.Name,
				Hooks:   hooksOf(plugin),
				DataDir: f.DataDir,
			})
			if err != nil {
				return "", errors.Wrapf(err, errors.ErrTemplateRender, "failed to render inline plugin %q", plugin.Name)
			}
			writeFragment(&sb, out)
			actx.Output.StatusVerbose("Inlined", plugin.Name)
			continue
		}

		data := renderData{
			Name:    plugin.Name,
			Dir:     plugin.Dir(),
			Files:   plugin.Files,
			Hooks:   hooksOf(plugin),
			DataDir: f.DataDir,
		}

		for _, name := range plugin.Apply {
			tmpl, ok := f.Templates[name]
			if !ok {
				return "", errors.Newf(errors.ErrTemplateUnknown, "unknown template %q", name)
			}
			if tmpl.Each {
				for _, file := range plugin.Files {
					each := data
					each.File = file
					out, err := template.Render(name, tmpl.Value, each)
					if err != nil {
						return "", err
					}
					writeFragment(&sb, out)
				}
			} else {
				out, err := template.Render(name, tmpl.Value, data)
				if err != nil {
					return "", err
				}
				writeFragment(&sb, out)
			}
		}
		actx.Output.StatusVerbose("Rendered", plugin.Name)
	}

	return sb.String(), nil
}

func writeFragment(sb *strings.Builder, out string) {
	sb.WriteString(out)
	if !strings.HasSuffix(out, "\n") {
		sb.WriteByte('\n')
	}
}

// hooksOf never returns nil so hook lookups in templates are total.
func hooksOf(p *Plugin) map[string]string {
	if p.Hooks == nil {
		return map[string]string{}
	}
	return p.Hooks
}
