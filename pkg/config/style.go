package config

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/AnCIity/importlyrical/pkg/ondemand"
)

// ErrStyleTemplate is returned for style paths that fail to parse or render.
var ErrStyleTemplate = errors.New("invalid style path template")

// styleData is the template context for style paths.
type styleData struct {
	// Name is the component path segment, dash-cased when configured.
	Name string
	// Lib is the library name.
	Lib string
}

var styleFuncs = template.FuncMap{
	"dash":  ondemand.DashCase,
	"lower": strings.ToLower,
}

// compileStyle parses path and renders it once against a sample so runtime
// rendering cannot fail on a valid config.
func compileStyle(path string) (ondemand.StyleTransform, error) {
	tmpl, err := template.New("style").Funcs(styleFuncs).Option("missingkey=error").Parse(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStyleTemplate, err)
	}

	_, err = render(tmpl, styleData{Name: "Button", Lib: "lib"})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStyleTemplate, err)
	}

	return func(name, libName string) string {
		out, renderErr := render(tmpl, styleData{Name: name, Lib: libName})
		if renderErr != nil {
			return ""
		}

		return out
	}, nil
}

func render(tmpl *template.Template, data styleData) (string, error) {
	var sb strings.Builder

	err := tmpl.Execute(&sb, data)
	if err != nil {
		return "", err
	}

	return sb.String(), nil
}
