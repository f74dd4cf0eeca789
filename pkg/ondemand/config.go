// Package ondemand rewrites whole-library imports of component libraries
// into per-component imports plus the matching stylesheet imports.
package ondemand

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultDirectory is the library sub-directory holding per-component modules.
const DefaultDirectory = "es"

// Configuration errors.
var (
	ErrEmptyLibraryName      = errors.New("library name must not be empty")
	ErrDuplicateLibrary      = errors.New("library configured more than once")
	ErrMissingStyleTransform = errors.New("library style transform is required")
	ErrInvalidExclude        = errors.New("invalid exclude pattern")
)

// StyleTransform maps a (possibly dash-cased) component name and its library
// name to the stylesheet path to import, e.g.
// "@lyrical/react/es/components/button/style/index.css".
type StyleTransform func(name, libName string) string

// Style configures stylesheet imports for a library.
type Style struct {
	Transform StyleTransform `json:"-"`
	// UseWhetherExists makes the generator import only stylesheets present on
	// disk. Nil means true.
	UseWhetherExists *bool `json:"use_whether_exists,omitempty"`
}

// VerifyExistence reports whether stylesheet existence is checked.
func (s Style) VerifyExistence() bool {
	return s.UseWhetherExists == nil || *s.UseWhetherExists
}

// Library is the per-library rewrite configuration.
type Library struct {
	Name string `json:"name"`
	// Directory holds per-component modules. Defaults to DefaultDirectory.
	Directory string `json:"directory"`
	Style     Style  `json:"style"`
	// DemandImportComponent rewrites whole-library imports into component
	// imports during production builds.
	DemandImportComponent bool `json:"demand_import_component"`
	// ComponentNameDashCase dash-cases component names in generated paths.
	ComponentNameDashCase bool `json:"component_name_dash_case"`
}

// ComponentPath returns the path segment used for name in generated imports.
func (l Library) ComponentPath(name string) string {
	if l.ComponentNameDashCase {
		return DashCase(name)
	}

	return name
}

// Config is supplied once at plugin construction.
type Config struct {
	Libraries []Library `json:"libraries"`
	// Exclude lists doublestar globs of module ids that are never transformed,
	// in addition to anything under node_modules.
	Exclude []string `json:"exclude,omitempty"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Libraries))

	for idx, lib := range c.Libraries {
		if lib.Name == "" {
			return fmt.Errorf("libraries[%d]: %w", idx, ErrEmptyLibraryName)
		}

		if seen[lib.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateLibrary, lib.Name)
		}

		seen[lib.Name] = true

		if lib.Style.Transform == nil {
			return fmt.Errorf("%w: %s", ErrMissingStyleTransform, lib.Name)
		}
	}

	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: %q", ErrInvalidExclude, pattern)
		}
	}

	return nil
}

// normalized returns a copy with defaults applied.
func (c Config) normalized() Config {
	out := Config{
		Libraries: make([]Library, len(c.Libraries)),
		Exclude:   append([]string(nil), c.Exclude...),
	}

	for idx, lib := range c.Libraries {
		if lib.Directory == "" {
			lib.Directory = DefaultDirectory
		}

		out.Libraries[idx] = lib
	}

	return out
}

// Names returns the configured library names in order.
func (c Config) Names() []string {
	names := make([]string, len(c.Libraries))
	for idx, lib := range c.Libraries {
		names[idx] = lib.Name
	}

	return names
}
