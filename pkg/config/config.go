// Package config loads the importlyrical project configuration from
// .importlyrical.yaml, IMPORTLYRICAL_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AnCIity/importlyrical/pkg/ondemand"
)

// Sentinel validation errors.
var (
	ErrNoLibraries     = errors.New("at least one library must be configured")
	ErrEmptyName       = errors.New("library name must not be empty")
	ErrDuplicateName   = errors.New("library configured more than once")
	ErrEmptyStylePath  = errors.New("library style path must not be empty")
	ErrInvalidFormat   = errors.New("invalid build format")
	ErrInvalidPlatform = errors.New("invalid build platform")
	ErrInvalidPort     = errors.New("invalid serve port")
	ErrInvalidLevel    = errors.New("invalid log level")
	ErrInvalidRatio    = errors.New("sample ratio must be within [0, 1]")
)

const maxPort = 65535

// Config is the project configuration.
type Config struct {
	Libraries []LibraryConfig `mapstructure:"libraries" yaml:"libraries"`
	Exclude   []string        `mapstructure:"exclude"   yaml:"exclude"`
	Build     BuildConfig     `mapstructure:"build"     yaml:"build"`
	Serve     ServeConfig     `mapstructure:"serve"     yaml:"serve"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// LibraryConfig configures one component library.
type LibraryConfig struct {
	Name                  string      `mapstructure:"name"                     yaml:"name"`
	Directory             string      `mapstructure:"directory"                yaml:"directory"`
	Style                 StyleConfig `mapstructure:"style"                    yaml:"style"`
	DemandImportComponent bool        `mapstructure:"demand_import_component"  yaml:"demand_import_component"`
	ComponentNameDashCase bool        `mapstructure:"component_name_dash_case" yaml:"component_name_dash_case"`
}

// StyleConfig configures stylesheet imports. Path is a text/template over
// {{.Name}} and {{.Lib}}, e.g. "{{.Lib}}/es/{{.Name}}/style/index.css".
type StyleConfig struct {
	Path             string `mapstructure:"path"               yaml:"path"`
	UseWhetherExists *bool  `mapstructure:"use_whether_exists" yaml:"use_whether_exists,omitempty"`
}

// BuildConfig holds the esbuild options.
type BuildConfig struct {
	EntryPoints []string `mapstructure:"entry_points" yaml:"entry_points"`
	Outdir      string   `mapstructure:"outdir"       yaml:"outdir"`
	Format      string   `mapstructure:"format"       yaml:"format"`
	Platform    string   `mapstructure:"platform"     yaml:"platform"`
	Target      string   `mapstructure:"target"       yaml:"target"`
	External    []string `mapstructure:"external"     yaml:"external"`
	Bundle      bool     `mapstructure:"bundle"       yaml:"bundle"`
	Minify      bool     `mapstructure:"minify"       yaml:"minify"`
	Sourcemap   bool     `mapstructure:"sourcemap"    yaml:"sourcemap"`
}

// ServeConfig holds the dev server options.
type ServeConfig struct {
	Host     string `mapstructure:"host"     yaml:"host"`
	Servedir string `mapstructure:"servedir" yaml:"servedir"`
	// MetricsAddr serves Prometheus metrics when non-empty.
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	Port        int    `mapstructure:"port"         yaml:"port"`
}

// LoggingConfig holds logging options.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json"  yaml:"json"`
}

// TelemetryConfig holds OpenTelemetry export options.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"  yaml:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure" yaml:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"  yaml:"sample_ratio"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if len(c.Libraries) == 0 {
		return ErrNoLibraries
	}

	seen := make(map[string]bool, len(c.Libraries))

	for idx, lib := range c.Libraries {
		if lib.Name == "" {
			return fmt.Errorf("libraries[%d]: %w", idx, ErrEmptyName)
		}

		if seen[lib.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateName, lib.Name)
		}

		seen[lib.Name] = true

		if lib.Style.Path == "" {
			return fmt.Errorf("%w: %s", ErrEmptyStylePath, lib.Name)
		}

		_, err := compileStyle(lib.Style.Path)
		if err != nil {
			return fmt.Errorf("library %s: %w", lib.Name, err)
		}
	}

	return c.validateSections()
}

func (c *Config) validateSections() error {
	switch c.Build.Format {
	case "esm", "cjs", "iife":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Build.Format)
	}

	switch c.Build.Platform {
	case "browser", "node", "neutral":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPlatform, c.Build.Platform)
	}

	if c.Serve.Port < 0 || c.Serve.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Serve.Port)
	}

	_, err := c.Logging.SlogLevel()
	if err != nil {
		return err
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.ToUpper(l.Level)))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, l.Level)
	}

	return level, nil
}

// PluginConfig compiles the libraries into the rewriter configuration.
func (c *Config) PluginConfig() (ondemand.Config, error) {
	out := ondemand.Config{
		Libraries: make([]ondemand.Library, 0, len(c.Libraries)),
		Exclude:   append([]string(nil), c.Exclude...),
	}

	for _, lib := range c.Libraries {
		transform, err := compileStyle(lib.Style.Path)
		if err != nil {
			return ondemand.Config{}, fmt.Errorf("library %s: %w", lib.Name, err)
		}

		out.Libraries = append(out.Libraries, ondemand.Library{
			Name:      lib.Name,
			Directory: lib.Directory,
			Style: ondemand.Style{
				Transform:        transform,
				UseWhetherExists: lib.Style.UseWhetherExists,
			},
			DemandImportComponent: lib.DemandImportComponent,
			ComponentNameDashCase: lib.ComponentNameDashCase,
		})
	}

	err := out.Validate()
	if err != nil {
		return ondemand.Config{}, fmt.Errorf("plugin config: %w", err)
	}

	return out, nil
}
