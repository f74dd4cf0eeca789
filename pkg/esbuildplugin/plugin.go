// Package esbuildplugin runs the import rewriter inside esbuild builds and
// the esbuild dev server.
package esbuildplugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/AnCIity/importlyrical/pkg/jsast"
	"github.com/AnCIity/importlyrical/pkg/ondemand"
)

// Name is the esbuild plugin name.
const Name = "importlyrical"

// sourceFilter matches the module extensions the rewriter understands.
const sourceFilter = `\.(m?jsx?|[cm]?tsx?)$`

// ErrResolve is returned when esbuild cannot resolve a library.
var ErrResolve = errors.New("esbuild resolve failed")

// Options configures the esbuild adapter.
type Options struct {
	Command   ondemand.Command
	Sourcemap bool
	Logger    *slog.Logger
	// PluginOptions are passed to ondemand.New. The resolver is always the
	// esbuild one.
	PluginOptions []ondemand.Option
}

// New validates cfg and returns an esbuild plugin that rewrites every loaded
// source module.
func New(cfg ondemand.Config, opts Options) (api.Plugin, error) {
	// One parser serves validation and every Setup.
	parser := jsast.NewParser()

	if _, err := ondemand.New(cfg, pluginOptions(opts, parser, nopResolver{})...); err != nil {
		return api.Plugin{}, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return api.Plugin{
		Name: Name,
		Setup: func(build api.PluginBuild) {
			pluginOpts := append([]ondemand.Option{ondemand.WithLogger(logger)},
				pluginOptions(opts, parser, hostResolver{build: build})...)

			plugin, err := ondemand.New(cfg, pluginOpts...)

			build.OnLoad(api.OnLoadOptions{Filter: sourceFilter, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					if err != nil {
						return api.OnLoadResult{}, err
					}

					return load(context.Background(), plugin, args.Path, opts)
				})
		},
	}, nil
}

// pluginOptions copies the caller's options so appending never writes into
// their backing array. The shared parser comes first so callers can replace
// it, and the resolver comes last so it always wins.
func pluginOptions(opts Options, parser *jsast.Parser, resolver ondemand.Resolver) []ondemand.Option {
	out := make([]ondemand.Option, 0, len(opts.PluginOptions)+2)
	out = append(out, ondemand.WithParser(parser))
	out = append(out, opts.PluginOptions...)

	return append(out, ondemand.WithResolver(resolver))
}

func load(ctx context.Context, plugin *ondemand.Plugin, path string, opts Options) (api.OnLoadResult, error) {
	if plugin.IsDependency(path) {
		return api.OnLoadResult{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return api.OnLoadResult{}, fmt.Errorf("read %s: %w", path, err)
	}

	res, err := plugin.Transform(ctx, string(data), path, ondemand.Env{
		Command:   opts.Command,
		Sourcemap: opts.Sourcemap,
	})
	if err != nil {
		return api.OnLoadResult{}, err
	}

	return api.OnLoadResult{
		Contents:   &res.Code,
		Loader:     loaderFor(path),
		ResolveDir: filepath.Dir(path),
	}, nil
}

func loaderFor(path string) api.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsx":
		return api.LoaderJSX
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	default:
		return api.LoaderJS
	}
}

// hostResolver resolves packages with esbuild's own resolver so main fields,
// conditions and aliases match the build.
type hostResolver struct {
	build api.PluginBuild
}

func (h hostResolver) Resolve(_ context.Context, lib, importer string) (string, error) {
	result := h.build.Resolve(lib, api.ResolveOptions{
		Importer:   importer,
		ResolveDir: filepath.Dir(importer),
		Kind:       api.ResolveJSImportStatement,
	})

	if len(result.Errors) > 0 {
		return "", fmt.Errorf("%w: %s: %s", ErrResolve, lib, result.Errors[0].Text)
	}

	return result.Path, nil
}

type nopResolver struct{}

func (nopResolver) Resolve(context.Context, string, string) (string, error) {
	return "", ErrResolve
}
