package esbuildplugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/evanw/esbuild/pkg/api"

	"github.com/AnCIity/importlyrical/pkg/config"
)

const (
	outputDirPerm  = 0o755
	outputFilePerm = 0o644
)

// ErrBuildFailed wraps esbuild diagnostics.
var ErrBuildFailed = errors.New("esbuild failed")

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var formats = map[string]api.Format{
	"esm":  api.FormatESModule,
	"cjs":  api.FormatCommonJS,
	"iife": api.FormatIIFE,
}

var platforms = map[string]api.Platform{
	"browser": api.PlatformBrowser,
	"node":    api.PlatformNode,
	"neutral": api.PlatformNeutral,
}

// BuildOptions maps the project build section onto esbuild options rooted at
// workDir. Plugins are left empty.
func BuildOptions(cfg *config.Config, workDir string) api.BuildOptions {
	opts := api.BuildOptions{
		EntryPoints:       cfg.Build.EntryPoints,
		Outdir:            cfg.Build.Outdir,
		Bundle:            cfg.Build.Bundle,
		External:          cfg.Build.External,
		Format:            formats[cfg.Build.Format],
		Platform:          platforms[cfg.Build.Platform],
		MinifyWhitespace:  cfg.Build.Minify,
		MinifyIdentifiers: cfg.Build.Minify,
		MinifySyntax:      cfg.Build.Minify,
		AbsWorkingDir:     workDir,
		LogLevel:          api.LogLevelSilent,
	}

	if target, ok := targets[strings.ToLower(cfg.Build.Target)]; ok {
		opts.Target = target
	}

	if cfg.Build.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}

	return opts
}

// OutputFile is one emitted file.
type OutputFile struct {
	Path string
	Size int
}

// Summary describes a finished build.
type Summary struct {
	Files    []OutputFile
	Warnings []string
}

// TotalSize is the sum of all output sizes.
func (s Summary) TotalSize() int {
	total := 0
	for _, f := range s.Files {
		total += f.Size
	}

	return total
}

// Lines renders one line per output plus a total, with paths relative to base.
func (s Summary) Lines(base string) []string {
	lines := make([]string, 0, len(s.Files)+1)

	for _, f := range s.Files {
		rel, err := filepath.Rel(base, f.Path)
		if err != nil {
			rel = f.Path
		}

		lines = append(lines, fmt.Sprintf("  %-40s %10s", rel, humanize.Bytes(uint64(f.Size))))
	}

	lines = append(lines, fmt.Sprintf("  %d files, %s", len(s.Files), humanize.Bytes(uint64(s.TotalSize()))))

	return lines
}

// Build runs one esbuild build with plugin and writes the outputs. Cancelling
// ctx cancels the build.
func Build(ctx context.Context, opts api.BuildOptions, plugin api.Plugin) (Summary, error) {
	opts.Write = false
	opts.Plugins = append(append([]api.Plugin(nil), opts.Plugins...), plugin)

	bctx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return Summary{}, diagnostics(ctxErr.Errors)
	}
	defer bctx.Dispose()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			bctx.Cancel()
		case <-done:
		}
	}()

	result := bctx.Rebuild()

	if err := ctx.Err(); err != nil {
		return Summary{}, fmt.Errorf("build cancelled: %w", err)
	}

	if len(result.Errors) > 0 {
		return Summary{}, diagnostics(result.Errors)
	}

	summary := Summary{
		Files:    make([]OutputFile, 0, len(result.OutputFiles)),
		Warnings: formatMessages(result.Warnings, api.WarningMessage),
	}

	for _, out := range result.OutputFiles {
		err := writeOutput(out)
		if err != nil {
			return Summary{}, err
		}

		summary.Files = append(summary.Files, OutputFile{Path: out.Path, Size: len(out.Contents)})
	}

	return summary, nil
}

// OutputContents runs a build with Write disabled and returns the emitted
// contents keyed by path.
func OutputContents(ctx context.Context, opts api.BuildOptions, plugin api.Plugin) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts.Write = false
	opts.Plugins = append(append([]api.Plugin(nil), opts.Plugins...), plugin)

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		return nil, diagnostics(result.Errors)
	}

	out := make(map[string]string, len(result.OutputFiles))
	for _, f := range result.OutputFiles {
		out[f.Path] = string(f.Contents)
	}

	return out, nil
}

// Serve watches and serves the build until ctx is done.
func Serve(ctx context.Context, opts api.BuildOptions, plugin api.Plugin, serve config.ServeConfig, logger *slog.Logger) error {
	opts.Plugins = append(append([]api.Plugin(nil), opts.Plugins...), plugin)

	bctx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return diagnostics(ctxErr.Errors)
	}
	defer bctx.Dispose()

	err := bctx.Watch(api.WatchOptions{})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	servedir := serve.Servedir
	if servedir == "" {
		servedir = opts.Outdir
	}

	result, err := bctx.Serve(api.ServeOptions{
		Host:     serve.Host,
		Port:     serve.Port,
		Servedir: servedir,
	})
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.InfoContext(ctx, "dev server listening",
		"addrs", ListenURLs(result), "port", result.Port, "servedir", servedir)

	<-ctx.Done()

	logger.InfoContext(ctx, "dev server stopping")

	return nil
}

// ListenURLs returns the URLs the dev server actually bound, one per host.
// The port is the one esbuild picked when the configured port was 0.
func ListenURLs(result api.ServeResult) []string {
	urls := make([]string, 0, len(result.Hosts))
	for _, host := range result.Hosts {
		urls = append(urls, "http://"+net.JoinHostPort(host, strconv.Itoa(int(result.Port))))
	}

	return urls
}

func writeOutput(out api.OutputFile) error {
	err := os.MkdirAll(filepath.Dir(out.Path), outputDirPerm)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	err = os.WriteFile(out.Path, out.Contents, outputFilePerm)
	if err != nil {
		return fmt.Errorf("write %s: %w", out.Path, err)
	}

	return nil
}

func diagnostics(msgs []api.Message) error {
	return fmt.Errorf("%w:\n%s", ErrBuildFailed, strings.Join(formatMessages(msgs, api.ErrorMessage), ""))
}

func formatMessages(msgs []api.Message, kind api.MessageKind) []string {
	if len(msgs) == 0 {
		return nil
	}

	return api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind})
}
