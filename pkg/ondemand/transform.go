package ondemand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/AnCIity/importlyrical/pkg/jsast"
	"github.com/AnCIity/importlyrical/pkg/resolve"
)

const tracerName = "importlyrical"

// Command is the active build command of the host.
type Command string

// Host commands.
const (
	// CommandBuild is a production build; component imports are rewritten.
	CommandBuild Command = "build"
	// CommandServe is the dev server; only stylesheet imports are added.
	CommandServe Command = "serve"
)

// ErrUnknownCommand is returned by ParseCommand for unrecognized names.
var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand parses "build" or "serve".
func ParseCommand(name string) (Command, error) {
	switch Command(name) {
	case CommandBuild, CommandServe:
		return Command(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

// Transform outcomes reported to the Recorder.
const (
	OutcomeSkipped   = "skipped"
	OutcomeUnchanged = "unchanged"
	OutcomeRewritten = "rewritten"
	OutcomeError     = "error"
)

// SourceMap is a version 3 source map as produced by the host.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// Env is the host build configuration for one Transform call.
type Env struct {
	Command Command
	// Sourcemap reports whether the host build emits source maps.
	Sourcemap bool
	// CombinedSourcemap returns the host's combined source map for the
	// current module. It is only consulted when Sourcemap is true.
	CombinedSourcemap func() (*SourceMap, error)
}

// Result is the outcome of a Transform call.
type Result struct {
	Code string
	// Map is nil unless the host enabled source maps and the file was
	// processed.
	Map *SourceMap
	// Changed reports whether Code differs from the input.
	Changed bool
	// Imports are the matched records, when the file was scanned.
	Imports LibDict
}

// Resolver resolves a library name to the absolute path of its entry file,
// as seen from importer.
type Resolver interface {
	Resolve(ctx context.Context, lib, importer string) (string, error)
}

// Recorder receives one observation per Transform call.
type Recorder interface {
	RecordTransform(ctx context.Context, outcome string, duration time.Duration, components, styles int)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransform(context.Context, string, time.Duration, int, int) {}

// Option configures a Plugin.
type Option func(*Plugin)

// WithResolver sets the package resolver. Defaults to a NodeResolver rooted
// at the working directory.
func WithResolver(r Resolver) Option {
	return func(p *Plugin) { p.resolver = r }
}

// WithFileChecker sets the stylesheet existence check. Defaults to the host
// filesystem.
func WithFileChecker(fc resolve.FileChecker) Option {
	return func(p *Plugin) { p.files = fc }
}

// WithParser shares a jsast.Parser between plugins.
func WithParser(parser *jsast.Parser) Option {
	return func(p *Plugin) { p.parser = parser }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plugin) { p.logger = logger }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(p *Plugin) { p.recorder = rec }
}

// WithTracer sets the tracer used for per-file spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Plugin) { p.tracer = tracer }
}

// Plugin is the per-file transform hook. Its configuration is immutable and
// Transform is safe for concurrent use.
type Plugin struct {
	cfg       Config
	prefilter *regexp.Regexp
	parser    *jsast.Parser
	resolver  Resolver
	files     resolve.FileChecker
	logger    *slog.Logger
	recorder  Recorder
	tracer    trace.Tracer
}

// New validates cfg and builds a Plugin.
func New(cfg Config, opts ...Option) (*Plugin, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	norm := cfg.normalized()

	p := &Plugin{
		cfg:       norm,
		prefilter: compilePrefilter(norm.Names()),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.parser == nil {
		p.parser = jsast.NewParser()
	}

	if p.files == nil {
		p.files = resolve.OSFileChecker{}
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}

	if p.tracer == nil {
		p.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}

	if p.resolver == nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			return nil, fmt.Errorf("working directory: %w", cwdErr)
		}

		nodeResolver, resErr := resolve.NewNodeResolver(cwd)
		if resErr != nil {
			return nil, resErr
		}

		p.resolver = nodeResolver
	}

	return p, nil
}

// Config returns the normalized configuration.
func (p *Plugin) Config() Config {
	return p.cfg
}

// Scan parses code and returns its matched imports without rewriting.
func (p *Plugin) Scan(ctx context.Context, code, id string) (LibDict, error) {
	lang := jsast.DetectLanguage(id, []byte(code))
	if lang == "" {
		return LibDict{}, nil
	}

	mod, err := p.parser.ParseLanguage(ctx, lang, []byte(code))
	if err != nil {
		return LibDict{}, fmt.Errorf("parse %s: %w", id, err)
	}

	return Scan(mod, p.cfg.Libraries), nil
}

// Transform rewrites one module. Files inside dependencies, files that do
// not mention any configured library and non-JavaScript files pass through
// unchanged with a nil map. Parse and resolution failures are returned.
func (p *Plugin) Transform(ctx context.Context, code, id string, env Env) (Result, error) {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "importlyrical.transform",
		trace.WithAttributes(attribute.String("importlyrical.file", id), attribute.String("importlyrical.command", string(env.Command))),
	)
	defer span.End()

	lang := jsast.DetectLanguage(id, []byte(code))

	if lang == "" || p.IsDependency(id) || !p.Mentions(code) {
		p.recorder.RecordTransform(ctx, OutcomeSkipped, time.Since(start), 0, 0)

		return Result{Code: code}, nil
	}

	res, components, styles, err := p.transform(ctx, code, id, lang, env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.recorder.RecordTransform(ctx, OutcomeError, time.Since(start), 0, 0)

		return Result{}, fmt.Errorf("transform %s: %w", id, err)
	}

	outcome := OutcomeUnchanged
	if res.Changed {
		outcome = OutcomeRewritten
	}

	p.recorder.RecordTransform(ctx, outcome, time.Since(start), components, styles)
	p.logger.DebugContext(ctx, "transformed module",
		"file", id, "command", string(env.Command), "matched", res.Imports.Len(),
		"components", components, "styles", styles, "outcome", outcome)

	return res, nil
}

func (p *Plugin) transform(ctx context.Context, code, id, lang string, env Env) (Result, int, int, error) {
	mod, err := p.parser.ParseLanguage(ctx, lang, []byte(code))
	if err != nil {
		return Result{}, 0, 0, err
	}

	dict := Scan(mod, p.cfg.Libraries)
	out := code
	components := 0

	if env.Command == CommandBuild {
		demand := dict.Filter(func(lib Library) bool { return lib.DemandImportComponent })
		if !demand.Empty() {
			out = ComponentImports(demand) + RemoveImports(mod, demand.Libraries())
			components = demand.Len()
		}
	}

	// Style imports come from the original scan, so components whose import
	// was just removed still get their stylesheet.
	styleCode, styles, err := p.styleImports(ctx, dict, id)
	if err != nil {
		return Result{}, 0, 0, err
	}

	out = styleCode + out

	res := Result{Code: out, Changed: out != code, Imports: dict}

	if env.Sourcemap && env.CombinedSourcemap != nil {
		res.Map, err = env.CombinedSourcemap()
		if err != nil {
			return Result{}, 0, 0, fmt.Errorf("combined sourcemap: %w", err)
		}
	}

	return res, components, styles, nil
}
