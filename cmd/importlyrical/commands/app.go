package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/AnCIity/importlyrical/pkg/config"
	"github.com/AnCIity/importlyrical/pkg/observability"
	"github.com/AnCIity/importlyrical/pkg/ondemand"
	"github.com/AnCIity/importlyrical/pkg/version"
)

// app is the per-command runtime: loaded config plus telemetry.
type app struct {
	cfg       *config.Config
	plugin    ondemand.Config
	providers observability.Providers
	recorder  *observability.TransformMetrics
}

func (a *app) logger() *slog.Logger {
	return a.providers.Logger
}

// pluginOptions wires logging, tracing and metrics into ondemand.New.
func (a *app) pluginOptions() []ondemand.Option {
	return []ondemand.Option{
		ondemand.WithLogger(a.providers.Logger),
		ondemand.WithTracer(a.providers.Tracer),
		ondemand.WithRecorder(a.recorder),
	}
}

func (a *app) close() {
	err := a.providers.Shutdown(context.Background())
	if err != nil {
		a.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

// loadApp loads the project config and initializes observability for mode.
func loadApp(flags *GlobalFlags, mode observability.AppMode) (*app, error) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	pluginCfg, err := cfg.PluginConfig()
	if err != nil {
		return nil, err
	}

	obsCfg, err := observabilityConfig(cfg, flags, mode)
	if err != nil {
		return nil, err
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	recorder, err := observability.NewTransformMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, plugin: pluginCfg, providers: providers, recorder: recorder}, nil
}

func observabilityConfig(cfg *config.Config, flags *GlobalFlags, mode observability.AppMode) (observability.Config, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Config{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON || mode == observability.ModeMCP
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.Prometheus = mode == observability.ModeServe && cfg.Serve.MetricsAddr != ""

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		obsCfg.OTLPEndpoint = endpoint
	}

	if headers := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); headers != "" {
		obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(headers)
	}

	switch {
	case flags.Verbose:
		obsCfg.LogLevel = slog.LevelDebug
	case flags.Quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	return obsCfg, nil
}
