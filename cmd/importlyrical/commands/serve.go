package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnCIity/importlyrical/pkg/esbuildplugin"
	"github.com/AnCIity/importlyrical/pkg/observability"
	"github.com/AnCIity/importlyrical/pkg/ondemand"
)

const (
	metricsPath         = "/metrics"
	readHeaderTimeout   = 5 * time.Second
	metricsStopDeadline = 5 * time.Second
)

// NewServeCommand creates the dev server command.
func NewServeCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the esbuild dev server",
		Long: `Watch and serve the configured entry points. Only stylesheet imports are
added; library imports are left as written. With serve.metrics_addr set,
Prometheus metrics are exposed at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags, observability.ModeServe)
			if err != nil {
				return err
			}
			defer a.close()

			plugin, err := esbuildplugin.New(a.plugin, esbuildplugin.Options{
				Command:       ondemand.CommandServe,
				Sourcemap:     a.cfg.Build.Sourcemap,
				Logger:        a.logger(),
				PluginOptions: a.pluginOptions(),
			})
			if err != nil {
				return err
			}

			workDir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("working directory: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.providers.MetricsHandler != nil {
				stopMetrics := serveMetrics(ctx, a, a.cfg.Serve.MetricsAddr)
				defer stopMetrics()
			}

			return esbuildplugin.Serve(ctx, esbuildplugin.BuildOptions(a.cfg, workDir), plugin, a.cfg.Serve, a.logger())
		},
	}
}

func serveMetrics(ctx context.Context, a *app, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, a.providers.MetricsHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		a.logger().InfoContext(ctx, "metrics listening", "addr", addr, "path", metricsPath)

		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger().ErrorContext(ctx, "metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsStopDeadline)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}
}
