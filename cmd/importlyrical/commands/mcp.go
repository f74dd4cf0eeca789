package commands

import (
	"github.com/spf13/cobra"

	"github.com/AnCIity/importlyrical/pkg/mcp"
	"github.com/AnCIity/importlyrical/pkg/observability"
	"github.com/AnCIity/importlyrical/pkg/ondemand"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

Tools:
  - importlyrical_scan: list configured library imports in a module
  - importlyrical_transform: rewrite a module for build or serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer a.close()

			plugin, err := ondemand.New(a.plugin, a.pluginOptions()...)
			if err != nil {
				return err
			}

			metrics, err := observability.NewToolMetrics(a.providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Plugin:  plugin,
				Logger:  a.logger(),
				Metrics: metrics,
				Tracer:  a.providers.Tracer,
			})

			return srv.Run(cmd.Context())
		},
	}
}
