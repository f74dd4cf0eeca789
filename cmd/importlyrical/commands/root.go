// Package commands implements the importlyrical CLI commands.
package commands

import (
	"github.com/spf13/cobra"
)

// GlobalFlags are the persistent root flags.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
}

// NewRootCommand builds the importlyrical command tree.
func NewRootCommand() *cobra.Command {
	flags := &GlobalFlags{}

	rootCmd := &cobra.Command{
		Use:   "importlyrical",
		Short: "On-demand component and style imports for esbuild",
		Long: `importlyrical rewrites whole-library imports of component libraries into
per-component imports and adds the matching stylesheet imports.

Commands:
  build      Production build with component imports split
  serve      Dev server with stylesheet imports added
  transform  Print the rewritten form of one module
  scan       List library imports found in modules
  config     Show or validate the project configuration
  mcp        Start the MCP server on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "config file (default .importlyrical.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(
		NewBuildCommand(flags),
		NewServeCommand(flags),
		NewTransformCommand(flags),
		NewScanCommand(flags),
		NewConfigCommand(flags),
		NewMCPCommand(flags),
		NewVersionCommand(),
	)

	return rootCmd
}
