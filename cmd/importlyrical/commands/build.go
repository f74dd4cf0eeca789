package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AnCIity/importlyrical/pkg/esbuildplugin"
	"github.com/AnCIity/importlyrical/pkg/observability"
	"github.com/AnCIity/importlyrical/pkg/ondemand"
)

// NewBuildCommand creates the production build command.
func NewBuildCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Run a production esbuild build",
		Long: `Run esbuild with the configured entry points. Libraries with
demand_import_component get per-component imports; every matched component
gets its stylesheet import.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(flags, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer a.close()

			plugin, err := esbuildplugin.New(a.plugin, esbuildplugin.Options{
				Command:       ondemand.CommandBuild,
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

			summary, err := esbuildplugin.Build(cmd.Context(), esbuildplugin.BuildOptions(a.cfg, workDir), plugin)
			if err != nil {
				return err
			}

			for _, warning := range summary.Warnings {
				fmt.Fprint(cmd.ErrOrStderr(), warning)
			}

			if flags.Quiet {
				return nil
			}

			for _, line := range summary.Lines(workDir) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}

			return nil
		},
	}
}
