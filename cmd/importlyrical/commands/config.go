package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/AnCIity/importlyrical/pkg/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or validate the project configuration",
	}

	cmd.AddCommand(newConfigShowCommand(flags), newConfigValidateCommand(flags))

	return cmd
}

func newConfigShowCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return err
			}

			return cfg.Dump(cmd.OutOrStdout())
		},
	}
}

func newConfigValidateCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration against its schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "configuration is invalid\n")

				return err
			}

			_, err = cfg.PluginConfig()
			if err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "configuration is valid (%d libraries)\n", len(cfg.Libraries))

			return nil
		},
	}
}
