package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnCIity/importlyrical/pkg/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "importlyrical %s (commit: %s, built: %s, %s)\n",
				info.Version, info.Commit, info.Date, info.GoVersion)
		},
	}
}
