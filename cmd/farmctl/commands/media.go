package commands

import (
	"github.com/spf13/cobra"

	"github.com/buildforever/farmctl/cmd/farmctl/handlers"
)

// Media returns the command that pre-fetches install media into storage.
//
// Resolving Windows and macOS images can take a long time; fetching them
// ahead of a deploy keeps the deploy itself fast and makes media failures
// visible early.
func Media() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "media <os>",
		Short: "Pre-fetch install media for an agent OS",
		Long: `Resolve and download the install image for one agent OS into the
configured storage pool, reusing a cached copy when present.

Examples:
  farmctl media debian
  farmctl media windows-11 -c production.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.EnsureMedia(cmd.Context(), configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: farmctl.yaml)")

	return cmd
}
