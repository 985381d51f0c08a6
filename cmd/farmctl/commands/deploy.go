package commands

import (
	"github.com/spf13/cobra"

	"github.com/buildforever/farmctl/cmd/farmctl/handlers"
)

// Deploy returns the command that provisions the configured build farm.
//
// Optional flags:
//
//	--config, -c:   Path to deployment configuration (default: farmctl.yaml)
//	--wait:         Block until background agent provisioning finishes
//	--metrics-addr: Serve Prometheus metrics on this address during the run
func Deploy() *cobra.Command {
	var configPath string
	var wait bool
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create the CI server and build agents",
		Long: `Provision the build farm described by the configuration file.

Creates the optional CI server container, then one resource per requested
agent. Linux agents finish installing in the background; use --wait to
block until they are done, or inspect the per-resource log files.

Examples:
  # Deploy using farmctl.yaml in the current directory
  farmctl deploy

  # Deploy a specific config and wait for agent installs
  farmctl deploy -c production.yaml --wait`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), configPath, wait, metricsAddr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: farmctl.yaml)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for background agent provisioning to finish")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while deploying")

	return cmd
}
