// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the farmctl CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "farmctl",
		Short: "Provision CI build farms on a Proxmox-style control plane",
	}

	// Core commands
	cmd.AddCommand(Init())
	cmd.AddCommand(Deploy())
	cmd.AddCommand(Probe())
	cmd.AddCommand(Media())

	// Local-store commands
	cmd.AddCommand(Configs())
	cmd.AddCommand(Credentials())
	cmd.AddCommand(History())

	cmd.AddCommand(Version())

	return cmd
}
