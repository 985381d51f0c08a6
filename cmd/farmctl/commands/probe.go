package commands

import (
	"github.com/spf13/cobra"

	"github.com/buildforever/farmctl/cmd/farmctl/handlers"
)

// Probe returns the pre-flight connectivity check command.
func Probe() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "probe <host>",
		Short: "Check whether a control-plane API answers at a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Probe(cmd.Context(), args[0], port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8006, "Control-plane API port")

	return cmd
}
