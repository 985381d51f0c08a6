package commands

import (
	"github.com/spf13/cobra"

	"github.com/buildforever/farmctl/cmd/farmctl/handlers"
)

// Init returns the command that creates a deployment configuration file.
//
// In a terminal it runs the interactive wizard; otherwise (or with
// --non-interactive) it writes a commented example file to edit by hand.
func Init() *cobra.Command {
	var output string
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a deployment configuration file",
		Long: `Create a farmctl.yaml deployment configuration.

Runs an interactive wizard when attached to a terminal. Use
--non-interactive to write an example file instead.

Examples:
  # Interactive wizard
  farmctl init

  # Example file to edit by hand
  farmctl init --non-interactive -o production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), output, nonInteractive)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "farmctl.yaml", "Output path for the configuration file")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Write an example config instead of running the wizard")

	return cmd
}
