package commands

import (
	"github.com/spf13/cobra"

	"github.com/buildforever/farmctl/cmd/farmctl/handlers"
)

// Configs returns the saved-configuration management command group.
func Configs() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Manage saved deployment configurations",
	}

	var savePath string
	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a configuration file under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.SaveConfig(args[0], savePath)
		},
	}
	save.Flags().StringVarP(&savePath, "config", "c", "", "Path to configuration file (default: farmctl.yaml)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved configurations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.ListConfigs()
		},
	}

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return handlers.ShowConfig(args[0])
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return handlers.DeleteConfig(args[0])
		},
	}

	cmd.AddCommand(save, list, show, del)
	return cmd
}
