package commands

import (
	"github.com/spf13/cobra"

	"github.com/buildforever/farmctl/cmd/farmctl/handlers"
)

// History returns the deployment-history command.
func History() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past deployment runs",
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.History(limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")

	return cmd
}
