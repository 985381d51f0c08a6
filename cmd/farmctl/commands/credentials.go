package commands

import (
	"github.com/spf13/cobra"

	"github.com/buildforever/farmctl/cmd/farmctl/handlers"
	"github.com/buildforever/farmctl/internal/store"
)

// Credentials returns the control-plane credential management command group.
func Credentials() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage saved control-plane credentials",
	}

	var cred store.Credential
	var asDefault bool
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Save a credential set",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cred.Name = args[0]
			return handlers.AddCredential(cred, asDefault)
		},
	}
	add.Flags().StringVar(&cred.Host, "host", "", "Control-plane host")
	add.Flags().IntVar(&cred.Port, "port", 8006, "Control-plane API port")
	add.Flags().StringVar(&cred.User, "user", "", "API user including realm, e.g. root@pam")
	add.Flags().StringVar(&cred.Password, "password", "", "API password")
	add.Flags().StringVar(&cred.TokenName, "token-name", "", "API token name")
	add.Flags().StringVar(&cred.TokenSecret, "token-secret", "", "API token secret")
	add.Flags().BoolVar(&asDefault, "default", false, "Make this the default credential")
	_ = add.MarkFlagRequired("host")
	_ = add.MarkFlagRequired("user")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved credentials (secrets redacted)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.ListCredentials()
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved credential set",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return handlers.DeleteCredential(args[0])
		},
	}

	setDefault := &cobra.Command{
		Use:   "set-default <name>",
		Short: "Mark a saved credential set as the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return handlers.SetDefaultCredential(args[0])
		},
	}

	cmd.AddCommand(add, list, del, setDefault)
	return cmd
}
