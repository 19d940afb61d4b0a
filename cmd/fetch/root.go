package fetch

import (
	"github.com/ValentinKolb/dDAP/cmd/util"
	"github.com/ValentinKolb/dDAP/rpc/client"
	"github.com/spf13/cobra"
)

var (
	dapClient client.IDAPClient

	// FetchCommands represents the client command group
	FetchCommands = &cobra.Command{
		Use:               "fetch",
		Short:             "Request objects from a DAP server",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	// Add client flags to the fetch command
	util.SetupClientFlags(FetchCommands)

	// Add subcommands
	FetchCommands.AddCommand(dasCmd)
	FetchCommands.AddCommand(ddsCmd)
	FetchCommands.AddCommand(ddxCmd)
	FetchCommands.AddCommand(verCmd)
	FetchCommands.AddCommand(dataCmd)
	FetchCommands.AddCommand(perfTestCmd)
}

// setupClient initializes the DAP client
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	dapClient, err = client.NewDAPClient(util.GetClientConfig())
	return err
}
