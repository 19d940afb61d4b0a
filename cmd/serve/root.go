package serve

import (
	cmdUtil "github.com/ValentinKolb/dDAP/cmd/util"
	"github.com/ValentinKolb/dDAP/lib/store/lstore"
	"github.com/ValentinKolb/dDAP/rpc/common"
	"github.com/ValentinKolb/dDAP/rpc/server"
	"github.com/ValentinKolb/dDAP/rpc/transport/http"
	"github.com/spf13/cobra"
)

var (
	serveCmdConfig common.ServerConfig
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the DAP server",
		Long:    `Start the DAP server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DDAP_<flag> (e.g. DDAP_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cmdUtil.SetupServerFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig = cmdUtil.GetServerConfig()
	return serveCmdConfig.Validate()
}

// run starts the DAP server
func run(_ *cobra.Command, _ []string) error {
	datasets, err := lstore.NewLocalStore(serveCmdConfig.DataDir)
	if err != nil {
		return err
	}

	registry, err := cmdUtil.NewRegistry()
	if err != nil {
		return err
	}

	serv, err := server.NewDAPServer(
		serveCmdConfig,
		http.NewHttpServerTransport(),
		datasets,
		registry,
	)
	if err != nil {
		return err
	}

	return serv.Serve()
}
