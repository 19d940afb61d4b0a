package respond

import (
	"fmt"
	"net/http"
	"os"
	"syscall"

	cmdUtil "github.com/ValentinKolb/dDAP/cmd/util"
	"github.com/ValentinKolb/dDAP/lib/store/lstore"
	"github.com/ValentinKolb/dDAP/lib/timeout"
	"github.com/ValentinKolb/dDAP/rpc/common"
	"github.com/ValentinKolb/dDAP/rpc/server"
	"github.com/ValentinKolb/dDAP/rpc/transport/stdio"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	respondConfig  common.ServerConfig
	respondRequest *common.Request

	// RespondCmd answers one request on stdout
	RespondCmd = &cobra.Command{
		Use:   "respond",
		Short: "Write the response to one request to stdout",
		Long: `Write the complete response (status line, headers and body) to one request to stdout and exit.
Logs go to stderr. The command exits with status 1 if the response could not be completed.

Example:
  ddap respond --type dods --dataset ocean/coads --ce 'sst[0:10][0:10]'`,
		PreRunE:       processConfig,
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cmdUtil.SetupServerFlags(RespondCmd)

	key := "type"
	RespondCmd.Flags().String(key, "dds", cmdUtil.WrapString("The requested object (das, dds, dods, ddx, dataddx, ver)"))

	key = "dataset"
	RespondCmd.Flags().String(key, "", cmdUtil.WrapString("Identifier of the dataset (its path below the data directory without .json)"))

	key = "ce"
	RespondCmd.Flags().String(key, "", cmdUtil.WrapString("The constraint expression"))

	key = "if-modified-since"
	RespondCmd.Flags().String(key, "", cmdUtil.WrapString("Answer with 304 if the dataset did not change since this HTTP date (e.g. 'Wed, 10 Jan 2024 12:00:00 GMT')"))

	key = "gzip"
	RespondCmd.Flags().Bool(key, false, cmdUtil.WrapString("The client accepts a gzip encoded body (used together with --compression)"))
}

// processConfig builds the configuration and the request from the flags
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	respondConfig = cmdUtil.GetServerConfig()
	respondConfig.LogToStderr = true
	if err := respondConfig.Validate(); err != nil {
		return err
	}

	dataset := viper.GetString("dataset")
	typ := viper.GetString("type")
	if dataset == "" {
		return fmt.Errorf("--dataset is required")
	}
	if _, object, ok := common.SplitSuffix(dataset + "." + typ); ok {
		respondRequest = common.NewRequest(object, dataset, viper.GetString("ce"))
	} else {
		return fmt.Errorf("invalid type %q (expected one of das, dds, dods, ddx, dataddx, ver)", typ)
	}

	if since := viper.GetString("if-modified-since"); since != "" {
		ts, err := http.ParseTime(since)
		if err != nil {
			return fmt.Errorf("invalid --if-modified-since %q: %v", since, err)
		}
		respondRequest.IfModifiedSince = ts
	}
	respondRequest.AcceptGzip = viper.GetBool("gzip")
	return nil
}

// run answers the request through the stdio transport
func run(_ *cobra.Command, _ []string) error {
	datasets, err := lstore.NewLocalStore(respondConfig.DataDir)
	if err != nil {
		return err
	}
	registry, err := cmdUtil.NewRegistry()
	if err != nil {
		return err
	}

	serv, err := server.NewDAPServer(respondConfig, stdio.NewStdioServerTransport(respondRequest), datasets, registry)
	if err != nil {
		return err
	}

	// the table must know every signal before it is attached to the OS
	signals := timeout.NewSignalTable()
	defer signals.Close()
	if _, err := signals.Register(syscall.SIGALRM, func(os.Signal) {
		fmt.Fprintln(os.Stderr, "received SIGALRM outside of a response")
	}, false); err != nil {
		return err
	}
	for _, sig := range []syscall.Signal{syscall.SIGINT, syscall.SIGTERM} {
		if _, err := signals.Register(sig, func(s os.Signal) {
			fmt.Fprintf(os.Stderr, "interrupted by %s\n", s)
			os.Exit(1)
		}, false); err != nil {
			return err
		}
	}
	signals.Notify()
	serv.UseSignalTable(signals)

	if err := serv.Serve(); err != nil {
		// the error response is already on stdout
		os.Exit(1)
	}
	return nil
}
