package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ValentinKolb/dDAP/cmd/cache"
	"github.com/ValentinKolb/dDAP/cmd/fetch"
	"github.com/ValentinKolb/dDAP/cmd/respond"
	"github.com/ValentinKolb/dDAP/cmd/serve"
	"github.com/ValentinKolb/dDAP/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "ddap",
		Short: "DAP data server",
		Long: fmt.Sprintf(`dDAP (v%s)

A server for the Data Access Protocol written in Go. It answers DAS, DDS,
DDX and data requests for datasets, evaluates server side functions in
constraint expressions and caches their results across processes.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dDAP",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dDAP v%s\n", Version)
		},
	}
	functionsCmd = &cobra.Command{
		Use:   "functions",
		Short: "List the functions that can be called in a constraint expression",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := util.NewRegistry()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tUSAGE\tDESCRIPTION")
			for _, def := range registry.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", def.Name, def.Usage, def.Description)
			}
			return w.Flush()
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(respond.RespondCmd)
	RootCmd.AddCommand(cache.CacheCommands)
	RootCmd.AddCommand(fetch.FetchCommands)
	RootCmd.AddCommand(functionsCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
