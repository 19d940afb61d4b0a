package fetch

import (
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/rpc/common"
	"github.com/spf13/cobra"
)

var (
	dasCmd  = textCommand("das", common.ObjDAS, "Prints the attributes of a dataset")
	ddsCmd  = textCommand("dds", common.ObjDDS, "Prints the structure of a dataset")
	ddxCmd  = textCommand("ddx", common.ObjDDX, "Prints the XML description of a dataset")
	verCmd  = textCommand("ver", common.ObjVersion, "Prints the version of the server")
	dataCmd = &cobra.Command{
		Use:   "data [dataset] [constraint]",
		Short: "Fetches and decodes the values of a dataset",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dapClient.FetchData(cmd.Context(), args[0], constraintArg(args))
			if err != nil {
				return err
			}
			if err := dap.PrintDDS(os.Stdout, ds, false); err != nil {
				return err
			}
			fmt.Println()
			for _, v := range ds.Vars {
				printValues(os.Stdout, v, "")
			}
			return nil
		},
	}
)

// textCommand creates the command printing one text object
func textCommand(use string, object common.ObjectType, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [dataset] [constraint]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := dapClient.FetchText(cmd.Context(), object, args[0], constraintArg(args))
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
}

func constraintArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

// printValues prints one line per simple variable or array
func printValues(w io.Writer, v dap.Variable, prefix string) {
	name := prefix + v.Name()
	switch t := v.(type) {
	case *dap.Scalar:
		fmt.Fprintf(w, "%s = %v\n", name, t.Value())
	case *dap.Array:
		fmt.Fprintf(w, "%s = %v\n", name, t.Values)
	case *dap.Structure:
		for _, f := range t.Fields() {
			printValues(w, f, name+".")
		}
	case *dap.Sequence:
		for i, row := range t.Rows {
			fmt.Fprintf(w, "%s[%d] = %v\n", name, i, row)
		}
	default:
		fmt.Fprintf(w, "%s: %s\n", name, v.Type())
	}
}
