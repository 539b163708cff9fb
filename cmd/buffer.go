package cmd

import (
	"io"

	"github.com/KaramelBytes/pondstat-cli/internal/analysis"
	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	bufTable   tableFlags
	bufOut     outputFlags
	bufInflow  string
	bufOutflow string
	bufVars    []string
)

var bufferCmd = &cobra.Command{
	Use:   "buffer <pond.csv>",
	Short: "Inflow vs outflow reduction per date (buffer effect of the pond)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := bufOut.resolvedFormat()
		if err != nil {
			return err
		}
		t, err := bufTable.read(args[0], configLayout())
		if err != nil {
			return err
		}
		if t.HasGroups() {
			t = dataset.AverageReplicates(t, locationPrefix())
		}
		vars := bufVars
		if len(vars) == 0 {
			vars = t.Columns
		}
		res, err := analysis.BufferEffect(t, bufInflow, bufOutflow, vars)
		if err != nil {
			return err
		}
		name := "buffer_" + stem(args[0]) + "." + format
		return bufOut.emit(name, "buffer effect", res.Table.Len(), func(w io.Writer) error {
			if format == "csv" {
				return dataset.WriteCSV(w, res.Table, dataset.WriteOptions{})
			}
			_, err := io.WriteString(w, res.Markdown())
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(bufferCmd)
	bufTable.bind(bufferCmd, "", "pond table", "Datum", "Probe")
	bufOut.bind(bufferCmd, true)
	bufferCmd.Flags().StringVar(&bufInflow, "inflow", "AP", "inflow location label")
	bufferCmd.Flags().StringVar(&bufOutflow, "outflow", "SP", "outflow location label")
	bufferCmd.Flags().StringSliceVar(&bufVars, "vars", nil, "variables to compare (default: every numeric column)")
}
