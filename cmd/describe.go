package cmd

import (
	"io"

	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	descTable     tableFlags
	descOut       outputFlags
	descOutlierTh float64
	descAverage   bool
)

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Summarize a CSV/TSV/XLSX measurement table (schema, ranges, outliers, groups)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := descTable.read(args[0], configLayout())
		if err != nil {
			return err
		}
		if descAverage && t.HasGroups() {
			t = dataset.AverageReplicates(t, locationPrefix())
		}
		rep := dataset.Describe(t, descOutlierTh)
		name := stem(args[0]) + ".summary.md"
		return descOut.emit(name, "dataset summary", rep.Rows, func(w io.Writer) error {
			_, err := io.WriteString(w, rep.Markdown())
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	descTable.bind(describeCmd, "", "table", "Datum", "Probe")
	descOut.bind(describeCmd, false)
	describeCmd.Flags().Float64Var(&descOutlierTh, "outlier-threshold", dataset.DefaultOutlierThreshold, "robust |z| threshold for outliers (MAD-based)")
	describeCmd.Flags().BoolVar(&descAverage, "average", false, "average replicate samples per location and date first")
}
