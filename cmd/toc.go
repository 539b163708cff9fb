package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/KaramelBytes/pondstat-cli/internal/instrument"
	"github.com/spf13/cobra"
)

var (
	tocOut  outputFlags
	tocCols instrument.TOCColumns
)

var tocCmd = &cobra.Command{
	Use:   "toc",
	Short: "Shimadzu TOC-L exports (NPOC)",
}

var tocCleanCmd = &cobra.Command{
	Use:   "clean <export.csv>",
	Short: "Drop failed and repeated injections and write NPOC per sample and date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open toc export: %w", err)
		}
		defer f.Close()
		rows, err := instrument.ReadTOC(f, tocCols)
		if err != nil {
			return err
		}
		samples, st, err := instrument.CleanTOC(rows, tocCols)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Kept %d of %d rows (%d zero std dev, %d repeated, %d without date)\n",
			len(samples), st.Input, st.ZeroStdDev, st.DuplicateStd, st.NoDate)
		name := "npoc_" + stem(args[0]) + ".csv"
		return tocOut.emit(name, "NPOC table", len(samples), func(w io.Writer) error {
			return instrument.WriteTOC(w, samples)
		})
	},
}

func init() {
	rootCmd.AddCommand(tocCmd)
	tocCmd.AddCommand(tocCleanCmd)
	tocOut.bind(tocCleanCmd, false)
	tocCleanCmd.Flags().StringVar(&tocCols.Sample, "sample-col", "Probenname", "sample name column")
	tocCleanCmd.Flags().StringVar(&tocCols.Result, "result-col", "Ergebnis", "result column (\"NPOC:3,1mg/L\")")
	tocCleanCmd.Flags().StringVar(&tocCols.StdDev, "stddev-col", "Std. Abw. Konz", "concentration standard deviation column")
}
