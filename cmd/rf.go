package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/KaramelBytes/pondstat-cli/internal/instrument"
	"github.com/spf13/cobra"
)

var (
	rfOut   outputFlags
	rfQuiet bool
)

var rfCmd = &cobra.Command{
	Use:   "rf",
	Short: "Shimadzu RF-6000 fluorescence (EEM) exports",
}

var rfConvertCmd = &cobra.Command{
	Use:   "convert <files...>",
	Short: "Convert RF-6000 text exports into one long CSV (or Markdown heat tables)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eems, err := readEEMs(args)
		if err != nil {
			return err
		}
		return emitEEMs(eems, "eem_combined")
	},
}

var rfAverageCmd = &cobra.Command{
	Use:   "average <files...>",
	Short: "Average replicate EEMs per sampling location and date",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eems, err := readEEMs(args)
		if err != nil {
			return err
		}
		avg, err := instrument.AverageEEMs(eems)
		if err != nil {
			return err
		}
		return emitEEMs(avg, "eem_average")
	},
}

func readEEMs(args []string) ([]*instrument.EEM, error) {
	files, err := expandInputs(args, ".txt", ".TXT", ".csv")
	if err != nil {
		return nil, err
	}
	out := make([]*instrument.EEM, 0, len(files))
	for i, path := range files {
		if !rfQuiet {
			fmt.Fprintf(os.Stderr, "[%d/%d] Processing %s...\n", i+1, len(files), path)
		}
		m, err := instrument.ReadRF6000File(path, locationPrefix())
		if err != nil {
			return nil, err
		}
		if m.Sample.Series == "" {
			m.Sample.Series = stem(path)
		}
		out = append(out, m)
	}
	return out, nil
}

func emitEEMs(eems []*instrument.EEM, base string) error {
	format, err := rfOut.resolvedFormat()
	if err != nil {
		return err
	}
	rows := 0
	for _, m := range eems {
		rows += len(m.Excitation)
	}
	return rfOut.emit(base+"."+format, "fluorescence matrices", rows, func(w io.Writer) error {
		if format == "csv" {
			return instrument.WriteEEMTable(w, eems)
		}
		for i, m := range eems {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, m.Markdown()); err != nil {
				return err
			}
		}
		return nil
	})
}

func init() {
	rootCmd.AddCommand(rfCmd)
	rfCmd.AddCommand(rfConvertCmd)
	rfCmd.AddCommand(rfAverageCmd)
	for _, c := range []*cobra.Command{rfConvertCmd, rfAverageCmd} {
		rfOut.bind(c, true)
		c.Flags().BoolVarP(&rfQuiet, "quiet", "q", false, "suppress progress output")
	}
}
