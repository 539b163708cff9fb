package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/KaramelBytes/pondstat-cli/internal/instrument"
	"github.com/spf13/cobra"
)

var (
	uvOut        outputFlags
	uvAverage    bool
	uvCmpAverage bool
)

var uvvisCmd = &cobra.Command{
	Use:   "uvvis",
	Short: "UV/Vis absorbance spectra",
}

var uvvisCombineCmd = &cobra.Command{
	Use:   "combine <files...>",
	Short: "Combine UV/Vis exports (SERIES_ddmmyy file names) into one spectra table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args, ".csv", ".CSV", ".txt")
		if err != nil {
			return err
		}
		var spectra []*instrument.Spectrum
		for _, path := range files {
			sp, err := instrument.ReadUVVisFile(path, locationPrefix())
			if err != nil {
				return err
			}
			logger.WithField("file", path).WithField("points", len(sp.Wavelength)).Debug("spectrum loaded")
			spectra = append(spectra, sp)
		}
		pts := instrument.CombineSpectra(spectra)
		name := "uvvis_combined.csv"
		if uvAverage {
			pts = instrument.AverageSpectra(pts)
			name = "uvvis_average.csv"
		}
		return uvOut.emit(name, "uv/vis spectra", len(pts), func(w io.Writer) error {
			return instrument.WriteSpectra(w, pts)
		})
	},
}

var uvvisCompareCmd = &cobra.Command{
	Use:   "compare <inflow.csv> <outflow.csv>",
	Short: "Correlate two spectra tables on matching dates and wavelengths",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := readSpectraFile(args[0])
		if err != nil {
			return err
		}
		b, err := readSpectraFile(args[1])
		if err != nil {
			return err
		}
		if uvCmpAverage {
			a, b = instrument.AverageSpectra(a), instrument.AverageSpectra(b)
		}
		c := instrument.CompareSpectra(a, b)
		if c.Pairs == 0 {
			fmt.Fprintln(os.Stderr, "⚠ Warning: the two tables share no date and wavelength")
		}
		name := fmt.Sprintf("uvvis_compare_%s_%s.md", stem(args[0]), stem(args[1]))
		return uvOut.emit(name, "uv/vis comparison", c.Pairs, func(w io.Writer) error {
			_, err := io.WriteString(w, c.Markdown())
			return err
		})
	},
}

func readSpectraFile(path string) ([]instrument.SpectrumPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spectra table: %w", err)
	}
	defer f.Close()
	pts, err := instrument.ReadSpectra(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pts, nil
}

func init() {
	rootCmd.AddCommand(uvvisCmd)
	uvvisCmd.AddCommand(uvvisCombineCmd)
	uvvisCmd.AddCommand(uvvisCompareCmd)
	uvOut.bind(uvvisCombineCmd, false)
	uvOut.bind(uvvisCompareCmd, false)
	uvvisCombineCmd.Flags().BoolVar(&uvAverage, "average", false, "average replicates per location, date and wavelength")
	uvvisCompareCmd.Flags().BoolVar(&uvCmpAverage, "average", true, "average each table per location, date and wavelength first")
}
