package cmd

import (
	"io"

	"github.com/KaramelBytes/pondstat-cli/internal/analysis"
	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	corrTable   tableFlags
	corrOut     outputFlags
	corrCols    []string
	corrMethod  string
	corrNormAlp float64
	corrAlpha   float64
	corrAverage bool
)

var corrCmd = &cobra.Command{
	Use:   "corr <pond.csv>",
	Short: "Same-day correlation matrix with Shapiro-Wilk method selection",
	Long: `corr tests every column for normality (Shapiro-Wilk). When all columns look
normal the matrix uses Pearson, otherwise Spearman. Significant cells of the
lower triangle are marked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := corrOut.resolvedFormat()
		if err != nil {
			return err
		}
		method, err := analysis.ParseMethod(corrMethod)
		if err != nil {
			return err
		}
		t, err := corrTable.read(args[0], configLayout())
		if err != nil {
			return err
		}
		if corrAverage && t.HasGroups() {
			t = dataset.AverageReplicates(t, locationPrefix())
		}
		cols := corrCols
		opt := analysis.SameDayOptions{
			NormalityAlpha:    corrNormAlp,
			SignificanceLevel: corrAlpha,
			Method:            method,
		}
		if cfg != nil {
			if !cmd.Flags().Changed("cols") {
				cols = cfg.PondVars
			}
			if !cmd.Flags().Changed("normality-alpha") && cfg.NormalityAlpha > 0 {
				opt.NormalityAlpha = cfg.NormalityAlpha
			}
			if !cmd.Flags().Changed("alpha") && cfg.SignificanceLevel > 0 {
				opt.SignificanceLevel = cfg.SignificanceLevel
			}
		}
		m, err := analysis.SameDayCorrelate(t, cols, opt)
		if err != nil {
			return err
		}
		logger.WithField("method", m.Method).Debug("same-day matrix computed")

		name := "corr_" + stem(args[0]) + "." + format
		rows := len(m.Columns) * (len(m.Columns) - 1) / 2
		return corrOut.emit(name, "correlation matrix", rows, func(w io.Writer) error {
			if format == "csv" {
				return m.WriteCSV(w)
			}
			_, err := io.WriteString(w, m.Markdown())
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(corrCmd)
	corrTable.bind(corrCmd, "", "pond table", "Datum", "Probe")
	corrOut.bind(corrCmd, true)
	corrCmd.Flags().StringSliceVar(&corrCols, "cols", nil, "columns to correlate (default pond_vars from config)")
	corrCmd.Flags().StringVar(&corrMethod, "method", "auto", "correlation method: auto | pearson | spearman")
	corrCmd.Flags().Float64Var(&corrNormAlp, "normality-alpha", 0.05, "Shapiro-Wilk alpha; all p above it selects Pearson")
	corrCmd.Flags().Float64Var(&corrAlpha, "alpha", analysis.DefaultSignificanceLevel, "significance level; p must be strictly below it")
	corrCmd.Flags().BoolVar(&corrAverage, "average", true, "average replicate samples per location and date first")
}
