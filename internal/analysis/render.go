package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// undefinedCell is shown where no coefficient exists.
const undefinedCell = "n/a"

// formatCoef rounds a coefficient to two decimals, wrapping significant
// cells in ** so they stand out like the outlined cells of a heatmap.
func formatCoef(v float64, significant bool) string {
	if math.IsNaN(v) {
		return undefinedCell
	}
	s := decimal.NewFromFloat(v).StringFixed(2)
	if s == "-0.00" {
		s = "0.00"
	}
	if significant {
		return "**" + s + "**"
	}
	return s
}

func formatLag(l int) string {
	if l > 0 {
		return "+" + strconv.Itoa(l)
	}
	return strconv.Itoa(l)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}

// Markdown renders the matrix as a table with pond variables as rows and
// lags as columns.
func (m *LagMatrix) Markdown() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[LAG CORRELATION: %s]\n", m.WeatherVar))
	b.WriteString(fmt.Sprintf("Spearman rho, pond variable vs %s shifted by lag days; **bold** = p < %g\n\n", m.WeatherVar, m.SignificanceLevel))
	header := []string{"Pond variable"}
	align := []string{"---"}
	for _, l := range m.Lags {
		header = append(header, formatLag(l))
		align = append(align, "---:")
	}
	writeRow(&b, header)
	writeRow(&b, align)
	for i, p := range m.PondVars {
		row := []string{p}
		for j := range m.Lags {
			row = append(row, formatCoef(m.Coef[i][j], m.Significant[i][j]))
		}
		writeRow(&b, row)
	}
	return b.String()
}

// Markdown renders every matrix followed by the aligned pair counts.
func (r *LagResult) Markdown() string {
	var b strings.Builder
	for i, m := range r.Matrices {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.Markdown())
	}
	if len(r.Pairs) > 0 {
		b.WriteString("\n[ALIGNED ROWS PER LAG]\n")
		for j, l := range r.Lags {
			b.WriteString(fmt.Sprintf("- lag %s: %d\n", formatLag(l), r.Pairs[j]))
		}
	}
	return b.String()
}

// LagCSVHeader is the header of the long-format lag CSV.
var LagCSVHeader = []string{"weather_var", "pond_var", "lag", "n", "rho", "p_value", "significant"}

// WriteCSV writes one line per (weather variable, pond variable, lag).
// Undefined coefficients and p-values are empty fields.
func (r *LagResult) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LagCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, m := range r.Matrices {
		for i, p := range m.PondVars {
			for j, l := range m.Lags {
				rec := []string{
					m.WeatherVar, p, strconv.Itoa(l), strconv.Itoa(m.N[i][j]),
					formatFloat(m.Coef[i][j]), formatFloat(m.PValue[i][j]),
					strconv.FormatBool(m.Significant[i][j]),
				}
				if err := cw.Write(rec); err != nil {
					return fmt.Errorf("write lag row: %w", err)
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Markdown renders the lower triangle of the matrix and the normality
// results that chose the method.
func (m *CorrMatrix) Markdown() string {
	var b strings.Builder
	b.WriteString("[NORMALITY]\n")
	for i, c := range m.Columns {
		nr := m.Normality[i]
		if math.IsNaN(nr.PValue) {
			b.WriteString(fmt.Sprintf("- %s: not testable (n=%d)\n", c, nr.N))
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: Shapiro-Wilk W=%.4f, p=%.4f (n=%d)\n", c, nr.W, nr.PValue, nr.N))
	}
	b.WriteString(fmt.Sprintf("\n[CORRELATIONS: %s]\n", m.Method))
	b.WriteString(fmt.Sprintf("lower triangle; **bold** = p < %g\n\n", m.SignificanceLevel))
	header := []string{""}
	align := []string{"---"}
	for _, c := range m.Columns[:len(m.Columns)-1] {
		header = append(header, c)
		align = append(align, "---:")
	}
	writeRow(&b, header)
	writeRow(&b, align)
	for i := 1; i < len(m.Columns); i++ {
		row := []string{m.Columns[i]}
		for j := 0; j < len(m.Columns)-1; j++ {
			cell := ""
			if j < i {
				cell = formatCoef(m.Coef[i][j], m.Significant(i, j))
			}
			row = append(row, cell)
		}
		writeRow(&b, row)
	}
	return b.String()
}

// WriteCSV writes the lower-triangle pairs in long format.
func (m *CorrMatrix) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"var_a", "var_b", "method", "n", "coef", "p_value", "significant"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 1; i < len(m.Columns); i++ {
		for j := 0; j < i; j++ {
			rec := []string{
				m.Columns[i], m.Columns[j], string(m.Method), strconv.Itoa(m.N[i][j]),
				formatFloat(m.Coef[i][j]), formatFloat(m.PValue[i][j]),
				strconv.FormatBool(m.Significant(i, j)),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write pair row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Markdown renders the percent-reduction summary per variable.
func (r *BufferResult) Markdown() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[BUFFER EFFECT: %s -> %s]\n", r.Inflow, r.Outflow))
	b.WriteString(fmt.Sprintf("percent reduction = (%s - %s) / %s * 100\n\n", r.Inflow, r.Outflow, r.Inflow))
	writeRow(&b, []string{"Variable", "n", "min", "Q1", "median", "Q3", "max"})
	writeRow(&b, []string{"---", "---:", "---:", "---:", "---:", "---:", "---:"})
	for _, s := range r.Summary {
		writeRow(&b, []string{
			s.Var, strconv.Itoa(s.N), formatPct(s.Min), formatPct(s.Q1),
			formatPct(s.Median), formatPct(s.Q3), formatPct(s.Max),
		})
	}
	return b.String()
}

func formatPct(v float64) string {
	if math.IsNaN(v) {
		return undefinedCell
	}
	return decimal.NewFromFloat(v).StringFixed(1)
}
