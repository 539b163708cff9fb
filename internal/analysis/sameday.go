package analysis

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
	"github.com/KaramelBytes/pondstat-cli/internal/stats"
)

// Method names a correlation coefficient.
type Method string

const (
	// MethodAuto picks Pearson when every column passes the normality test
	// and Spearman otherwise.
	MethodAuto     Method = ""
	MethodPearson  Method = "pearson"
	MethodSpearman Method = "spearman"
)

// ParseMethod accepts "auto", "pearson" or "spearman" (case-sensitive).
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "auto":
		return MethodAuto, nil
	case string(MethodPearson):
		return MethodPearson, nil
	case string(MethodSpearman):
		return MethodSpearman, nil
	}
	return MethodAuto, fmt.Errorf("unknown correlation method %q (use auto, pearson or spearman)", s)
}

// SameDayOptions configures SameDayCorrelate.
type SameDayOptions struct {
	// NormalityAlpha is the Shapiro-Wilk threshold; 0 means 0.05.
	NormalityAlpha float64
	// SignificanceLevel is the strict p-value threshold; 0 means 0.05.
	SignificanceLevel float64
	Method            Method
}

// CorrMatrix is a symmetric correlation matrix over table columns.
// Only the strict lower triangle (i > j) is meant for display.
type CorrMatrix struct {
	Method            Method
	Columns           []string
	SignificanceLevel float64
	NormalityAlpha    float64

	Coef   [][]float64
	PValue [][]float64
	N      [][]int
	// Normality per column. PValue is NaN when the column could not be
	// tested (fewer than 3 values or constant).
	Normality []stats.Normality
}

// Significant reports whether the lower-triangle cell (i, j) is
// significant. Cells on or above the diagonal never are.
func (m *CorrMatrix) Significant(i, j int) bool {
	if i <= j {
		return false
	}
	return stats.Significant(m.PValue[i][j], m.SignificanceLevel)
}

// SameDayCorrelate correlates every pair of cols on the rows of t. With
// MethodAuto every column is tested with Shapiro-Wilk first: if all of
// them look normal (p > NormalityAlpha) the matrix uses Pearson, otherwise
// Spearman. Pairs with fewer than two complete observations get a NaN
// coefficient and p = 1.
func SameDayCorrelate(t *dataset.Table, cols []string, opt SameDayOptions) (*CorrMatrix, error) {
	if t == nil {
		return nil, &ConfigError{Reason: "table is nil"}
	}
	if err := validateVars(t.Name, t, cols); err != nil {
		return nil, err
	}
	normAlpha, err := levelOrDefault(opt.NormalityAlpha, "normality level")
	if err != nil {
		return nil, err
	}
	alpha, err := levelOrDefault(opt.SignificanceLevel, "significance level")
	if err != nil {
		return nil, err
	}

	data := columns(t, cols)
	m := &CorrMatrix{
		Method:            opt.Method,
		Columns:           append([]string(nil), cols...),
		SignificanceLevel: alpha,
		NormalityAlpha:    normAlpha,
		Coef:              make([][]float64, len(cols)),
		PValue:            make([][]float64, len(cols)),
		N:                 make([][]int, len(cols)),
		Normality:         make([]stats.Normality, len(cols)),
	}
	allNormal := true
	for i, col := range data {
		vals := stats.DropNaN(col)
		res, err := stats.ShapiroWilk(vals)
		if err != nil {
			res = stats.Normality{N: len(vals), W: math.NaN(), PValue: math.NaN()}
		}
		m.Normality[i] = res
		if math.IsNaN(res.PValue) || res.PValue <= normAlpha {
			allNormal = false
		}
	}
	if m.Method == MethodAuto {
		m.Method = MethodSpearman
		if allNormal {
			m.Method = MethodPearson
		}
	}
	corr := stats.Spearman
	if m.Method == MethodPearson {
		corr = stats.Pearson
	}

	for i := range cols {
		m.Coef[i] = make([]float64, len(cols))
		m.PValue[i] = make([]float64, len(cols))
		m.N[i] = make([]int, len(cols))
	}
	for i := range cols {
		m.Coef[i][i] = 1
		m.N[i][i] = m.Normality[i].N
		for j := 0; j < i; j++ {
			xs, ys := stats.PairwiseComplete(data[i], data[j])
			r := stats.Result{N: len(xs), Coef: math.NaN(), PValue: 1}
			if len(xs) >= 2 {
				r = corr(xs, ys)
			}
			m.Coef[i][j], m.Coef[j][i] = r.Coef, r.Coef
			m.PValue[i][j], m.PValue[j][i] = r.PValue, r.PValue
			m.N[i][j], m.N[j][i] = r.N, r.N
		}
	}
	return m, nil
}

func levelOrDefault(v float64, what string) (float64, error) {
	if v == 0 {
		return DefaultSignificanceLevel, nil
	}
	if !(v > 0 && v < 1) {
		return 0, &ConfigError{Reason: fmt.Sprintf("%s %v outside (0, 1)", what, v)}
	}
	return v, nil
}
