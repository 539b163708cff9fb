package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Result is a correlation coefficient with its two-sided p-value.
// Coef and PValue are NaN when the test is undefined for the input.
type Result struct {
	N      int
	Coef   float64
	PValue float64
}

// Defined reports whether a coefficient could be computed.
func (r Result) Defined() bool { return !math.IsNaN(r.Coef) }

func undefined(n int) Result {
	return Result{N: n, Coef: math.NaN(), PValue: math.NaN()}
}

// Spearman computes Spearman's rank correlation of x and y. Ties get
// average ranks. x and y must already be free of missing values and of
// equal length; use PairwiseComplete first.
func Spearman(x, y []float64) Result {
	n := len(x)
	if n < 2 || len(y) != n {
		return undefined(n)
	}
	rho := clampUnit(stat.Correlation(Rank(x), Rank(y), nil))
	return Result{N: n, Coef: rho, PValue: CorrelationPValue(rho, n)}
}

// Pearson computes the product-moment correlation of x and y with the
// same contract as Spearman.
func Pearson(x, y []float64) Result {
	n := len(x)
	if n < 2 || len(y) != n {
		return undefined(n)
	}
	r := clampUnit(stat.Correlation(x, y, nil))
	return Result{N: n, Coef: r, PValue: CorrelationPValue(r, n)}
}

// CorrelationPValue is the two-sided p-value for the null hypothesis of
// zero correlation, using t = r*sqrt((n-2)/(1-r^2)) on n-2 degrees of
// freedom. It is NaN when r is NaN or n < 3.
func CorrelationPValue(r float64, n int) float64 {
	if math.IsNaN(r) {
		return math.NaN()
	}
	df := float64(n - 2)
	if df <= 0 {
		return math.NaN()
	}
	ar := math.Abs(r)
	if ar >= 1 {
		return 0
	}
	t := ar * math.Sqrt(df/((1-ar)*(1+ar)))
	st := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * st.Survival(t)
	if p > 1 {
		p = 1
	}
	return p
}

// Significant reports p < alpha. An undefined p-value is never significant.
func Significant(p, alpha float64) bool {
	if math.IsNaN(p) {
		return false
	}
	return p < alpha
}

func clampUnit(r float64) float64 {
	switch {
	case math.IsNaN(r) || math.IsInf(r, 0):
		return math.NaN()
	case r > 1:
		return 1
	case r < -1:
		return -1
	}
	return r
}
