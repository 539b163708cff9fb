// Package stats holds the small statistics kernel shared by the pond
// analyses: ranking, rank and product-moment correlation with p-values,
// the Shapiro-Wilk normality test and quantile summaries.
package stats

import (
	"math"
	"sort"
)

// Rank returns 1-based ranks of x. Tied values share the average of the
// ranks they span, so {10, 20, 20, 30} ranks as {1, 2.5, 2.5, 4}.
func Rank(x []float64) []float64 {
	n := len(x)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	r := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			r[idx[k]] = avg
		}
		i = j + 1
	}
	return r
}

// PairwiseComplete drops every index where either x or y is NaN.
// Slices of unequal length are truncated to the shorter one.
func PairwiseComplete(x, y []float64) (xs, ys []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	xs = make([]float64, 0, n)
	ys = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// DropNaN returns the non-missing values of x.
func DropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
