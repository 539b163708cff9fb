package stats

import (
	"math"
	"sort"
)

// FiveNumber is the box-plot summary of a sample.
type FiveNumber struct {
	N      int
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Summarize computes the five-number summary of the non-missing values in
// vals. All fields except N are NaN for an empty sample.
func Summarize(vals []float64) FiveNumber {
	cp := DropNaN(vals)
	if len(cp) == 0 {
		nan := math.NaN()
		return FiveNumber{Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan}
	}
	sort.Float64s(cp)
	return FiveNumber{
		N:      len(cp),
		Min:    cp[0],
		Q1:     Quantile(cp, 0.25),
		Median: Quantile(cp, 0.5),
		Q3:     Quantile(cp, 0.75),
		Max:    cp[len(cp)-1],
	}
}

// MedianMAD computes median and MAD (median absolute deviation) of the
// non-missing values.
func MedianMAD(vals []float64) (median, mad float64) {
	cp := DropNaN(vals)
	if len(cp) == 0 {
		return 0, 0
	}
	sort.Float64s(cp)
	median = Quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = Quantile(dev, 0.5)
	return
}

// Quantile interpolates linearly between the closest ranks of an
// ascending sample.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
