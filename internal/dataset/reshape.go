package dataset

import (
	"fmt"
	"math"
	"sort"
)

// AverageReplicates collapses replicate samples: rows are grouped by
// calendar date and by the first prefixLen characters of their group label
// (so "AP01" and "AP02" both count as location "AP"), and every column is
// averaged over its non-missing values. prefixLen <= 0 keeps the full label.
// The result is sorted by date, then location.
func AverageReplicates(t *Table, prefixLen int) *Table {
	type key struct {
		day int64
		loc string
	}
	type acc struct {
		sum []float64
		cnt []int
	}
	groups := map[key]*acc{}
	var keys []key
	for i := 0; i < t.Len(); i++ {
		loc := t.Group(i)
		if prefixLen > 0 && len(loc) > prefixLen {
			loc = loc[:prefixLen]
		}
		k := key{day: DayNumber(t.Dates[i]), loc: loc}
		a := groups[k]
		if a == nil {
			a = &acc{sum: make([]float64, len(t.Columns)), cnt: make([]int, len(t.Columns))}
			groups[k] = a
			keys = append(keys, k)
		}
		for j, c := range t.Columns {
			v := t.values[c][i]
			if math.IsNaN(v) {
				continue
			}
			a.sum[j] += v
			a.cnt[j]++
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].day == keys[j].day {
			return keys[i].loc < keys[j].loc
		}
		return keys[i].day < keys[j].day
	})

	out := New(t.Name, t.Columns...)
	for k, v := range t.Units {
		out.Units[k] = v
	}
	vals := make([]float64, len(t.Columns))
	for _, k := range keys {
		a := groups[k]
		for j := range vals {
			vals[j] = math.NaN()
			if a.cnt[j] > 0 {
				vals[j] = a.sum[j] / float64(a.cnt[j])
			}
		}
		_ = out.AppendRow(DayDate(k.day), k.loc, vals)
	}
	return out
}

// ResampleDaily aggregates sub-daily rows into one row per calendar day,
// spanning the first to the last day without gaps. Columns listed in
// sumCols are summed (an empty day sums to 0); every other column is
// averaged (an empty day is NaN). Values are rounded to 3 decimals and
// group labels are dropped.
func ResampleDaily(t *Table, sumCols []string) (*Table, error) {
	isSum := map[string]bool{}
	for _, c := range sumCols {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("resample: unknown column %q", c)
		}
		isSum[c] = true
	}
	out := New(t.Name, t.Columns...)
	for k, v := range t.Units {
		out.Units[k] = v
	}
	if t.Len() == 0 {
		return out, nil
	}
	first, last := DayNumber(t.Dates[0]), DayNumber(t.Dates[0])
	for _, d := range t.Dates {
		n := DayNumber(d)
		if n < first {
			first = n
		}
		if n > last {
			last = n
		}
	}
	days := int(last-first) + 1
	sum := make([][]float64, len(t.Columns))
	cnt := make([][]int, len(t.Columns))
	for j := range t.Columns {
		sum[j] = make([]float64, days)
		cnt[j] = make([]int, days)
	}
	for i, d := range t.Dates {
		di := int(DayNumber(d) - first)
		for j, c := range t.Columns {
			v := t.values[c][i]
			if math.IsNaN(v) {
				continue
			}
			sum[j][di] += v
			cnt[j][di]++
		}
	}
	vals := make([]float64, len(t.Columns))
	for di := 0; di < days; di++ {
		for j, c := range t.Columns {
			switch {
			case isSum[c]:
				vals[j] = Round(sum[j][di], 3)
			case cnt[j][di] == 0:
				vals[j] = math.NaN()
			default:
				vals[j] = Round(sum[j][di]/float64(cnt[j][di]), 3)
			}
		}
		_ = out.AppendRow(DayDate(first+int64(di)), "", vals)
	}
	return out, nil
}

// Round rounds to the given number of decimal places the way numpy does:
// scale by 10^places, round half to even on the binary value, scale back.
// 0.0125 becomes 0.012. NaN and infinities are returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow10(int(places))
	return math.RoundToEven(v*scale) / scale
}
