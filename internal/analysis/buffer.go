package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
	"github.com/KaramelBytes/pondstat-cli/internal/stats"
)

// BufferSummary is the five-number summary of one variable's percent
// reductions.
type BufferSummary struct {
	Var string
	stats.FiveNumber
}

// BufferResult holds the per-date inflow/outflow comparison. Table has,
// for every variable V, the columns V_<inflow>, V_<outflow>, V_diff and
// V_pct, one row per date on which either location was sampled.
type BufferResult struct {
	Inflow, Outflow string
	Vars            []string
	Table           *dataset.Table
	Summary         []BufferSummary
}

// BufferEffect compares the inflow and outflow locations of the pond. Rows
// of t are matched by their group label; several rows for the same date
// and location are averaged. For every date diff = in - out and
// pct = (in - out) / in * 100, NaN when either side is missing or in is 0.
func BufferEffect(t *dataset.Table, inflow, outflow string, vars []string) (*BufferResult, error) {
	if t == nil {
		return nil, &ConfigError{Reason: "table is nil"}
	}
	if inflow == "" || outflow == "" || inflow == outflow {
		return nil, &ConfigError{Reason: fmt.Sprintf("need two distinct locations, got %q and %q", inflow, outflow)}
	}
	if !t.HasGroups() {
		return nil, &ConfigError{Table: t.Name, Reason: "rows carry no location labels"}
	}
	if err := validateVars(t.Name, t, vars); err != nil {
		return nil, err
	}

	type acc struct{ sum, cnt []float64 }
	side := map[string]map[int64]*acc{inflow: {}, outflow: {}}
	days := map[int64]bool{}
	data := columns(t, vars)
	for i := 0; i < t.Len(); i++ {
		bucket, ok := side[t.Group(i)]
		if !ok {
			continue
		}
		d := dataset.DayNumber(t.Dates[i])
		days[d] = true
		a := bucket[d]
		if a == nil {
			a = &acc{sum: make([]float64, len(vars)), cnt: make([]float64, len(vars))}
			bucket[d] = a
		}
		for j, col := range data {
			if v := col[i]; !math.IsNaN(v) {
				a.sum[j] += v
				a.cnt[j]++
			}
		}
	}
	if len(side[inflow]) == 0 || len(side[outflow]) == 0 {
		return nil, &ConfigError{Table: t.Name, Reason: fmt.Sprintf("no rows for location %q or %q", inflow, outflow)}
	}
	order := make([]int64, 0, len(days))
	for d := range days {
		order = append(order, d)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	var cols []string
	for _, v := range vars {
		cols = append(cols, v+"_"+inflow, v+"_"+outflow, v+"_diff", v+"_pct")
	}
	out := dataset.New(t.Name, cols...)
	for _, v := range vars {
		if u := t.Units[v]; u != "" {
			out.Units[v+"_"+inflow] = u
			out.Units[v+"_"+outflow] = u
			out.Units[v+"_diff"] = u
		}
		out.Units[v+"_pct"] = "%"
	}
	mean := func(a *acc, j int) float64 {
		if a == nil || a.cnt[j] == 0 {
			return math.NaN()
		}
		return a.sum[j] / a.cnt[j]
	}
	pcts := make([][]float64, len(vars))
	row := make([]float64, len(cols))
	for _, d := range order {
		for j := range vars {
			in, o := mean(side[inflow][d], j), mean(side[outflow][d], j)
			diff := in - o
			pct := math.NaN()
			if !math.IsNaN(diff) && in != 0 {
				pct = diff / in * 100
			}
			row[4*j], row[4*j+1], row[4*j+2], row[4*j+3] = in, o, diff, pct
			pcts[j] = append(pcts[j], pct)
		}
		if err := out.AppendRow(dataset.DayDate(d), "", row); err != nil {
			return nil, err
		}
	}

	res := &BufferResult{Inflow: inflow, Outflow: outflow, Vars: append([]string(nil), vars...), Table: out}
	for j, v := range vars {
		res.Summary = append(res.Summary, BufferSummary{Var: v, FiveNumber: stats.Summarize(pcts[j])})
	}
	return res, nil
}
