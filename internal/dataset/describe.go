package dataset

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/KaramelBytes/pondstat-cli/internal/stats"
)

// DefaultOutlierThreshold is the robust |z| above which a value is flagged.
const DefaultOutlierThreshold = 3.5

// Report is a markdown-friendly overview of a table.
type Report struct {
	Name     string
	Rows     int
	From, To time.Time
	Cols     []ColumnSummary
	Groups   []GroupSummary
	Warnings []string
}

// ColumnSummary holds the descriptive statistics of one numeric column.
type ColumnSummary struct {
	Name    string
	Unit    string
	NonNull int
	Missing int
	Min     float64
	Max     float64
	Mean    float64
	Median  float64
	Std     float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
}

// GroupSummary is the per-location row count and column means.
type GroupSummary struct {
	Key   string
	Size  int
	Means map[string]float64
}

// Describe summarises every column of t. threshold <= 0 uses
// DefaultOutlierThreshold.
func Describe(t *Table, threshold float64) *Report {
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}
	r := &Report{Name: t.Name, Rows: t.Len()}
	for i, d := range t.Dates {
		if i == 0 || d.Before(r.From) {
			r.From = d
		}
		if i == 0 || d.After(r.To) {
			r.To = d
		}
	}
	for _, c := range t.Columns {
		vals := t.values[c]
		cs := ColumnSummary{Name: c, Unit: t.Units[c], OutlierThreshold: threshold}
		// Welford
		var mean, m2 float64
		cs.Min, cs.Max = math.Inf(1), math.Inf(-1)
		for _, v := range vals {
			if math.IsNaN(v) {
				cs.Missing++
				continue
			}
			cs.NonNull++
			delta := v - mean
			mean += delta / float64(cs.NonNull)
			m2 += delta * (v - mean)
			cs.Min = math.Min(cs.Min, v)
			cs.Max = math.Max(cs.Max, v)
		}
		if cs.NonNull == 0 {
			cs.Min, cs.Max, cs.Mean, cs.Median, cs.Std = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
			r.Warnings = append(r.Warnings, fmt.Sprintf("column %s has no values", c))
			r.Cols = append(r.Cols, cs)
			continue
		}
		cs.Mean = mean
		if cs.NonNull > 1 {
			cs.Std = math.Sqrt(m2 / float64(cs.NonNull-1))
		}
		med, mad := stats.MedianMAD(vals)
		cs.Median = med
		if mad > 0 {
			for _, v := range vals {
				if math.IsNaN(v) {
					continue
				}
				z := 0.6745 * (v - med) / mad
				if az := math.Abs(z); az > threshold {
					cs.OutliersCount++
					if az > cs.OutliersMaxAbsZ {
						cs.OutliersMaxAbsZ = az
					}
				}
			}
		}
		if miss := float64(cs.Missing) / float64(len(vals)); miss > 0.5 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("column %s is %.0f%% missing", c, miss*100))
		}
		r.Cols = append(r.Cols, cs)
	}
	for _, g := range t.GroupNames() {
		gs := GroupSummary{Key: g, Means: map[string]float64{}}
		sum := make([]float64, len(t.Columns))
		cnt := make([]int, len(t.Columns))
		for i := 0; i < t.Len(); i++ {
			if t.Group(i) != g {
				continue
			}
			gs.Size++
			for j, c := range t.Columns {
				if v := t.values[c][i]; !math.IsNaN(v) {
					sum[j] += v
					cnt[j]++
				}
			}
		}
		for j, c := range t.Columns {
			if cnt[j] > 0 {
				gs.Means[c] = sum[j] / float64(cnt[j])
			}
		}
		r.Groups = append(r.Groups, gs)
	}
	return r
}

// Markdown renders the report in the bracketed-section style used by the
// other reports.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	if r.Rows > 0 {
		b.WriteString(fmt.Sprintf("Dates: %s .. %s\n", r.From.Format("2006-01-02"), r.To.Format("2006-01-02")))
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		name := c.Name
		if c.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		missPct := 0.0
		if total := c.NonNull + c.Missing; total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: non-null %d, missing %.1f%%", name, c.NonNull, missPct))
		if c.NonNull > 0 {
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, median %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Median, c.Std))
			if c.OutliersCount > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f (max |z|≈%.2f)", c.OutliersCount, c.OutlierThreshold, c.OutliersMaxAbsZ))
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			for _, c := range r.Cols {
				if m, ok := g.Means[c.Name]; ok {
					b.WriteString(fmt.Sprintf("  • %s: mean %.4g\n", c.Name, m))
				}
			}
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}
