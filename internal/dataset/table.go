// Package dataset holds date-keyed numeric tables and the loaders,
// reshapers and writers the pond analyses run on.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Table is a set of numeric columns keyed by a calendar date per row.
// Missing cells are NaN. Groups optionally labels each row with a
// sampling location or series name.
type Table struct {
	Name    string
	Dates   []time.Time
	Groups  []string
	Columns []string
	Units   map[string]string

	values map[string][]float64
}

// New returns an empty table with the given numeric columns.
func New(name string, columns ...string) *Table {
	t := &Table{
		Name:   name,
		Units:  map[string]string{},
		values: make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		t.Columns = append(t.Columns, c)
		t.values[c] = nil
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Dates) }

// AppendRow adds one row. vals must follow the order of t.Columns.
func (t *Table) AppendRow(date time.Time, group string, vals []float64) error {
	if len(vals) != len(t.Columns) {
		return fmt.Errorf("append row: got %d values for %d columns", len(vals), len(t.Columns))
	}
	t.Dates = append(t.Dates, date)
	t.Groups = append(t.Groups, group)
	for i, c := range t.Columns {
		t.values[c] = append(t.values[c], vals[i])
	}
	return nil
}

// Column returns the values of a column. The slice is shared with the
// table and must not be modified.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.values[name]
	return v, ok
}

// HasColumn reports whether name is one of the table's numeric columns.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.values[name]
	return ok
}

// Value returns one cell, NaN when the column is unknown.
func (t *Table) Value(col string, row int) float64 {
	v, ok := t.values[col]
	if !ok || row < 0 || row >= len(v) {
		return math.NaN()
	}
	return v[row]
}

// HasDateKey reports whether every row carries a usable date.
func (t *Table) HasDateKey() bool {
	for _, c := range t.Columns {
		if len(t.values[c]) != len(t.Dates) {
			return false
		}
	}
	for _, d := range t.Dates {
		if d.IsZero() {
			return false
		}
	}
	return true
}

// Group returns the label of row i, "" when the row has none.
func (t *Table) Group(i int) string {
	if i < len(t.Groups) {
		return t.Groups[i]
	}
	return ""
}

// HasGroups reports whether any row carries a group label.
func (t *Table) HasGroups() bool {
	for _, g := range t.Groups {
		if g != "" {
			return true
		}
	}
	return false
}

// GroupNames returns the distinct group labels in ascending order.
func (t *Table) GroupNames() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, g := range t.Groups {
		if _, ok := seen[g]; ok || g == "" {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Select returns a copy holding only the rows for which keep returns true.
func (t *Table) Select(keep func(row int) bool) *Table {
	out := New(t.Name, t.Columns...)
	for k, v := range t.Units {
		out.Units[k] = v
	}
	vals := make([]float64, len(t.Columns))
	for i := 0; i < t.Len(); i++ {
		if !keep(i) {
			continue
		}
		for j, c := range t.Columns {
			vals[j] = t.values[c][i]
		}
		_ = out.AppendRow(t.Dates[i], t.Group(i), vals)
	}
	return out
}

// Window returns the rows dated within [from, to], both days inclusive.
// A zero bound is open.
func Window(t *Table, from, to time.Time) *Table {
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if !from.IsZero() {
		lo = DayNumber(from)
	}
	if !to.IsZero() {
		hi = DayNumber(to)
	}
	return t.Select(func(row int) bool {
		d := DayNumber(t.Dates[row])
		return d >= lo && d <= hi
	})
}

// DayNumber maps a timestamp to its calendar day (in the timestamp's own
// location) counted from 1970-01-01. Two timestamps share a day number
// exactly when they fall on the same calendar date.
func DayNumber(ts time.Time) int64 {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// DayDate is the inverse of DayNumber, returning midnight UTC.
func DayDate(day int64) time.Time {
	return time.Unix(day*86400, 0).UTC()
}
