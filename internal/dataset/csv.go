package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ReadOptions controls how a delimited file becomes a Table.
type ReadOptions struct {
	// DateColumn names the date key column (matched case-insensitively,
	// units stripped). Required.
	DateColumn string
	// DateLayout is a time.Parse layout; empty tries common layouts.
	DateLayout string
	// GroupColumn optionally names a label column (e.g. sample or location).
	GroupColumn string
	// Delimiter for CSV. If 0, '\t' for .tsv and ',' otherwise.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Censored strips detection-limit markers ("<0.5", ">5.0").
	Censored bool
	// UnitTargets converts header units, e.g. {"g/L":"mg/L", "°F":"°C"};
	// see ParseUnitTargets.
	UnitTargets map[string]string
	// SkipRows discards this many lines before the header.
	SkipRows int
}

// ErrNoDateColumn is returned when the date key column is absent.
var ErrNoDateColumn = errors.New("date column not found")

// ReadCSV loads a delimited file into a Table.
func ReadCSV(path string, opt ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	if opt.Delimiter == 0 {
		head, _ := br.Peek(4096)
		opt.Delimiter = sniffDelimiter(path, string(head))
	}
	return Read(br, filepath.Base(path), opt)
}

// Read loads delimited text from r into a Table named name. Non-key
// columns whose cells are predominantly numeric become table columns;
// text columns are dropped. Empty and unparseable cells are NaN.
func Read(r io.Reader, name string, opt ReadOptions) (*Table, error) {
	if opt.DateColumn == "" {
		return nil, fmt.Errorf("read %s: %w: no date column configured", name, ErrNoDateColumn)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}
	for i := 0; i < opt.SkipRows; i++ {
		if _, err := cr.Read(); err != nil {
			return nil, fmt.Errorf("skip row %d: %w", i+1, err)
		}
	}
	return readRecords(cr.Read, name, opt, false)
}

// readRecords builds a Table from a record source that returns io.EOF when
// exhausted. serialDates also accepts spreadsheet day serials in the date
// column.
func readRecords(next func() ([]string, error), name string, opt ReadOptions, serialDates bool) (*Table, error) {
	header, err := next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %s: empty file: %w", name, ErrNoDateColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	type colAcc struct {
		name   string
		unit   string
		vals   []float64
		numCnt int
		txtCnt int
	}
	dateIdx, groupIdx := -1, -1
	var cols []*colAcc
	colIdx := map[int]*colAcc{}
	for i, h := range header {
		clean, unit := SplitUnits(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case strings.EqualFold(clean, opt.DateColumn):
			dateIdx = i
			continue
		case opt.GroupColumn != "" && strings.EqualFold(clean, opt.GroupColumn):
			groupIdx = i
			continue
		case clean == "":
			continue
		}
		c := &colAcc{name: clean, unit: unit}
		cols = append(cols, c)
		colIdx[i] = c
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("read %s: %w: %q", name, ErrNoDateColumn, opt.DateColumn)
	}
	if opt.GroupColumn != "" && groupIdx < 0 {
		return nil, fmt.Errorf("read %s: group column %q not found", name, opt.GroupColumn)
	}

	var dates []time.Time
	var groups []string
	for row := 1; ; row++ {
		rec, err := next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		if isBlank(rec) {
			row--
			continue
		}
		raw := field(rec, dateIdx)
		d, err := parseDate(raw, opt.DateLayout)
		if err != nil && serialDates {
			d, err = parseSerialDate(raw)
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		dates = append(dates, d)
		groups = append(groups, field(rec, groupIdx))
		for i, c := range colIdx {
			v := field(rec, i)
			if opt.Censored {
				v = stripCensored(v)
			}
			if v == "" {
				c.vals = append(c.vals, math.NaN())
				continue
			}
			x, ok := parseNumeric(v, opt)
			if !ok {
				c.txtCnt++
				c.vals = append(c.vals, math.NaN())
				continue
			}
			c.numCnt++
			if nx, _, okc := normalizeUnit(x, c.unit, opt.UnitTargets); okc {
				x = nx
			}
			c.vals = append(c.vals, x)
		}
	}

	t := New(name)
	t.Dates = dates
	t.Groups = groups
	for _, c := range cols {
		if c.numCnt == 0 || c.numCnt < c.txtCnt {
			continue
		}
		unit := c.unit
		if _, nu, ok := normalizeUnit(0, c.unit, opt.UnitTargets); ok {
			unit = nu
		}
		if t.HasColumn(c.name) {
			return nil, fmt.Errorf("read %s: duplicate column %q", name, c.name)
		}
		t.Columns = append(t.Columns, c.name)
		t.values[c.name] = c.vals
		if unit != "" {
			t.Units[c.name] = unit
		}
	}
	return t, nil
}

func parseDate(s, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if layout != "" {
		d, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
		}
		return d, nil
	}
	if d, ok := parseTimeMaybe(s); ok {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("parse date %q: unrecognised layout", s)
}

// parseSerialDate reads a spreadsheet date serial (days since 1899-12-30,
// fractional part = time of day).
func parseSerialDate(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 1 || f > 2958465 {
		return time.Time{}, fmt.Errorf("parse date %q: not a date serial", s)
	}
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	days := math.Floor(f)
	secs := math.Round((f - days) * 86400)
	return base.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second), nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteOptions controls CSV output.
type WriteOptions struct {
	DateHeader  string // default "Date"
	DateLayout  string // default "2006-01-02"
	GroupHeader string // default "Location"; ignored when the table has no groups
}

// WriteCSV writes t as comma-separated text. Units are appended to the
// headers in parentheses so the file reads back with the same units.
func WriteCSV(w io.Writer, t *Table, opt WriteOptions) error {
	if opt.DateHeader == "" {
		opt.DateHeader = "Date"
	}
	if opt.DateLayout == "" {
		opt.DateLayout = "2006-01-02"
	}
	if opt.GroupHeader == "" {
		opt.GroupHeader = "Location"
	}
	groups := t.HasGroups()
	cw := csv.NewWriter(w)
	header := []string{opt.DateHeader}
	if groups {
		header = append(header, opt.GroupHeader)
	}
	for _, c := range t.Columns {
		if u := t.Units[c]; u != "" {
			c = fmt.Sprintf("%s (%s)", c, u)
		}
		header = append(header, c)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(header))
	for i := 0; i < t.Len(); i++ {
		rec = rec[:0]
		rec = append(rec, t.Dates[i].Format(opt.DateLayout))
		if groups {
			rec = append(rec, t.Group(i))
		}
		for _, c := range t.Columns {
			rec = append(rec, FormatValue(t.values[c][i]))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatValue renders a cell; NaN becomes an empty field.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
