package instrument

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TOCColumns names the columns of a TOC-L export that CleanTOC needs.
type TOCColumns struct {
	Sample string // default "Probenname"
	Result string // default "Ergebnis"
	StdDev string // default "Std. Abw. Konz"
}

func (c TOCColumns) withDefaults() TOCColumns {
	if c.Sample == "" {
		c.Sample = "Probenname"
	}
	if c.Result == "" {
		c.Result = "Ergebnis"
	}
	if c.StdDev == "" {
		c.StdDev = "Std. Abw. Konz"
	}
	return c
}

// TOCRow is one raw export row keyed by header name.
type TOCRow map[string]string

// ReadTOC reads a comma separated TOC-L export and checks that the
// columns CleanTOC needs are present.
func ReadTOC(r io.Reader, cols TOCColumns) ([]TOCRow, error) {
	cols = cols.withDefaults()
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read toc header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	for _, need := range []string{cols.Sample, cols.Result, cols.StdDev} {
		found := false
		for _, h := range header {
			if h == need {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("toc export: missing column %q", need)
		}
	}
	var rows []TOCRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read toc line %d: %w", line, err)
		}
		row := TOCRow{}
		for i, h := range header {
			if h != "" && i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TOCSample is one cleaned NPOC measurement.
type TOCSample struct {
	Name   string
	Group  string // leading letters and digits, e.g. AP01
	Date   time.Time
	NPOC   float64 // mg/L
	StdDev float64
}

// TOCCleanStats counts the rows CleanTOC discarded, by reason.
type TOCCleanStats struct {
	Input        int
	ZeroStdDev   int
	DuplicateStd int
	NoDate       int
}

var (
	tocDateRe  = regexp.MustCompile(`_(\d{6})`)
	tocGroupRe = regexp.MustCompile(`^[A-Z]+\d+`)
)

// CleanTOC turns raw export rows into NPOC samples. Rows are sorted by
// sample name; rows whose concentration standard deviation is 0 are
// instrument failures and dropped, as are later rows repeating an already
// seen standard deviation (repeat injections of the same vial). The
// "NPOC:" prefix and "mg/L" unit are stripped from the result, the date is
// read from the _ddmmyy part of the sample name.
func CleanTOC(rows []TOCRow, cols TOCColumns) ([]TOCSample, TOCCleanStats, error) {
	cols = cols.withDefaults()
	st := TOCCleanStats{Input: len(rows)}
	sorted := append([]TOCRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i][cols.Sample] < sorted[j][cols.Sample] })

	seenStd := map[string]bool{}
	var out []TOCSample
	for _, row := range sorted {
		name := row[cols.Sample]
		std, err := parseTOCNumber(row[cols.StdDev])
		if err != nil {
			return nil, st, fmt.Errorf("sample %s: std dev: %w", name, err)
		}
		if std == 0 {
			st.ZeroStdDev++
			continue
		}
		key := "NaN"
		if !math.IsNaN(std) {
			key = strconv.FormatFloat(std, 'g', -1, 64)
		}
		if seenStd[key] {
			st.DuplicateStd++
			continue
		}
		seenStd[key] = true

		res := strings.ReplaceAll(row[cols.Result], "NPOC:", "")
		res = strings.ReplaceAll(res, "mg/L", "")
		npoc, err := parseTOCNumber(res)
		if err != nil {
			return nil, st, fmt.Errorf("sample %s: result %q: %w", name, row[cols.Result], err)
		}
		m := tocDateRe.FindStringSubmatch(name)
		if m == nil {
			st.NoDate++
			continue
		}
		d, err := time.Parse("020106", m[1])
		if err != nil {
			st.NoDate++
			continue
		}
		out = append(out, TOCSample{
			Name:   name,
			Group:  tocGroupRe.FindString(name),
			Date:   d,
			NPOC:   npoc,
			StdDev: std,
		})
	}
	return out, st, nil
}

func parseTOCNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

// WriteTOC writes cleaned samples in the pond table layout so they can be
// loaded as a date-keyed table grouped by sample.
func WriteTOC(w io.Writer, samples []TOCSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Datum", "Probe", "Probenname", "NPOC (mg/L)", "StdDev"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range samples {
		rec := []string{s.Date.Format("02.01.2006"), s.Group, s.Name, formatNumber(s.NPOC), formatNumber(s.StdDev)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write toc row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
