package instrument

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// RF6000Header starts the data block of an RF-6000 text export.
const RF6000Header = `"EX Wavelength/EM Wavelength"`

// ErrNoEEMHeader is returned when an export has no data block.
var ErrNoEEMHeader = errors.New("no \"EX Wavelength/EM Wavelength\" header line")

// EEM is an excitation-emission matrix: Intensity[i][j] is measured at
// Excitation[i] and Emission[j]. Missing readings are NaN.
type EEM struct {
	Sample     Sample
	Excitation []float64
	Emission   []float64
	Intensity  [][]float64
}

// ReadRF6000File reads an RF-6000 export and attaches the sample parsed
// from its file name when the name follows the SERIES_ddmmyy convention.
func ReadRF6000File(path string, prefixLen int) (*EEM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rf6000 export: %w", err)
	}
	defer f.Close()
	m, err := ReadRF6000(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s, err := ParseSampleName(path, prefixLen); err == nil {
		m.Sample = s
	}
	return m, nil
}

// ReadRF6000 parses the text export of a Shimadzu RF-6000. Everything
// before the header line is instrument metadata and skipped. Rows shorter
// than the header are padded with NaN, longer ones truncated; blank lines
// are ignored.
func ReadRF6000(r io.Reader) (*EEM, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	found := false
	line := 0
	for sc.Scan() {
		line++
		if strings.HasPrefix(sc.Text(), RF6000Header) {
			found = true
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read rf6000 export: %w", err)
	}
	if !found {
		return nil, ErrNoEEMHeader
	}

	m := &EEM{}
	for _, h := range nonEmpty(strings.Split(strings.TrimSpace(sc.Text()), ","))[1:] {
		v, err := strconv.ParseFloat(strings.Trim(h, `"`), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: emission wavelength %q: %w", line, h, err)
		}
		m.Emission = append(m.Emission, v)
	}
	width := len(m.Emission) + 1
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := nonEmpty(strings.Split(text, ","))
		vals := make([]float64, width)
		for i := range vals {
			if i >= len(fields) {
				vals[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(strings.Trim(fields[i], `"`), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: value %q: %w", line, fields[i], err)
			}
			vals[i] = v
		}
		m.Excitation = append(m.Excitation, vals[0])
		m.Intensity = append(m.Intensity, vals[1:])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read rf6000 export: %w", err)
	}
	return m, nil
}

func nonEmpty(fields []string) []string {
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// WriteCSV writes the matrix in the layout of the export's data block:
// one header row of emission wavelengths, one row per excitation.
func (m *EEM) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{strings.Trim(RF6000Header, `"`)}
	for _, em := range m.Emission {
		header = append(header, formatNumber(em))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, ex := range m.Excitation {
		rec := []string{formatNumber(ex)}
		for _, v := range m.Intensity[i] {
			rec = append(rec, formatNumber(v))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEEMTable writes several matrices into one long CSV with the sample
// columns in front, the layout used for combined and averaged exports.
func WriteEEMTable(w io.Writer, eems []*EEM) error {
	if len(eems) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	header := []string{"Series", "Location", "Sample_Date", strings.Trim(RF6000Header, `"`)}
	for _, em := range eems[0].Emission {
		header = append(header, formatNumber(em))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, m := range eems {
		if !sameAxis(m.Emission, eems[0].Emission) {
			return fmt.Errorf("sample %s: emission axis differs from %s", m.Sample.Series, eems[0].Sample.Series)
		}
		for i, ex := range m.Excitation {
			rec := []string{m.Sample.Series, m.Sample.Location, formatDate(m.Sample.Date), formatNumber(ex)}
			for _, v := range m.Intensity[i] {
				rec = append(rec, formatNumber(v))
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Markdown renders the matrix on the tick grid of TickLabels, so a large
// EEM stays readable as a table.
func (m *EEM) Markdown() string {
	var b strings.Builder
	title := m.Sample.Series
	if title == "" {
		title = "sample"
	}
	if !m.Sample.Date.IsZero() {
		title += " " + m.Sample.Date.Format("2006-01-02")
	}
	b.WriteString(fmt.Sprintf("[FLUORESCENCE EEM: %s]\n", title))
	b.WriteString(fmt.Sprintf("%d excitation x %d emission wavelengths; rows EX [nm], columns EM [nm]\n\n", len(m.Excitation), len(m.Emission)))
	xl := TickLabels(m.Emission)
	yl := TickLabels(m.Excitation)
	var cols []int
	b.WriteString("| EX \\ EM |")
	for j, l := range xl {
		if l != "" {
			cols = append(cols, j)
			b.WriteString(" " + l + " |")
		}
	}
	b.WriteString("\n| --- |")
	for range cols {
		b.WriteString(" ---: |")
	}
	b.WriteString("\n")
	for i, l := range yl {
		if l == "" {
			continue
		}
		b.WriteString("| " + l + " |")
		for _, j := range cols {
			v := m.Intensity[i][j]
			if math.IsNaN(v) {
				b.WriteString("  |")
				continue
			}
			b.WriteString(fmt.Sprintf(" %.1f |", v))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
