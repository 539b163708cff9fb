package instrument

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// uvvisSkipLines is the metadata preamble of a UV/Vis export.
const uvvisSkipLines = 2

// Spectrum is one UV/Vis absorbance scan.
type Spectrum struct {
	Sample     Sample
	Wavelength []float64 // nm
	Absorbance []float64
}

// PercentAbsorbed converts an absorbance to the share of absorbed
// radiation: (1 - 10^-A) * 100.
func PercentAbsorbed(a float64) float64 {
	return (1 - math.Pow(10, -a)) * 100
}

// ReadUVVisFile reads a UV/Vis export; the file name must carry the sample
// (SERIES_ddmmyy).
func ReadUVVisFile(path string, prefixLen int) (*Spectrum, error) {
	s, err := ParseSampleName(path, prefixLen)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open uv/vis export: %w", err)
	}
	defer f.Close()
	sp, err := ReadUVVis(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sp.Sample = s
	return sp, nil
}

// ReadUVVis parses a semicolon separated export with decimal commas. The
// first two lines are skipped; every following line holds wavelength and
// absorbance.
func ReadUVVis(r io.Reader) (*Spectrum, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	sp := &Spectrum{}
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read uv/vis export: %w", err)
		}
		line++
		if line <= uvvisSkipLines {
			continue
		}
		if len(rec) < 2 {
			continue
		}
		wl, err := parseDecimalComma(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: wavelength: %w", line, err)
		}
		a, err := parseDecimalComma(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: absorbance: %w", line, err)
		}
		sp.Wavelength = append(sp.Wavelength, wl)
		sp.Absorbance = append(sp.Absorbance, a)
	}
	return sp, nil
}

func parseDecimalComma(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

// SpectrumPoint is one row of the long spectra table.
type SpectrumPoint struct {
	Sample          string // series, or location once averaged
	Location        string
	Date            time.Time
	Wavelength      float64
	Absorbance      float64
	PercentAbsorbed float64
}

// CombineSpectra flattens scans into one table sorted by date, then
// wavelength. Samples measured on the same date keep their input order.
func CombineSpectra(spectra []*Spectrum) []SpectrumPoint {
	var out []SpectrumPoint
	for _, s := range spectra {
		for i, wl := range s.Wavelength {
			a := s.Absorbance[i]
			out = append(out, SpectrumPoint{
				Sample:          s.Sample.Series,
				Location:        s.Sample.Location,
				Date:            s.Sample.Date,
				Wavelength:      wl,
				Absorbance:      a,
				PercentAbsorbed: PercentAbsorbed(a),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Wavelength < out[j].Wavelength
	})
	return out
}

var spectrumHeader = []string{"Sample", "Location", "Date", "Wavelength_nm", "Absorbance", "PercentAbsorbed"}

// WriteSpectra writes points as CSV.
func WriteSpectra(w io.Writer, pts []SpectrumPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(spectrumHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range pts {
		rec := []string{p.Sample, p.Location, formatDate(p.Date), formatNumber(p.Wavelength), formatNumber(p.Absorbance), formatNumber(p.PercentAbsorbed)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write spectrum row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSpectra reads a table written by WriteSpectra. A missing
// PercentAbsorbed column is derived from the absorbance.
func ReadSpectra(r io.Reader) ([]SpectrumPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, need := range []string{"Date", "Wavelength_nm", "Absorbance"} {
		if _, ok := idx[need]; !ok {
			return nil, fmt.Errorf("spectra table: missing column %q", need)
		}
	}
	get := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	var out []SpectrumPoint
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		d, err := time.Parse("2006-01-02", get(rec, "Date"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		p := SpectrumPoint{Sample: get(rec, "Sample"), Location: get(rec, "Location"), Date: d}
		if p.Wavelength, err = parseDecimalComma(get(rec, "Wavelength_nm")); err != nil {
			return nil, fmt.Errorf("row %d: wavelength: %w", row, err)
		}
		if p.Absorbance, err = parseDecimalComma(get(rec, "Absorbance")); err != nil {
			return nil, fmt.Errorf("row %d: absorbance: %w", row, err)
		}
		p.PercentAbsorbed = PercentAbsorbed(p.Absorbance)
		if s := get(rec, "PercentAbsorbed"); s != "" {
			if p.PercentAbsorbed, err = parseDecimalComma(s); err != nil {
				return nil, fmt.Errorf("row %d: percent absorbed: %w", row, err)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func formatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}
