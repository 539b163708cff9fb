// Package instrument reads the raw exports of the lab instruments used in
// the pond study (Shimadzu RF-6000 fluorescence, UV/Vis spectrometer,
// TOC-L analyser) and aggregates them per sampling location and date.
package instrument

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultLocationPrefix is how many leading characters of a series name
// identify the sampling location ("AP01" -> "AP").
const DefaultLocationPrefix = 2

// ErrSampleName is returned for file or sample names that do not follow
// the SERIES_ddmmyy convention.
var ErrSampleName = errors.New("sample name must look like AP01_150625")

// Sample identifies one measured sample.
type Sample struct {
	Series   string // e.g. AP01
	Location string // e.g. AP
	Date     time.Time
}

// Key groups samples by location and calendar date.
func (s Sample) Key() string {
	return s.Location + "_" + s.Date.Format("2006-01-02")
}

var sampleNameRe = regexp.MustCompile(`^([A-Za-z]+\d*)_(\d{6})$`)

// ParseSampleName reads names such as "AP01_150625" or a path like
// "RF/AP01_150625.txt": the series before the underscore, the sampling
// date as ddmmyy after it. prefixLen <= 0 uses DefaultLocationPrefix.
func ParseSampleName(name string, prefixLen int) (Sample, error) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	m := sampleNameRe.FindStringSubmatch(base)
	if m == nil {
		return Sample{}, fmt.Errorf("%q: %w", base, ErrSampleName)
	}
	d, err := time.Parse("020106", m[2])
	if err != nil {
		return Sample{}, fmt.Errorf("%q: date %s: %w", base, m[2], ErrSampleName)
	}
	return Sample{Series: m[1], Location: locationOf(m[1], prefixLen), Date: d}, nil
}

func locationOf(series string, prefixLen int) string {
	if prefixLen <= 0 {
		prefixLen = DefaultLocationPrefix
	}
	if len(series) <= prefixLen {
		return series
	}
	return series[:prefixLen]
}
