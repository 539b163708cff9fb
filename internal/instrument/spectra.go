package instrument

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/pondstat-cli/internal/stats"
)

// AverageEEMs averages replicate matrices cell by cell per location and
// date, ignoring NaN readings. Replicates must share both wavelength axes.
// The result is sorted by location, then date; its Sample.Series is the
// location.
func AverageEEMs(eems []*EEM) ([]*EEM, error) {
	type acc struct {
		first *EEM
		sum   [][]float64
		cnt   [][]int
	}
	groups := map[string]*acc{}
	var keys []string
	for _, m := range eems {
		if m.Sample.Location == "" || m.Sample.Date.IsZero() {
			return nil, fmt.Errorf("eem without sample name: %w", ErrSampleName)
		}
		k := m.Sample.Key()
		a := groups[k]
		if a == nil {
			a = &acc{first: m, sum: make([][]float64, len(m.Excitation)), cnt: make([][]int, len(m.Excitation))}
			for i := range a.sum {
				a.sum[i] = make([]float64, len(m.Emission))
				a.cnt[i] = make([]int, len(m.Emission))
			}
			groups[k] = a
			keys = append(keys, k)
		} else if !sameAxis(a.first.Excitation, m.Excitation) || !sameAxis(a.first.Emission, m.Emission) {
			return nil, fmt.Errorf("%s and %s: wavelength axes differ", a.first.Sample.Series, m.Sample.Series)
		}
		for i, row := range m.Intensity {
			for j, v := range row {
				if !math.IsNaN(v) {
					a.sum[i][j] += v
					a.cnt[i][j]++
				}
			}
		}
	}
	sort.Strings(keys)
	out := make([]*EEM, 0, len(keys))
	for _, k := range keys {
		a := groups[k]
		s := a.first.Sample
		avg := &EEM{
			Sample:     Sample{Series: s.Location, Location: s.Location, Date: s.Date},
			Excitation: append([]float64(nil), a.first.Excitation...),
			Emission:   append([]float64(nil), a.first.Emission...),
			Intensity:  make([][]float64, len(a.sum)),
		}
		for i := range a.sum {
			avg.Intensity[i] = make([]float64, len(a.sum[i]))
			for j := range a.sum[i] {
				avg.Intensity[i][j] = math.NaN()
				if a.cnt[i][j] > 0 {
					avg.Intensity[i][j] = a.sum[i][j] / float64(a.cnt[i][j])
				}
			}
		}
		out = append(out, avg)
	}
	return out, nil
}

// dayOf truncates t to its calendar date in UTC so it can key a map.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameAxis(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type spectrumKey struct {
	loc  string
	day  time.Time
	wave float64
}

// AverageSpectra averages absorbance and percent absorbed per location,
// date and wavelength. The result is sorted by location, date, wavelength
// and Sample is set to the location.
func AverageSpectra(pts []SpectrumPoint) []SpectrumPoint {
	type acc struct {
		abs, pct   float64
		nAbs, nPct int
	}
	groups := map[spectrumKey]*acc{}
	var keys []spectrumKey
	for _, p := range pts {
		k := spectrumKey{loc: p.Location, day: dayOf(p.Date), wave: p.Wavelength}
		a := groups[k]
		if a == nil {
			a = &acc{}
			groups[k] = a
			keys = append(keys, k)
		}
		if !math.IsNaN(p.Absorbance) {
			a.abs += p.Absorbance
			a.nAbs++
		}
		if !math.IsNaN(p.PercentAbsorbed) {
			a.pct += p.PercentAbsorbed
			a.nPct++
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.loc != b.loc {
			return a.loc < b.loc
		}
		if !a.day.Equal(b.day) {
			return a.day.Before(b.day)
		}
		return a.wave < b.wave
	})
	out := make([]SpectrumPoint, 0, len(keys))
	for _, k := range keys {
		a := groups[k]
		p := SpectrumPoint{Sample: k.loc, Location: k.loc, Date: k.day, Wavelength: k.wave, Absorbance: math.NaN(), PercentAbsorbed: math.NaN()}
		if a.nAbs > 0 {
			p.Absorbance = a.abs / float64(a.nAbs)
		}
		if a.nPct > 0 {
			p.PercentAbsorbed = a.pct / float64(a.nPct)
		}
		out = append(out, p)
	}
	return out
}

// DateCorrelation is the inflow/outflow agreement on one sampling date.
type DateCorrelation struct {
	Date        time.Time
	N           int
	AbsorbanceR float64
	PercentR    float64
}

// SpectraComparison summarises how closely two locations' spectra agree.
type SpectraComparison struct {
	A, B        string
	Pairs       int
	AbsorbanceR float64
	PercentR    float64
	// R2 is the squared Pearson r of absorbance.
	R2     float64
	ByDate []DateCorrelation
}

// CompareSpectra joins two spectra tables on date and wavelength (dates
// or wavelengths present on one side only are dropped) and computes
// Pearson correlations of absorbance and percent absorbed, overall and
// per date.
func CompareSpectra(a, b []SpectrumPoint) SpectraComparison {
	index := map[spectrumKey][]int{}
	for i, p := range b {
		k := spectrumKey{day: dayOf(p.Date), wave: p.Wavelength}
		index[k] = append(index[k], i)
	}
	cmp := SpectraComparison{A: locationName(a), B: locationName(b)}
	var aAbs, bAbs, aPct, bPct []float64
	byDate := map[time.Time]*[4][]float64{}
	var dates []time.Time
	for _, p := range a {
		day := dayOf(p.Date)
		for _, j := range index[spectrumKey{day: day, wave: p.Wavelength}] {
			q := b[j]
			aAbs, bAbs = append(aAbs, p.Absorbance), append(bAbs, q.Absorbance)
			aPct, bPct = append(aPct, p.PercentAbsorbed), append(bPct, q.PercentAbsorbed)
			d := byDate[day]
			if d == nil {
				d = &[4][]float64{}
				byDate[day] = d
				dates = append(dates, day)
			}
			d[0], d[1] = append(d[0], p.Absorbance), append(d[1], q.Absorbance)
			d[2], d[3] = append(d[2], p.PercentAbsorbed), append(d[3], q.PercentAbsorbed)
		}
	}
	cmp.Pairs = len(aAbs)
	cmp.AbsorbanceR = pearson(aAbs, bAbs)
	cmp.PercentR = pearson(aPct, bPct)
	cmp.R2 = cmp.AbsorbanceR * cmp.AbsorbanceR

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for _, d := range dates {
		v := byDate[d]
		cmp.ByDate = append(cmp.ByDate, DateCorrelation{
			Date:        d,
			N:           len(v[0]),
			AbsorbanceR: pearson(v[0], v[1]),
			PercentR:    pearson(v[2], v[3]),
		})
	}
	return cmp
}

func pearson(x, y []float64) float64 {
	xs, ys := stats.PairwiseComplete(x, y)
	return stats.Pearson(xs, ys).Coef
}

func locationName(pts []SpectrumPoint) string {
	if len(pts) == 0 {
		return ""
	}
	return pts[0].Location
}

// Markdown renders the comparison.
func (c SpectraComparison) Markdown() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[UV/VIS COMPARISON: %s vs %s]\n", c.A, c.B))
	b.WriteString(fmt.Sprintf("Matched points: %d\n", c.Pairs))
	b.WriteString(fmt.Sprintf("Absorbance r: %s\n", formatR(c.AbsorbanceR)))
	b.WriteString(fmt.Sprintf("Percent absorbed r: %s\n", formatR(c.PercentR)))
	b.WriteString(fmt.Sprintf("Absorbance R²: %s\n", formatR(c.R2)))
	if len(c.ByDate) > 0 {
		b.WriteString("\n[PER DATE]\n")
		b.WriteString("| Date | n | Absorbance r | Percent absorbed r |\n| --- | ---: | ---: | ---: |\n")
		for _, d := range c.ByDate {
			b.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n", d.Date.Format("2006-01-02"), d.N, formatR(d.AbsorbanceR), formatR(d.PercentR)))
		}
	}
	return b.String()
}

func formatR(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

// TickLabels labels every max(len/10, 1)-th axis value with its rounded
// integer and leaves the others empty.
func TickLabels(values []float64) []string {
	step := len(values) / 10
	if step < 1 {
		step = 1
	}
	out := make([]string, len(values))
	for i, v := range values {
		if i%step == 0 {
			out[i] = fmt.Sprintf("%.0f", v)
		}
	}
	return out
}
