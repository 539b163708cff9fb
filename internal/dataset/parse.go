package dataset

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// sniffDelimiter picks tab for .tsv files, otherwise ';' when the header
// line has more semicolons than commas (German spreadsheet exports).
func sniffDelimiter(path, header string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	if i := strings.IndexByte(header, '\n'); i >= 0 {
		header = header[:i]
	}
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

var dateLayouts = []string{
	"2006-01-02", time.RFC3339, "02.01.2006", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "02.01.2006 15:04", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// stripCensored removes detection-limit markers: "<0.5" reads as 0.5
// and ">5.0" as 5.0.
func stripCensored(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range []string{"<=", ">=", "≤", "≥", "<", ">"} {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(strings.TrimPrefix(s, p))
		}
	}
	return s
}

func parseNumeric(s string, opt ReadOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "na") {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// DefaultUnitTargets are the header unit conversions applied unless the
// configuration says otherwise, as "from=to" pairs.
var DefaultUnitTargets = []string{"g/L=mg/L", "ug/L=mg/L", "µg/L=mg/L", "°F=°C"}

var unitConversions = map[string]func(float64) float64{
	"g/L>mg/L":  func(x float64) float64 { return x * 1000 },
	"ug/L>mg/L": func(x float64) float64 { return x / 1000 },
	"µg/L>mg/L": func(x float64) float64 { return x / 1000 },
	"mg/L>g/L":  func(x float64) float64 { return x / 1000 },
	"°F>°C":     func(x float64) float64 { return (x - 32) * 5.0 / 9.0 },
	"°C>°F":     func(x float64) float64 { return x*9.0/5.0 + 32 },
}

// ParseUnitTargets turns "from=to" pairs into ReadOptions.UnitTargets.
// Only conversions the reader knows are accepted.
func ParseUnitTargets(pairs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range pairs {
		from, to, ok := strings.Cut(strings.TrimSpace(p), "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("unit target %q: want from=to", p)
		}
		if _, known := unitConversions[from+">"+to]; !known {
			return nil, fmt.Errorf("unit target %q: no conversion from %s to %s", p, from, to)
		}
		out[from] = to
	}
	return out, nil
}

func normalizeUnit(x float64, unit string, targets map[string]string) (float64, string, bool) {
	target, ok := targets[unit]
	if !ok {
		return x, unit, false
	}
	conv, ok := unitConversions[unit+">"+target]
	if !ok {
		return x, unit, false
	}
	return conv(x), target, true
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // Nitrate (mg/L)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // Temp [°C]
	{regexp.MustCompile(`^(.*?)[_\s-]+(mg/L|g/L|ug/L|µg/L|µS/cm|°[CF]|mm|%|ppm|ppb)$`), 2},
}

// SplitUnits separates a header such as "Nitrate (mg/L)" into its name
// and unit. Headers without a recognisable unit come back unchanged.
func SplitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
