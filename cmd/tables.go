package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// tableFlags holds the loader flags of one input table. Commands that read
// two tables bind two sets under different prefixes.
type tableFlags struct {
	dateCol   string
	layout    string
	groupCol  string
	delimiter string
	decimal   string
	thousands string
	sheet     string
	skipRows  int
	censored  bool
	units     []string
}

// bind registers the flags on c. An empty prefix gives plain names
// (--date-col); "pond" gives --pond-date-col and so on.
func (f *tableFlags) bind(c *cobra.Command, prefix, what, dateCol, groupCol string) {
	name := func(s string) string {
		if prefix == "" {
			return s
		}
		return prefix + "-" + s
	}
	fl := c.Flags()
	fl.StringVar(&f.dateCol, name("date-col"), dateCol, what+": date column")
	fl.StringVar(&f.layout, name("date-layout"), "", what+": Go time layout of the date column (default from config, auto-detect if empty)")
	fl.StringVar(&f.groupCol, name("group-col"), groupCol, what+": sample/location label column")
	fl.StringVar(&f.delimiter, name("delimiter"), "", what+": CSV delimiter: ',' | ';' | 'tab' (by extension if omitted)")
	fl.StringVar(&f.decimal, name("decimal"), "", what+": decimal separator: '.'|'comma' (auto-detect if omitted)")
	fl.StringVar(&f.thousands, name("thousands"), "", what+": thousands separator: ','|'.'|'space' (auto-detect if omitted)")
	fl.StringVar(&f.sheet, name("sheet"), "", what+": XLSX sheet name (first sheet if omitted)")
	fl.IntVar(&f.skipRows, name("skip-rows"), 0, what+": lines to skip before the header")
	fl.BoolVar(&f.censored, name("censored"), true, what+": read '<0.5' / '>5.0' detection-limit values as the limit")
	fl.StringSliceVar(&f.units, name("unit"), nil, what+": header unit conversion from=to, e.g. g/L=mg/L (added to unit_targets from config)")
}

func (f *tableFlags) options(defaultLayout string) (dataset.ReadOptions, error) {
	opt := dataset.ReadOptions{
		DateColumn:  f.dateCol,
		DateLayout:  f.layout,
		GroupColumn: f.groupCol,
		Censored:    f.censored,
		SkipRows:    f.skipRows,
	}
	if opt.DateLayout == "" {
		opt.DateLayout = defaultLayout
	}
	var pairs []string
	if cfg != nil {
		pairs = append(pairs, cfg.UnitTargets...)
	}
	targets, err := dataset.ParseUnitTargets(append(pairs, f.units...))
	if err != nil {
		return opt, err
	}
	opt.UnitTargets = targets
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	return opt, nil
}

// read loads a CSV/TSV or XLSX file, choosing the reader by extension.
func (f *tableFlags) read(path, defaultLayout string) (*dataset.Table, error) {
	opt, err := f.options(defaultLayout)
	if err != nil {
		return nil, err
	}
	var t *dataset.Table
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		t, err = dataset.ReadXLSX(path, f.sheet, opt)
	} else {
		t, err = dataset.ReadCSV(path, opt)
	}
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"file": path, "rows": t.Len(), "columns": len(t.Columns)}).Debug("table loaded")
	return t, nil
}

func configLayout() string {
	if cfg != nil {
		return cfg.DateLayout
	}
	return ""
}

func locationPrefix() int {
	if cfg != nil && cfg.LocationPrefix > 0 {
		return cfg.LocationPrefix
	}
	return 2
}
