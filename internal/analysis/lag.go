// Package analysis computes the correlation products of the pond study:
// lagged pond/weather cross-correlation, the same-day correlation matrix
// and the inflow/outflow buffer effect.
package analysis

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
	"github.com/KaramelBytes/pondstat-cli/internal/stats"
)

// DefaultSignificanceLevel applies when LagOptions.SignificanceLevel is zero.
const DefaultSignificanceLevel = 0.05

// LagOptions selects what LagCorrelate evaluates.
type LagOptions struct {
	// Lags are signed day offsets. A weather row dated D is compared with
	// pond rows dated D+lag. Output follows this order.
	Lags        []int
	PondVars    []string
	WeatherVars []string
	// SignificanceLevel is the strict p-value threshold; 0 means 0.05.
	SignificanceLevel float64
	// Workers bounds how many lags are evaluated concurrently; <= 0 means 1.
	Workers int
	// Logger receives per-lag debug fields. Nil discards them.
	Logger logrus.FieldLogger
}

// LagCell is one (pond variable, lag) entry of a LagMatrix.
type LagCell struct {
	N           int
	Coef        float64
	PValue      float64
	Significant bool
}

// Defined reports whether the cell has a coefficient.
func (c LagCell) Defined() bool { return !math.IsNaN(c.Coef) }

// LagMatrix holds the Spearman coefficients of every pond variable against
// one weather variable, indexed [pond variable][lag] in request order.
// Undefined cells carry NaN coefficient and p-value and are never
// significant.
type LagMatrix struct {
	WeatherVar        string
	PondVars          []string
	Lags              []int
	SignificanceLevel float64

	Coef        [][]float64
	PValue      [][]float64
	Significant [][]bool
	N           [][]int
}

func newLagMatrix(weatherVar string, pondVars []string, lags []int, alpha float64) *LagMatrix {
	m := &LagMatrix{
		WeatherVar:        weatherVar,
		PondVars:          pondVars,
		Lags:              lags,
		SignificanceLevel: alpha,
		Coef:              make([][]float64, len(pondVars)),
		PValue:            make([][]float64, len(pondVars)),
		Significant:       make([][]bool, len(pondVars)),
		N:                 make([][]int, len(pondVars)),
	}
	for i := range pondVars {
		m.Coef[i] = make([]float64, len(lags))
		m.PValue[i] = make([]float64, len(lags))
		m.Significant[i] = make([]bool, len(lags))
		m.N[i] = make([]int, len(lags))
	}
	return m
}

func (m *LagMatrix) set(i, j int, c LagCell) {
	m.Coef[i][j] = c.Coef
	m.PValue[i][j] = c.PValue
	m.Significant[i][j] = c.Significant
	m.N[i][j] = c.N
}

// At returns the cell at row i (pond variable) and column j (lag).
func (m *LagMatrix) At(i, j int) LagCell {
	return LagCell{N: m.N[i][j], Coef: m.Coef[i][j], PValue: m.PValue[i][j], Significant: m.Significant[i][j]}
}

// Cell looks a cell up by pond variable name and lag value.
func (m *LagMatrix) Cell(pondVar string, lag int) (LagCell, bool) {
	i, j := indexOf(m.PondVars, pondVar), -1
	for k, l := range m.Lags {
		if l == lag {
			j = k
			break
		}
	}
	if i < 0 || j < 0 {
		return LagCell{}, false
	}
	return m.At(i, j), true
}

// LagResult is the output of LagCorrelate: one matrix per weather variable
// in request order.
type LagResult struct {
	Lags              []int
	PondVars          []string
	WeatherVars       []string
	SignificanceLevel float64
	// Pairs is the number of aligned (pond row, weather row) pairs per lag
	// before pairwise deletion.
	Pairs    []int
	Matrices []*LagMatrix
}

// Matrix returns the matrix for a weather variable.
func (r *LagResult) Matrix(weatherVar string) (*LagMatrix, bool) {
	for _, m := range r.Matrices {
		if m.WeatherVar == weatherVar {
			return m, true
		}
	}
	return nil, false
}

// LagCorrelate computes, for every lag, weather variable and pond variable,
// Spearman's rho between the pond series and the weather series shifted
// forward by lag days. Rows are aligned by exact calendar date; duplicate
// dates on either side pair as a cross product. Missing values are dropped
// pairwise per variable pair, and fewer than two pairs leave the cell
// undefined. Configuration problems return a *ConfigError before any work
// is done; insufficient data never is an error.
func LagCorrelate(pond, weather *dataset.Table, opt LagOptions) (*LagResult, error) {
	return LagCorrelateContext(context.Background(), pond, weather, opt)
}

// LagCorrelateContext is LagCorrelate with cancellation between lags.
func LagCorrelateContext(ctx context.Context, pond, weather *dataset.Table, opt LagOptions) (*LagResult, error) {
	alpha, err := validateLagRequest(pond, weather, opt)
	if err != nil {
		return nil, err
	}
	workers := opt.Workers
	if workers <= 0 {
		workers = 1
	}
	log := opt.Logger
	if log == nil {
		log = discardLogger()
	}

	res := &LagResult{
		Lags:              append([]int(nil), opt.Lags...),
		PondVars:          append([]string(nil), opt.PondVars...),
		WeatherVars:       append([]string(nil), opt.WeatherVars...),
		SignificanceLevel: alpha,
		Pairs:             make([]int, len(opt.Lags)),
	}
	for _, w := range res.WeatherVars {
		res.Matrices = append(res.Matrices, newLagMatrix(w, res.PondVars, res.Lags, alpha))
	}

	pondCols := columns(pond, res.PondVars)
	weatherCols := columns(weather, res.WeatherVars)
	weatherByDay := make(map[int64][]int, weather.Len())
	for i, d := range weather.Dates {
		k := dataset.DayNumber(d)
		weatherByDay[k] = append(weatherByDay[k], i)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for j, lag := range res.Lags {
		j, lag := j, lag
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pi, wi := alignLag(pond.Dates, weatherByDay, lag)
			res.Pairs[j] = len(pi)
			for w, wcol := range weatherCols {
				y := gather(wcol, wi)
				for p, pcol := range pondCols {
					res.Matrices[w].set(p, j, evaluate(gather(pcol, pi), y, alpha))
				}
			}
			log.WithFields(logrus.Fields{"lag": lag, "pairs": len(pi)}).Debug("lag evaluated")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("lag correlation: %w", err)
	}
	return res, nil
}

// alignLag pairs every pond row dated D with every weather row dated D-lag.
func alignLag(pondDates []time.Time, weatherByDay map[int64][]int, lag int) (pondRows, weatherRows []int) {
	for i, d := range pondDates {
		for _, w := range weatherByDay[dataset.DayNumber(d)-int64(lag)] {
			pondRows = append(pondRows, i)
			weatherRows = append(weatherRows, w)
		}
	}
	return pondRows, weatherRows
}

func evaluate(x, y []float64, alpha float64) LagCell {
	xs, ys := stats.PairwiseComplete(x, y)
	n := len(xs)
	if n < 2 {
		return LagCell{N: n, Coef: math.NaN(), PValue: math.NaN()}
	}
	r := stats.Spearman(xs, ys)
	return LagCell{N: n, Coef: r.Coef, PValue: r.PValue, Significant: stats.Significant(r.PValue, alpha)}
}

func gather(col []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = col[r]
	}
	return out
}

func columns(t *dataset.Table, names []string) [][]float64 {
	out := make([][]float64, len(names))
	for i, n := range names {
		out[i], _ = t.Column(n)
	}
	return out
}

func validateLagRequest(pond, weather *dataset.Table, opt LagOptions) (float64, error) {
	for _, side := range []struct {
		name string
		t    *dataset.Table
	}{{"pond", pond}, {"weather", weather}} {
		if side.t == nil {
			return 0, &ConfigError{Table: side.name, Reason: "table is nil"}
		}
		if !side.t.HasDateKey() {
			return 0, &ConfigError{Table: side.name, Err: ErrNoDateKey}
		}
	}
	if len(opt.Lags) == 0 {
		return 0, &ConfigError{Reason: "no lags requested"}
	}
	seen := map[int]bool{}
	for _, l := range opt.Lags {
		if seen[l] {
			return 0, &ConfigError{Reason: fmt.Sprintf("duplicate lag %d", l)}
		}
		seen[l] = true
	}
	if err := validateVars("pond", pond, opt.PondVars); err != nil {
		return 0, err
	}
	if err := validateVars("weather", weather, opt.WeatherVars); err != nil {
		return 0, err
	}
	return levelOrDefault(opt.SignificanceLevel, "significance level")
}

func validateVars(side string, t *dataset.Table, vars []string) error {
	if len(vars) == 0 {
		return &ConfigError{Table: side, Reason: "no variables requested"}
	}
	seen := map[string]bool{}
	for _, v := range vars {
		if seen[v] {
			return &ConfigError{Table: side, Column: v, Reason: "requested twice"}
		}
		seen[v] = true
		if !t.HasColumn(v) {
			return &ConfigError{Table: side, Column: v, Reason: "column not found"}
		}
	}
	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
