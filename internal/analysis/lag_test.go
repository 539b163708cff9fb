package analysis

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
)

func june(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }

// series builds a table with one row per day starting on June first,
// columns given in name/values pairs.
func series(t *testing.T, first int, cols map[string][]float64) *dataset.Table {
	t.Helper()
	var names []string
	n := -1
	for k, v := range cols {
		names = append(names, k)
		if n >= 0 {
			require.Len(t, v, n)
		}
		n = len(v)
	}
	tbl := dataset.New("test", names...)
	row := make([]float64, len(names))
	for i := 0; i < n; i++ {
		for j, c := range names {
			row[j] = cols[c][i]
		}
		require.NoError(t, tbl.AppendRow(june(first+i), "", row))
	}
	return tbl
}

func seq(from, n int, f func(int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(from + i)
	}
	return out
}

func TestLagPerfectMonotonicIsSignificant(t *testing.T) {
	pond := series(t, 1, map[string][]float64{
		"Nitrate":   seq(1, 10, func(i int) float64 { return float64(i) }),
		"Phosphate": seq(1, 10, func(i int) float64 { return -float64(i) }),
	})
	weather := series(t, 1, map[string][]float64{
		"Ta_2m": seq(1, 10, func(i int) float64 { return float64(i * i) }),
	})
	res, err := LagCorrelate(pond, weather, LagOptions{
		Lags: []int{0}, PondVars: []string{"Nitrate", "Phosphate"}, WeatherVars: []string{"Ta_2m"},
	})
	require.NoError(t, err)
	m, ok := res.Matrix("Ta_2m")
	require.True(t, ok)

	up, _ := m.Cell("Nitrate", 0)
	assert.InDelta(t, 1.0, up.Coef, 1e-12)
	assert.True(t, up.Significant)
	assert.Equal(t, 10, up.N)

	down, _ := m.Cell("Phosphate", 0)
	assert.InDelta(t, -1.0, down.Coef, 1e-12)
	assert.True(t, down.Significant)
	assert.Equal(t, DefaultSignificanceLevel, res.SignificanceLevel)
}

// weatherWave is a non-monotonic daily signal.
var weatherWave = []float64{5, 3, 8, 1, 9, 2, 7, 4, 6, 10, 12, 11, 0, 13, 15, 14}

func lagFixture(t *testing.T) (*dataset.Table, *dataset.Table) {
	t.Helper()
	weather := series(t, 1, map[string][]float64{
		"Ta_2m": weatherWave,
		"PCP":   seq(1, len(weatherWave), func(i int) float64 { return float64(i%3) + 0.5*float64(i%5) }),
	})
	// pond on day D mirrors the weather three days earlier
	pond := series(t, 4, map[string][]float64{
		"Nitrate": weatherWave[:12],
		"NPOC":    seq(4, 12, func(i int) float64 { return float64((i * 7) % 11) }),
	})
	return pond, weather
}

func TestLagShiftDirection(t *testing.T) {
	pond, weather := lagFixture(t)
	res, err := LagCorrelate(pond, weather, LagOptions{
		Lags: []int{-3, 0, 3}, PondVars: []string{"Nitrate"}, WeatherVars: []string{"Ta_2m"},
	})
	require.NoError(t, err)
	m, _ := res.Matrix("Ta_2m")

	c, ok := m.Cell("Nitrate", 3)
	require.True(t, ok)
	assert.InDelta(t, 1.0, c.Coef, 1e-12)
	assert.True(t, c.Significant)
	assert.Equal(t, 12, c.N)

	c, _ = m.Cell("Nitrate", 0)
	assert.Less(t, math.Abs(c.Coef), 0.99)
	assert.Equal(t, 12, c.N)
	assert.Equal(t, []int{10, 12, 12}, res.Pairs)
}

func TestLagSinglePairScenario(t *testing.T) {
	pond := dataset.New("pond", "Nitrate")
	require.NoError(t, pond.AppendRow(june(10), "", []float64{2.0}))
	weather := dataset.New("weather", "Ta_2m")
	require.NoError(t, weather.AppendRow(june(7), "", []float64{18.0}))

	res, err := LagCorrelate(pond, weather, LagOptions{
		Lags: []int{0, 3}, PondVars: []string{"Nitrate"}, WeatherVars: []string{"Ta_2m"},
	})
	require.NoError(t, err)
	m, _ := res.Matrix("Ta_2m")

	shifted, _ := m.Cell("Nitrate", 3)
	assert.Equal(t, 1, shifted.N)
	assert.False(t, shifted.Defined())
	assert.False(t, shifted.Significant)

	same, _ := m.Cell("Nitrate", 0)
	assert.Equal(t, 0, same.N)
	assert.True(t, math.IsNaN(same.Coef))
	assert.True(t, math.IsNaN(same.PValue))
}

func TestLagOrderDoesNotChangeCells(t *testing.T) {
	pond, weather := lagFixture(t)
	opt := LagOptions{PondVars: []string{"Nitrate", "NPOC"}, WeatherVars: []string{"PCP", "Ta_2m"}}
	opt.Lags = []int{3, 0, -1, 2}
	a, err := LagCorrelate(pond, weather, opt)
	require.NoError(t, err)
	opt.Lags = []int{-1, 2, 0, 3}
	b, err := LagCorrelate(pond, weather, opt)
	require.NoError(t, err)

	assert.Equal(t, []int{-1, 2, 0, 3}, b.Lags)
	for _, w := range opt.WeatherVars {
		ma, _ := a.Matrix(w)
		mb, _ := b.Matrix(w)
		for _, p := range opt.PondVars {
			for _, l := range opt.Lags {
				ca, _ := ma.Cell(p, l)
				cb, _ := mb.Cell(p, l)
				assert.Equal(t, ca, cb, "%s/%s lag %d", w, p, l)
			}
		}
	}
}

func TestLagWorkersAreDeterministic(t *testing.T) {
	pond, weather := lagFixture(t)
	opt := LagOptions{
		Lags:     []int{-2, -1, 0, 1, 2, 3},
		PondVars: []string{"Nitrate", "NPOC"}, WeatherVars: []string{"Ta_2m", "PCP"},
	}
	seqRes, err := LagCorrelate(pond, weather, opt)
	require.NoError(t, err)
	opt.Workers = 4
	parRes, err := LagCorrelate(pond, weather, opt)
	require.NoError(t, err)
	assert.Equal(t, seqRes, parRes)
}

func TestLagContextCancelled(t *testing.T) {
	pond, weather := lagFixture(t)
	opt := LagOptions{
		Lags:     []int{-2, -1, 0, 1, 2, 3},
		PondVars: []string{"Nitrate"}, WeatherVars: []string{"Ta_2m"},
		Workers:  2,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := LagCorrelateContext(ctx, pond, weather, opt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), err.Error())
	assert.Nil(t, res)

	// configuration errors win over cancellation
	opt.PondVars = []string{"Sulfate"}
	_, err = LagCorrelateContext(ctx, pond, weather, opt)
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestLagGracefulWithoutData(t *testing.T) {
	nan := math.NaN()
	pond := series(t, 1, map[string][]float64{"Nitrate": {nan, nan, nan}})
	weather := series(t, 20, map[string][]float64{"Ta_2m": {1, 2, 3}})
	res, err := LagCorrelate(pond, weather, LagOptions{
		Lags: []int{0, 1, 14}, PondVars: []string{"Nitrate"}, WeatherVars: []string{"Ta_2m"},
	})
	require.NoError(t, err)
	m, _ := res.Matrix("Ta_2m")
	for j := range m.Lags {
		c := m.At(0, j)
		assert.False(t, c.Defined())
		assert.False(t, c.Significant)
	}
}

func TestLagDuplicateDatesCrossJoin(t *testing.T) {
	pond := dataset.New("pond", "Nitrate")
	require.NoError(t, pond.AppendRow(june(5), "AP", []float64{1}))
	require.NoError(t, pond.AppendRow(june(5), "SP", []float64{2}))
	require.NoError(t, pond.AppendRow(june(6), "AP", []float64{3}))
	weather := series(t, 5, map[string][]float64{"Ta_2m": {10, 20}})
	res, err := LagCorrelate(pond, weather, LagOptions{
		Lags: []int{0}, PondVars: []string{"Nitrate"}, WeatherVars: []string{"Ta_2m"},
	})
	require.NoError(t, err)
	m, _ := res.Matrix("Ta_2m")
	c, _ := m.Cell("Nitrate", 0)
	assert.Equal(t, 3, c.N)
	// ranks x = 1,2,3 and y = 1.5,1.5,3
	assert.InDelta(t, math.Sqrt(3)/2, c.Coef, 1e-12)
}

func TestLagConstantSeriesIsUndefined(t *testing.T) {
	pond := series(t, 1, map[string][]float64{"Nitrate": {4, 4, 4, 4}})
	weather := series(t, 1, map[string][]float64{"Ta_2m": {1, 2, 3, 4}})
	res, err := LagCorrelate(pond, weather, LagOptions{
		Lags: []int{0}, PondVars: []string{"Nitrate"}, WeatherVars: []string{"Ta_2m"},
	})
	require.NoError(t, err)
	c := res.Matrices[0].At(0, 0)
	assert.Equal(t, 4, c.N)
	assert.False(t, c.Defined())
	assert.False(t, c.Significant)
}

func TestLagSignificanceIsStrict(t *testing.T) {
	pond, weather := lagFixture(t)
	opt := LagOptions{Lags: []int{0}, PondVars: []string{"NPOC"}, WeatherVars: []string{"Ta_2m"}, SignificanceLevel: 0.99}
	res, err := LagCorrelate(pond, weather, opt)
	require.NoError(t, err)
	p := res.Matrices[0].PValue[0][0]
	require.False(t, math.IsNaN(p))
	require.Greater(t, p, 0.0)

	opt.SignificanceLevel = p
	res, err = LagCorrelate(pond, weather, opt)
	require.NoError(t, err)
	assert.False(t, res.Matrices[0].Significant[0][0])

	opt.SignificanceLevel = math.Nextafter(p, 1)
	res, err = LagCorrelate(pond, weather, opt)
	require.NoError(t, err)
	assert.True(t, res.Matrices[0].Significant[0][0])
}

func TestLagConfigErrors(t *testing.T) {
	pond, weather := lagFixture(t)
	base := LagOptions{Lags: []int{0}, PondVars: []string{"Nitrate"}, WeatherVars: []string{"Ta_2m"}}

	noDate := dataset.New("broken", "Nitrate")
	require.NoError(t, noDate.AppendRow(time.Time{}, "", []float64{1}))

	cases := []struct {
		name    string
		pond    *dataset.Table
		mutate  func(*LagOptions)
		column  string
		wrapped error
	}{
		{name: "unknown pond column", pond: pond, mutate: func(o *LagOptions) { o.PondVars = []string{"Nitrate", "Sulfate"} }, column: "Sulfate"},
		{name: "unknown weather column", pond: pond, mutate: func(o *LagOptions) { o.WeatherVars = []string{"Wind"} }, column: "Wind"},
		{name: "no lags", pond: pond, mutate: func(o *LagOptions) { o.Lags = nil }},
		{name: "duplicate lag", pond: pond, mutate: func(o *LagOptions) { o.Lags = []int{1, 0, 1} }},
		{name: "duplicate variable", pond: pond, mutate: func(o *LagOptions) { o.PondVars = []string{"Nitrate", "Nitrate"} }, column: "Nitrate"},
		{name: "no pond vars", pond: pond, mutate: func(o *LagOptions) { o.PondVars = nil }},
		{name: "alpha too large", pond: pond, mutate: func(o *LagOptions) { o.SignificanceLevel = 1 }},
		{name: "alpha negative", pond: pond, mutate: func(o *LagOptions) { o.SignificanceLevel = -0.1 }},
		{name: "missing date key", pond: noDate, mutate: func(*LagOptions) {}, wrapped: ErrNoDateKey},
		{name: "nil table", pond: nil, mutate: func(*LagOptions) {}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opt := base
			tc.mutate(&opt)
			res, err := LagCorrelate(tc.pond, weather, opt)
			require.Error(t, err)
			assert.Nil(t, res)
			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "want ConfigError, got %T", err)
			assert.Equal(t, tc.column, ce.Column)
			if tc.wrapped != nil {
				assert.ErrorIs(t, err, tc.wrapped)
			}
		})
	}
}

func TestLagLogsPerLag(t *testing.T) {
	pond, weather := lagFixture(t)
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	_, err := LagCorrelate(pond, weather, LagOptions{
		Lags: []int{0, 3}, PondVars: []string{"Nitrate"}, WeatherVars: []string{"Ta_2m"}, Logger: logger,
	})
	require.NoError(t, err)
	require.Len(t, hook.AllEntries(), 2)
	for _, e := range hook.AllEntries() {
		assert.Equal(t, "lag evaluated", e.Message)
		assert.Contains(t, e.Data, "lag")
		assert.Equal(t, 12, e.Data["pairs"])
	}
}

func TestLagRendering(t *testing.T) {
	pond, weather := lagFixture(t)
	res, err := LagCorrelate(pond, weather, LagOptions{
		Lags: []int{-20, 0, 3}, PondVars: []string{"Nitrate"}, WeatherVars: []string{"Ta_2m"},
	})
	require.NoError(t, err)

	md := res.Markdown()
	assert.Contains(t, md, "[LAG CORRELATION: Ta_2m]")
	assert.Contains(t, md, "| Pond variable | -20 | 0 | +3 |")
	assert.Contains(t, md, "**1.00**")
	assert.Contains(t, md, "n/a")

	var buf bytes.Buffer
	require.NoError(t, res.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(LagCSVHeader, ","), lines[0])
	assert.Equal(t, "Ta_2m,Nitrate,-20,0,,,false", lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "Ta_2m,Nitrate,3,12,1,"))
	assert.True(t, strings.HasSuffix(lines[3], ",true"))
}
