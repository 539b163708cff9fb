package analysis

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
)

var (
	normalA = []float64{-1.28, -0.84, -0.52, -0.25, 0, 0.25, 0.52, 0.84, 1.28, 0.1, -0.1, 0.4, -0.4}
	normalC = []float64{0.25, -1.28, 0.84, -0.1, 0.52, -0.84, 0, 1.28, -0.25, 0.4, -0.52, 0.1, -0.4}
)

func sameDayTable(t *testing.T, extra map[string][]float64) *dataset.Table {
	t.Helper()
	cols := map[string][]float64{
		"A": normalA,
		"B": seq(0, len(normalA), func(i int) float64 { return 1 - 3*normalA[i] }),
		"C": normalC,
	}
	for k, v := range extra {
		cols[k] = v
	}
	return series(t, 1, cols)
}

func TestSameDayPicksPearsonForNormalColumns(t *testing.T) {
	m, err := SameDayCorrelate(sameDayTable(t, nil), []string{"A", "B", "C"}, SameDayOptions{})
	require.NoError(t, err)
	assert.Equal(t, MethodPearson, m.Method)
	for i := range m.Columns {
		assert.Equal(t, 1.0, m.Coef[i][i])
		assert.Greater(t, m.Normality[i].PValue, 0.05)
	}
	assert.InDelta(t, -1.0, m.Coef[1][0], 1e-12)
	assert.Equal(t, m.Coef[1][0], m.Coef[0][1])
	assert.True(t, m.Significant(1, 0))
	assert.False(t, m.Significant(0, 1), "upper triangle is never highlighted")
	assert.False(t, m.Significant(1, 1))
	assert.Equal(t, 13, m.N[2][0])
}

func TestSameDayFallsBackToSpearman(t *testing.T) {
	nan := math.NaN()
	skewed := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 50, nan}
	m, err := SameDayCorrelate(sameDayTable(t, map[string][]float64{"D": skewed}), []string{"A", "B", "D"}, SameDayOptions{})
	require.NoError(t, err)
	assert.Equal(t, MethodSpearman, m.Method)
	assert.InDelta(t, -1.0, m.Coef[1][0], 1e-12)
	assert.Equal(t, 12, m.N[2][0])
}

func TestSameDayUntestableColumnCountsAsNonNormal(t *testing.T) {
	nan := math.NaN()
	sparse := []float64{5, nan, nan, nan, nan, nan, nan, nan, nan, nan, nan, nan, nan}
	m, err := SameDayCorrelate(sameDayTable(t, map[string][]float64{"E": sparse}), []string{"A", "E"}, SameDayOptions{})
	require.NoError(t, err)
	assert.Equal(t, MethodSpearman, m.Method)
	assert.True(t, math.IsNaN(m.Normality[1].PValue))
	assert.True(t, math.IsNaN(m.Coef[1][0]))
	assert.Equal(t, 1.0, m.PValue[1][0])
	assert.False(t, m.Significant(1, 0))
}

func TestSameDayForcedMethod(t *testing.T) {
	m, err := SameDayCorrelate(sameDayTable(t, nil), []string{"A", "C"}, SameDayOptions{Method: MethodSpearman})
	require.NoError(t, err)
	assert.Equal(t, MethodSpearman, m.Method)
}

func TestSameDayConfigErrors(t *testing.T) {
	tbl := sameDayTable(t, nil)
	_, err := SameDayCorrelate(tbl, []string{"A", "Z"}, SameDayOptions{})
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Z", ce.Column)

	_, err = SameDayCorrelate(tbl, []string{"A"}, SameDayOptions{NormalityAlpha: 2})
	assert.True(t, errors.As(err, &ce))
}

func TestSameDayRendering(t *testing.T) {
	m, err := SameDayCorrelate(sameDayTable(t, nil), []string{"A", "B", "C"}, SameDayOptions{})
	require.NoError(t, err)
	md := m.Markdown()
	assert.Contains(t, md, "[NORMALITY]")
	assert.Contains(t, md, "[CORRELATIONS: pearson]")
	assert.Contains(t, md, "| B | **-1.00** |  |")

	var buf bytes.Buffer
	require.NoError(t, m.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "B,A,pearson,13,-1,"))
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{"": MethodAuto, "auto": MethodAuto, "pearson": MethodPearson, "spearman": MethodSpearman} {
		got, err := ParseMethod(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMethod("kendall")
	assert.Error(t, err)
}

func TestBufferEffect(t *testing.T) {
	nan := math.NaN()
	tbl := dataset.New("pond", "Nitrate", "Phosphor")
	tbl.Units["Nitrate"] = "mg/L"
	rows := []struct {
		day  int
		loc  string
		vals []float64
	}{
		{1, "AP", []float64{10, 1}},
		{1, "AP", []float64{10, 1}},
		{1, "SP", []float64{5, 0.5}},
		{1, "ZU", []float64{99, 99}},
		{2, "AP", []float64{4, 0}},
		{2, "SP", []float64{5, 0.1}},
		{3, "AP", []float64{8, nan}},
	}
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(june(r.day), r.loc, r.vals))
	}

	res, err := BufferEffect(tbl, "AP", "SP", []string{"Nitrate", "Phosphor"})
	require.NoError(t, err)
	out := res.Table
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []string{"Nitrate_AP", "Nitrate_SP", "Nitrate_diff", "Nitrate_pct", "Phosphor_AP", "Phosphor_SP", "Phosphor_diff", "Phosphor_pct"}, out.Columns)
	assert.Equal(t, "mg/L", out.Units["Nitrate_diff"])
	assert.Equal(t, "%", out.Units["Nitrate_pct"])

	assert.Equal(t, 10.0, out.Value("Nitrate_AP", 0))
	assert.Equal(t, 5.0, out.Value("Nitrate_diff", 0))
	assert.Equal(t, 50.0, out.Value("Nitrate_pct", 0))
	assert.Equal(t, -25.0, out.Value("Nitrate_pct", 1))
	assert.True(t, math.IsNaN(out.Value("Nitrate_pct", 2)))
	assert.True(t, math.IsNaN(out.Value("Phosphor_pct", 1)), "zero inflow has no percentage")

	require.Len(t, res.Summary, 2)
	s := res.Summary[0]
	assert.Equal(t, "Nitrate", s.Var)
	assert.Equal(t, 2, s.N)
	assert.Equal(t, -25.0, s.Min)
	assert.Equal(t, -6.25, s.Q1)
	assert.Equal(t, 12.5, s.Median)
	assert.Equal(t, 50.0, s.Max)

	md := res.Markdown()
	assert.Contains(t, md, "[BUFFER EFFECT: AP -> SP]")
	assert.Contains(t, md, "| Nitrate | 2 | -25.0 | -6.3 | 12.5 | 31.3 | 50.0 |")
}

func TestBufferEffectErrors(t *testing.T) {
	tbl := dataset.New("pond", "Nitrate")
	require.NoError(t, tbl.AppendRow(june(1), "AP", []float64{1}))
	var ce *ConfigError

	_, err := BufferEffect(tbl, "AP", "AP", []string{"Nitrate"})
	assert.True(t, errors.As(err, &ce))
	_, err = BufferEffect(tbl, "AP", "SP", []string{"Nitrate"})
	assert.True(t, errors.As(err, &ce))
	_, err = BufferEffect(tbl, "AP", "SP", []string{"NPOC"})
	assert.True(t, errors.As(err, &ce))
}
