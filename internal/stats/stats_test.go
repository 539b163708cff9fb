package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankAveragesTies(t *testing.T) {
	got := Rank([]float64{30, 10, 20, 20})
	assert.Equal(t, []float64{4, 1, 2.5, 2.5}, got)

	got = Rank([]float64{5, 5, 5})
	assert.Equal(t, []float64{2, 2, 2}, got)
}

func TestPairwiseCompleteDropsEitherSide(t *testing.T) {
	nan := math.NaN()
	x, y := PairwiseComplete(
		[]float64{1, nan, 3, 4, 5},
		[]float64{10, 20, nan, 40, 50},
	)
	assert.Equal(t, []float64{1, 4, 5}, x)
	assert.Equal(t, []float64{10, 40, 50}, y)
}

func TestSpearmanPerfectMonotonic(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{1, 4, 9, 16, 25, 36}
	r := Spearman(x, y)
	require.True(t, r.Defined())
	assert.InDelta(t, 1.0, r.Coef, 1e-12)
	assert.InDelta(t, 0.0, r.PValue, 1e-9)

	inv := Spearman(x, []float64{60, 50, 40, 30, 20, 10})
	assert.InDelta(t, -1.0, inv.Coef, 1e-12)
}

func TestSpearmanKnownValue(t *testing.T) {
	// rho = 1 - 6*sum(d^2)/(n(n^2-1)) with d = {0,0,-1,1,0} -> 1 - 12/120 = 0.9
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 2, 4, 3, 5}
	r := Spearman(x, y)
	assert.InDelta(t, 0.9, r.Coef, 1e-12)
	// t = 0.9*sqrt(3/0.19) = 3.5762, df = 3 -> p ~= 0.0374
	assert.InDelta(t, 0.0374, r.PValue, 5e-4)
}

func TestSpearmanUndefined(t *testing.T) {
	r := Spearman([]float64{1}, []float64{2})
	assert.False(t, r.Defined())
	assert.True(t, math.IsNaN(r.PValue))

	// constant input has no rank variance
	r = Spearman([]float64{1, 2, 3}, []float64{4, 4, 4})
	assert.False(t, r.Defined())
	assert.False(t, Significant(r.PValue, 0.05))

	// two pairs give a coefficient but no test
	r = Spearman([]float64{1, 2}, []float64{3, 4})
	assert.InDelta(t, 1.0, r.Coef, 1e-12)
	assert.True(t, math.IsNaN(r.PValue))
}

func TestPearsonMatchesDefinition(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 5, 4, 5}
	r := Pearson(x, y)
	// cov = 6/4, sx = sqrt(10/4), sy = sqrt(6/4) -> r = 6/sqrt(60)
	assert.InDelta(t, 6/math.Sqrt(60), r.Coef, 1e-12)
	assert.Greater(t, r.PValue, 0.05)
}

func TestSignificantIsStrict(t *testing.T) {
	assert.False(t, Significant(0.05, 0.05))
	assert.True(t, Significant(0.0499999, 0.05))
	assert.False(t, Significant(math.NaN(), 0.05))
}

func TestShapiroWilkThreePoints(t *testing.T) {
	res, err := ShapiroWilk([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.W, 1e-12)
	assert.InDelta(t, 1.0, res.PValue, 1e-9)
}

func TestShapiroWilkMatchesReference(t *testing.T) {
	// shapiro.test in R: W = 0.78881, p-value = 0.006704
	heights := []float64{148, 154, 158, 160, 161, 162, 166, 170, 182, 195, 236}
	res, err := ShapiroWilk(heights)
	require.NoError(t, err)
	assert.Equal(t, 11, res.N)
	assert.InDelta(t, 0.78881, res.W, 1e-5)
	assert.InDelta(t, 0.006704, res.PValue, 1e-6)
}

func TestShapiroWilkNormalVsSkewed(t *testing.T) {
	normalish := []float64{-1.28, -0.84, -0.52, -0.25, 0, 0.25, 0.52, 0.84, 1.28, 0.1, -0.1, 0.4, -0.4}
	res, err := ShapiroWilk(normalish)
	require.NoError(t, err)
	assert.Greater(t, res.W, 0.9)
	assert.Greater(t, res.PValue, 0.05)

	skewed := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 50}
	res, err = ShapiroWilk(skewed)
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.05)
	assert.Greater(t, res.W, 0.0)
	assert.LessOrEqual(t, res.W, 1.0)
}

func TestShapiroWilkRejectsBadInput(t *testing.T) {
	_, err := ShapiroWilk([]float64{1, 2})
	assert.ErrorIs(t, err, ErrTooFewValues)

	_, err = ShapiroWilk([]float64{4, 4, 4, 4})
	assert.ErrorIs(t, err, ErrConstant)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{5, 1, math.NaN(), 3, 2, 4})
	assert.Equal(t, 5, s.N)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 2.0, s.Q1)
	assert.Equal(t, 3.0, s.Median)
	assert.Equal(t, 4.0, s.Q3)
	assert.Equal(t, 5.0, s.Max)

	empty := Summarize([]float64{math.NaN()})
	assert.Equal(t, 0, empty.N)
	assert.True(t, math.IsNaN(empty.Median))
}

func TestMedianMAD(t *testing.T) {
	med, mad := MedianMAD([]float64{1, 2, 3, 4, 100})
	assert.Equal(t, 3.0, med)
	assert.Equal(t, 1.0, mad)
}
