package store

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/pondstat-cli/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleResult() *analysis.LagResult {
	nan := math.NaN()
	m := &analysis.LagMatrix{
		WeatherVar:        "Ta_2m",
		PondVars:          []string{"Nitrate", "NPOC"},
		Lags:              []int{0, 3},
		SignificanceLevel: 0.05,
		Coef:              [][]float64{{0.8, nan}, {-0.2, 0.1}},
		PValue:            [][]float64{{0.01, nan}, {0.4, 0.7}},
		Significant:       [][]bool{{true, false}, {false, false}},
		N:                 [][]int{{12, 1}, {12, 10}},
	}
	return &analysis.LagResult{
		Lags:              m.Lags,
		PondVars:          m.PondVars,
		WeatherVars:       []string{"Ta_2m"},
		SignificanceLevel: 0.05,
		Pairs:             []int{12, 10},
		Matrices:          []*analysis.LagMatrix{m},
	}
}

func TestSaveAndReadLagRun(t *testing.T) {
	s := newTestStore(t)
	id, err := s.SaveLagRun(sampleResult(), map[string]any{"lags": []int{0, 3}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	cells, err := s.LagCells(id)
	require.NoError(t, err)
	require.Len(t, cells, 4)
	assert.Equal(t, "Ta_2m", cells[0].WeatherVar)
	assert.Equal(t, "Nitrate", cells[0].PondVar)
	assert.Equal(t, 0, cells[0].Lag)
	assert.Equal(t, 12, cells[0].N)
	assert.Equal(t, 0.8, cells[0].Coef)
	assert.True(t, cells[0].Significant)

	assert.Equal(t, 3, cells[1].Lag)
	assert.False(t, cells[1].Defined())
	assert.True(t, math.IsNaN(cells[1].PValue))
	assert.Equal(t, 1, cells[1].N)

	assert.Equal(t, "NPOC", cells[3].PondVar)
	assert.InDelta(t, 0.7, cells[3].PValue, 1e-12)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, KindLag, runs[0].Kind)
	assert.Equal(t, 4, runs[0].Cells)
	var params map[string][]int
	require.NoError(t, json.Unmarshal(runs[0].Params, &params))
	assert.Equal(t, []int{0, 3}, params["lags"])
}

func TestLagCellsUnknownRun(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LagCells("missing")
	assert.ErrorContains(t, err, "run not found")
}

func TestDeleteRunCascades(t *testing.T) {
	s := newTestStore(t)
	id, err := s.SaveLagRun(sampleResult(), nil)
	require.NoError(t, err)
	require.NoError(t, s.DeleteRun(id))

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM lag_cells`).Scan(&n))
	assert.Zero(t, n)
	assert.Error(t, s.DeleteRun(id))
}

func TestOpenCreatesFileAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.db")
	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.SaveLagRun(sampleResult(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	cells, err := s.LagCells(id)
	require.NoError(t, err)
	assert.Len(t, cells, 4)
}
