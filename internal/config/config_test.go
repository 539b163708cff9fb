package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "02.01.2006", c.DateLayout)
	assert.Equal(t, []int{-14, -7, -3, -2, -1, 0, 1, 2, 3, 7, 14}, c.Lags)
	assert.Equal(t, []string{"Ta_2m", "PCP"}, c.WeatherVars)
	assert.Equal(t, 0.05, c.SignificanceLevel)
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, 2, c.LocationPrefix)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".pondstat", "studies"), c.StudiesDir)
}

func TestSaveThenLoadWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := &Global{
		StudiesDir:        "/data/studies",
		Lags:              []int{-1, 0, 1},
		PondVars:          []string{"Nitrate"},
		WeatherVars:       []string{"PCP"},
		SignificanceLevel: 0.01,
		Workers:           4,
	}
	require.NoError(t, Save(c, path))

	t.Setenv("PONDSTAT_WORKERS", "8")
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/studies", got.StudiesDir)
	assert.Equal(t, []int{-1, 0, 1}, got.Lags)
	assert.Equal(t, []string{"Nitrate"}, got.PondVars)
	assert.Equal(t, 0.01, got.SignificanceLevel)
	assert.Equal(t, 8, got.Workers)
}
