package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	logger.Debug("hidden")
	logger.WithField("lag", 3).Info("lag evaluated")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=info msg=lag evaluated lag=3")

	logger, err = New("DEBUG", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	_, err = New("chatty", &buf)
	assert.Error(t, err)
}
