package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gate-control/internal/config"
)

func TestSetup(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := Setup(config.LogConfig{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("stdout only", func(t *testing.T) {
		closer, err := Setup(config.LogConfig{Level: "debug", Format: "text"})
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	})

	t.Run("rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "gate.log")
		closer, err := Setup(config.LogConfig{Level: "info", Format: "json", File: path, MaxSize: 1})
		require.NoError(t, err)
		require.NotNil(t, closer)

		logrus.WithField("user_id", "bob").Info("door opened")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"user_id":"bob"`)
	})
}
