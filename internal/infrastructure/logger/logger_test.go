package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cinereview/core/internal/infrastructure/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggerConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
}

func TestNewBuildsBothFormats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New(config.LoggerConfig{Level: "debug", Format: format, Output: "stdout"})
		require.NoError(t, err, format)
		require.NotNil(t, l.SugaredLogger)
	}
}

func TestLogStorageOperation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).WithComponent("store")

	l.LogStorageOperation("append", "tt001", 1.5, nil)
	l.LogStorageOperation("list", "tt002", 0.2, errors.New("disk gone"))

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "append", entries[0].ContextMap()["operation"])
	assert.Equal(t, "store", entries[0].ContextMap()["component"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "disk gone", entries[1].ContextMap()["error"])
	assert.Equal(t, "tt002", entries[1].ContextMap()["movie_id"])
}
