package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, mode := range []string{"production", "development"} {
		logger, sync, err := New(Options{Level: "debug", Mode: mode})
		require.NoError(t, err, mode)
		require.NotNil(t, logger)
		sync()
	}

	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestFromZap_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.Level(-4))
	logger := FromZap(zap.New(core))

	logger.Debug("resolved references", "count", 3)
	logger.Info("data entity status changed", "oddrn", "//db/orders")
	logger.Error("status switch pass failed", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "resolved references", entries[0].Message)
	assert.Equal(t, "data entity status changed", entries[1].Message)
	assert.Equal(t, "//db/orders", entries[1].ContextMap()["oddrn"])
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestFromZap_InfoFiltersDebug(t *testing.T) {
	level, err := parseLevel("info")
	require.NoError(t, err)
	core, logs := observer.New(level)
	logger := FromZap(zap.New(core))

	logger.Debug("hidden")
	logger.Info("shown")

	require.Len(t, logs.All(), 1)
	assert.Equal(t, "shown", logs.All()[0].Message)
}
