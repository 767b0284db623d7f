package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFinish(t *testing.T) {
	t.Run("clean shutdown", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		assert.Equal(t, 0, finish(zap.New(core), nil))
		assert.Zero(t, logs.Len())
	})

	t.Run("failure is logged at error level", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		code := finish(zap.New(core), errors.New("initialize database: disk full"))

		assert.Equal(t, 1, code)
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)
		assert.Equal(t, "server failed", entry.Message)
	})
}
