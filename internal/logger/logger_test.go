package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestEnvValuePrefixedTakesPrecedence(t *testing.T) {
	t.Setenv("RAG_LOG_LEVEL", "warn")
	t.Setenv("LOG_LEVEL", "debug")

	assert.Equal(t, "warn", envValue("RAG_LOG_LEVEL", "LOG_LEVEL"))
}

func TestEnvValueFallsBackToBareName(t *testing.T) {
	t.Setenv("RAG_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "debug")

	assert.Equal(t, "debug", envValue("RAG_LOG_LEVEL", "LOG_LEVEL"))
}

func TestResolveLevel(t *testing.T) {
	t.Setenv("RAG_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, zapcore.InfoLevel, resolveLevel())

	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, zapcore.DebugLevel, resolveLevel())

	t.Setenv("RAG_LOG_LEVEL", "error")
	assert.Equal(t, zapcore.ErrorLevel, resolveLevel())

	// 无法识别的级别落回Info
	t.Setenv("RAG_LOG_LEVEL", "verbose")
	assert.Equal(t, zapcore.InfoLevel, resolveLevel())
}

func TestInitLoggerHonorsLevel(t *testing.T) {
	t.Setenv("RAG_ENV", "")
	t.Setenv("ENV", "")
	t.Setenv("RAG_LOG_LEVEL", "debug")

	require.NoError(t, InitLogger())
	t.Cleanup(Sync)

	assert.True(t, Logger.Core().Enabled(zapcore.DebugLevel))
}
