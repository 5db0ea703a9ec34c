package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := NewConsoleHandler(buf, &slog.HandlerOptions{Level: level})
	return slog.New(handler), buf
}

func TestConsoleHandlerFormat(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)

	logger.Info("run completed", "run_id", "abc", "matched", 3)

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "run completed")
	assert.Contains(t, out, "run_id=abc")
	assert.Contains(t, out, "matched=3")
	// Buffers are not terminals, so no ANSI escapes.
	assert.NotContains(t, out, "\033[")
}

func TestConsoleHandlerSystemBracket(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)

	logger.With("system", "recon").Info("starting")

	out := buf.String()
	assert.Contains(t, out, "[recon]")
	assert.NotContains(t, out, "system=recon")
}

func TestConsoleHandlerLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelWarn)

	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
}

func TestConsoleHandlerWithAttrsAccumulates(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)

	scoped := logger.With("run_id", "r1").With("source", "storefront")
	scoped.Info("fetched", "count", 10)

	out := buf.String()
	require.Contains(t, out, "run_id=r1")
	assert.Contains(t, out, "source=storefront")
	assert.Contains(t, out, "count=10")
}
