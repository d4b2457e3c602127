package lsp

import (
	"bytes"
	"errors"
	"testing"

	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/lsp/testutil"
	"bennypowers.dev/vuextract/lsp/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func captureLog(t *testing.T, level log.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetLevel(level)
	t.Cleanup(func() {
		log.SetOutput(nil)
		log.SetLevel(log.LevelInfo)
	})
	return &buf
}

func TestMethodPanicRecovery(t *testing.T) {
	logBuf := captureLog(t, log.LevelInfo)

	panicHandler := func(req *types.RequestContext, params string) (string, error) {
		panic("test panic")
	}
	wrapped := method(testutil.NewMockServerContext(), "testMethod", panicHandler)

	result, err := wrapped(nil, "params")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error in testMethod")
	assert.Empty(t, result)
	assert.Contains(t, logBuf.String(), "PANIC")
}

func TestMethodErrorWrapping(t *testing.T) {
	logBuf := captureLog(t, log.LevelInfo)
	client := &testutil.Client{}

	errHandler := func(req *types.RequestContext, params string) (string, error) {
		return "partial", errors.New("handler error")
	}
	wrapped := method(testutil.NewMockServerContext(), "testMethod", errHandler)

	result, err := wrapped(client.Context(), "params")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "testMethod: handler error")
	assert.Empty(t, result)
	assert.Contains(t, logBuf.String(), "handler error")
	assert.Eventually(t, func() bool {
		return len(client.Notifications(protocol.ServerWindowLogMessage)) == 1
	}, timeout, tick)
}

func TestMethodSuccessLogging(t *testing.T) {
	logBuf := captureLog(t, log.LevelDebug)

	wrapped := method(testutil.NewMockServerContext(), "testMethod", func(req *types.RequestContext, params string) (string, error) {
		return "success " + params, nil
	})
	result, err := wrapped(nil, "result")

	require.NoError(t, err)
	assert.Equal(t, "success result", result)
	assert.Contains(t, logBuf.String(), "testMethod started")
	assert.Contains(t, logBuf.String(), "testMethod completed")
}

func TestMethodLogsWarnings(t *testing.T) {
	logBuf := captureLog(t, log.LevelInfo)

	wrapped := method(testutil.NewMockServerContext(), "testMethod", func(req *types.RequestContext, params string) (string, error) {
		req.AddWarning(errors.New("type server unavailable"))
		return "ok", nil
	})
	result, err := wrapped(nil, "")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Contains(t, logBuf.String(), "testMethod: type server unavailable")
}

func TestNotifyPanicRecovery(t *testing.T) {
	logBuf := captureLog(t, log.LevelInfo)

	wrapped := notify(testutil.NewMockServerContext(), "testNotify", func(req *types.RequestContext, params int) error {
		panic("notify panic")
	})
	err := wrapped(nil, 42)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error")
	assert.Contains(t, logBuf.String(), "PANIC")
}

func TestNoParam(t *testing.T) {
	t.Run("panic", func(t *testing.T) {
		logBuf := captureLog(t, log.LevelInfo)
		wrapped := noParam(testutil.NewMockServerContext(), "shutdown", func(req *types.RequestContext) error {
			panic("noParam panic")
		})
		err := wrapped(nil)
		require.Error(t, err)
		assert.Contains(t, logBuf.String(), "PANIC")
	})

	t.Run("success", func(t *testing.T) {
		logBuf := captureLog(t, log.LevelDebug)
		called := false
		wrapped := noParam(testutil.NewMockServerContext(), "shutdown", func(req *types.RequestContext) error {
			called = true
			return nil
		})
		require.NoError(t, wrapped(nil))
		assert.True(t, called)
		assert.Contains(t, logBuf.String(), "shutdown completed")
	})
}
