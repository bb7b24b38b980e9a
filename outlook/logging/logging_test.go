package logging

import (
	"testing"

	azlog "github.com/Azure/azure-sdk-for-go/sdk/azcore/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDebug(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "", want: false},
		{value: "0", want: false},
		{value: "false", want: false},
		{value: "FALSE", want: false},
		{value: "1", want: true},
		{value: "true", want: true},
	}
	for _, tc := range tests {
		t.Setenv(DebugEnv, tc.value)
		assert.Equal(t, tc.want, Debug(), "value %q", tc.value)
	}
}

func TestNewLevels(t *testing.T) {
	logger, err := New(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestAzureListener(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	fn := listener(zap.New(core))
	fn(azlog.EventRequest, "==> OUTGOING REQUEST")
	fn(azlog.EventResponseError, "404 Not Found")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "==> OUTGOING REQUEST", entries[0].Message)
	assert.Equal(t, string(azlog.EventRequest), entries[0].ContextMap()["event"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
