// Package logging builds the zap logger shared by the Outlook toolbox and
// routes Azure SDK diagnostics into it.
package logging

import (
	"os"
	"strings"

	azlog "github.com/Azure/azure-sdk-for-go/sdk/azcore/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugEnv enables debug level logging when set to a truthy value.
const DebugEnv = "OUTLOOK_MCP_DEBUG"

// Debug reports whether OUTLOOK_MCP_DEBUG is set.
func Debug() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(DebugEnv)))
	return v != "" && v != "0" && v != "false"
}

// New builds a production logger writing to stderr; debug lowers the level.
func New(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// azureEvents are forwarded from the Azure SDK; token/credential events are left out.
var azureEvents = []azlog.Event{
	azlog.EventRequest,
	azlog.EventResponse,
	azlog.EventResponseError,
	azlog.EventRetryPolicy,
}

// BridgeAzure forwards Azure SDK pipeline logs to logger at debug level.
// It is a no-op unless logger has debug enabled.
func BridgeAzure(logger *zap.Logger) {
	if logger == nil || !logger.Core().Enabled(zapcore.DebugLevel) {
		azlog.SetListener(nil)
		return
	}
	azlog.SetEvents(azureEvents...)
	azlog.SetListener(listener(logger.Named("azure")))
}

func listener(logger *zap.Logger) func(azlog.Event, string) {
	return func(event azlog.Event, msg string) {
		if event == azlog.EventResponseError {
			logger.Warn(msg, zap.String("event", string(event)))
			return
		}
		logger.Debug(msg, zap.String("event", string(event)))
	}
}
