package mcp

import (
	"context"

	"github.com/viant/jsonrpc/transport"
	protoclient "github.com/viant/mcp-protocol/client"
	"github.com/viant/mcp-protocol/logger"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"
	"go.uber.org/zap"
)

// Handler serves one MCP session with the Outlook tools registered.
type Handler struct {
	*protoserver.DefaultHandler
	service *Service
	ops     protoclient.Operations
}

// NewHandler returns the session factory for the MCP server.
func NewHandler(service *Service) protoserver.NewHandler {
	return func(_ context.Context, notifier transport.Notifier, logger logger.Logger, clientOperation protoclient.Operations) (protoserver.Handler, error) {
		base := protoserver.NewDefaultHandler(notifier, logger, clientOperation)
		ret := &Handler{DefaultHandler: base, service: service, ops: clientOperation}
		if err := registerTools(base, ret); err != nil {
			service.Logger().Error("tool registration failed", zap.Error(err))
			return nil, err
		}
		elicitation := clientOperation != nil && clientOperation.Implements(schema.MethodElicitationCreate)
		service.Logger().Debug("session started", zap.Bool("elicitation", elicitation))
		return ret, nil
	}
}
