package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/viant/jsonrpc"
	"github.com/viant/rpcchannel/internal/logging"
)

// NotificationListener receives server notifications.
type NotificationListener func(ctx context.Context, notification *jsonrpc.Notification)

// Handler serves messages initiated by the server side of the connection. The
// channel only issues requests, so server requests are answered with method not found.
type Handler struct {
	logger        *slog.Logger
	notifications NotificationListener
}

// NewHandler creates a handler; listener is optional.
func NewHandler(logger *slog.Logger, listener NotificationListener) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{logger: logger, notifications: listener}
}

func (h *Handler) Serve(ctx context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	response.Id = request.Id
	response.Jsonrpc = request.Jsonrpc
	response.Error = jsonrpc.NewMethodNotFound(fmt.Sprintf("method %s not found", request.Method), nil)
	h.logger.Debug("rejected server request", "method", request.Method)
}

// OnNotification handles notification
func (h *Handler) OnNotification(ctx context.Context, notification *jsonrpc.Notification) {
	if h.notifications != nil {
		h.notifications(ctx, notification)
		return
	}
	h.logger.Debug("ignored notification", "method", notification.Method)
}
