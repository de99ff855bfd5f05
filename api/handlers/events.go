package handlers

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

// EventsHandler streams task transition events over a websocket.
type EventsHandler struct {
	manager *task.Manager
	logger  *zap.Logger
}

// NewEventsHandler creates an events handler.
func NewEventsHandler(manager *task.Manager, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{
		manager: manager,
		logger:  logger.With(zap.String("handler", "events")),
	}
}

// Stream handles GET /v1/tasks/events. Each task status transition is
// pushed as one JSON message until the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	events, cancel := h.manager.Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server closing")
			return
		case e, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "event stream closed")
				return
			}
			if err := wsjson.Write(ctx, conn, e); err != nil {
				h.logger.Debug("event subscriber dropped", zap.Error(err))
				return
			}
		}
	}
}
