package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/campusgate/gatewatch/internal/broadcast"
	"github.com/campusgate/gatewatch/internal/middleware"
)

// WSHandlers holds dependencies for the dashboard WebSocket endpoint.
type WSHandlers struct {
	broadcaster    *broadcast.EventBroadcaster
	allowedOrigins []string
}

// NewWSHandlers creates a new WSHandlers instance. allowedOrigins uses the
// same allowlist as the CORS middleware; an empty list rejects all
// cross-origin upgrades.
func NewWSHandlers(broadcaster *broadcast.EventBroadcaster, allowedOrigins []string) *WSHandlers {
	return &WSHandlers{
		broadcaster:    broadcaster,
		allowedOrigins: allowedOrigins,
	}
}

func (h *WSHandlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Same-origin and non-browser clients (gate stations)
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Subscribe handles GET /ws - upgrades the connection and streams gate
// events until the observer disconnects.
func (h *WSHandlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade websocket connection", "error", err)
		return
	}

	h.broadcaster.Register(conn)

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "observer connected", "request_id", requestID)

	defer func() {
		h.broadcaster.Unregister(conn)
		conn.Close()
		slog.InfoContext(ctx, "observer disconnected", "request_id", requestID)
	}()

	// Read loop: answer keep-alive pings, detect disconnection. No other
	// inbound message type is meaningful.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.WarnContext(ctx, "websocket connection closed unexpectedly", "error", err)
			}
			return
		}
		var msg broadcast.Event
		if json.Unmarshal(data, &msg) == nil && msg.Type == broadcast.MessagePing {
			h.broadcaster.Pong(conn)
		}
	}
}
